package constants

// Static route constants
const (
	PublicRoute           = "/"
	LoginRoute            = "/login"
	OnboardingRoute       = "/onboarding"
	RegisterCompleteRoute = "/register/complete"
)
