package oauth

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/aprendia/aprendia/internal/pkg/cache"
)

const (
	pendingKeyPrefix = "oauth:pending:"
	pendingTTL       = 15 * time.Minute
)

// PendingProfile is the provider profile stashed between the OAuth callback
// of a brand-new identity and the registration-completion form.
type PendingProfile struct {
	Email             string     `json:"email"`
	Name              string     `json:"name"`
	AvatarURL         string     `json:"avatar_url"`
	Provider          string     `json:"provider"`
	ProviderAccountID string     `json:"provider_account_id"`
	AccessToken       string     `json:"access_token"`
	RefreshToken      string     `json:"refresh_token"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

// StashPendingProfile stores the profile in Redis under a fresh opaque key
// and returns the key for the completion form to hand back.
func StashPendingProfile(p PendingProfile) (string, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	key := uuid.NewString()
	if err := cache.Set(pendingKeyPrefix+key, payload, pendingTTL); err != nil {
		return "", err
	}
	return key, nil
}

// LoadPendingProfile retrieves a stashed profile by its key. The read does
// not consume the stash: the completion form may prefill with one read and
// submit with another. The TTL covers cleanup of never-completed attempts.
func LoadPendingProfile(key string) (*PendingProfile, error) {
	raw, err := cache.Get(pendingKeyPrefix + key)
	if err != nil {
		return nil, err
	}

	var p PendingProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePendingProfile removes a stashed profile, called once registration
// completed and the provider credential has been persisted.
func DeletePendingProfile(key string) error {
	return cache.Delete(pendingKeyPrefix + key)
}

// Public returns the stash fields safe to expose to the browser. Provider
// tokens stay server-side; completion resolves them from the stash key.
func (p *PendingProfile) Public() map[string]any {
	return map[string]any{
		"email":      p.Email,
		"name":       p.Name,
		"avatar_url": p.AvatarURL,
		"provider":   p.Provider,
	}
}
