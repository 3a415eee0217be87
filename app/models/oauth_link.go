package models

import "time"

// OAuthLink stores one external-provider identity attached to an account.
// Token expiry is advisory metadata from the provider; this subsystem never
// expires links on its own.
type OAuthLink struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	AccountID         uint       `gorm:"index" json:"account_id"`
	Provider          string     `gorm:"index:provider_account,unique;type:varchar(32)" json:"provider"`
	ProviderAccountID string     `gorm:"index:provider_account,unique;type:varchar(191)" json:"provider_account_id"`
	AccessToken       string     `gorm:"type:text" json:"-"`
	RefreshToken      string     `gorm:"type:text" json:"-"`
	Scope             string     `gorm:"type:varchar(255);default:null" json:"scope"`
	ExpiresAt         *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
