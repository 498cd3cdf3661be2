package users

import "time"

type MeResponse struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Lastname   string `json:"lastname"`
	Email      string `json:"email"`
	Tel        string `json:"tel"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`

	Subscription SubscriptionDTO `json:"subscription"`
}

type SubscriptionDTO struct {
	Active          bool       `json:"active"`
	Type            *string    `json:"type"`
	ExpiresAt       *time.Time `json:"expires_at"`
	PaymentRequired bool       `json:"payment_required"`
	TrialEndAt      *time.Time `json:"trial_end_at"`
	DaysRemaining   *int       `json:"days_remaining"`
}
