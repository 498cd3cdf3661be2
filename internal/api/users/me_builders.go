package users

import (
	"time"

	"freight-app/internal/domain/users"
)

func buildMeResponse(user *users.User) MeResponse {
	sub := SubscriptionDTO{
		Active:          user.SubscriptionActive,
		Type:            user.SubscriptionType,
		ExpiresAt:       user.SubscriptionExpiresAt,
		PaymentRequired: user.PaymentRequired,
		TrialEndAt:      user.TrialEndAt,
	}

	if user.SubscriptionExpiresAt != nil {
		days := int(time.Until(*user.SubscriptionExpiresAt).Hours() / 24)
		if days < 0 {
			days = 0
		}
		sub.DaysRemaining = &days
	}

	return MeResponse{
		ID:           user.ID,
		Name:         user.Name,
		Lastname:     user.Lastname,
		Email:        user.Email,
		Tel:          user.Tel,
		Role:         user.Role,
		IsVerified:   user.IsVerified,
		Subscription: sub,
	}
}
