package models

import (
	"time"
)

// Organization represents an organization (tenant) in the system.
// Every participant, catalog entry and report lives under exactly one organization.
type Organization struct {
	ID                  string    `json:"-"`
	Name                string    `json:"name" validate:"required,max=200"`
	Email               string    `json:"email" validate:"required,email"`
	SubscriptionTier    string    `json:"subscriptionTier"`
	SubscriptionEndDate time.Time `json:"subscriptionEndDate"`
	UserLimit           int       `json:"userLimit" validate:"gte=0"`
	CreatedAt           Timestamp `json:"createdAt"`
}

// SubscriptionActive reports whether the subscription is still valid at the given instant.
func (o *Organization) SubscriptionActive(now time.Time) bool {
	return !o.SubscriptionEndDate.IsZero() && now.Before(o.SubscriptionEndDate)
}
