package records

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/store"
	"github.com/wolfeidau/casework/internal/validate"
)

// GetOrganization returns an organization or ErrOrganizationNotFound.
func (r *Repository) GetOrganization(ctx context.Context, orgID string) (*models.Organization, error) {
	org, err := orgPath(orgID)
	if err != nil {
		return nil, err
	}
	o, err := getOptional[models.Organization](ctx, r.docs, org)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: %s", ErrOrganizationNotFound, orgID)
	}
	o.ID = orgID
	return o, nil
}

// CreateOrganization stores a new tenant. An empty ID gets a generated one.
func (r *Repository) CreateOrganization(ctx context.Context, o models.Organization) (*models.Organization, error) {
	if err := r.validator.Struct(o); err != nil {
		return nil, err
	}
	o.CreatedAt = models.NewTimestamp(r.now())

	data, err := store.Encode(o)
	if err != nil {
		return nil, err
	}

	collection := store.Root(store.CollectionOrganizations)
	var doc store.Path
	if o.ID != "" {
		doc = collection.Doc(o.ID)
		err = r.docs.Set(ctx, doc, data)
	} else {
		doc, err = r.docs.Add(ctx, collection, data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	o.ID = doc.ID()
	return &o, nil
}

// RenewSubscription moves the subscription end date and tier of an organization.
func (r *Repository) RenewSubscription(ctx context.Context, orgID, tier string, until time.Time) (*models.Organization, error) {
	org, err := orgPath(orgID)
	if err != nil {
		return nil, err
	}
	if tier == "" {
		return nil, fmt.Errorf("%w: subscription tier is required", validate.ErrInvalid)
	}
	if !until.After(r.now()) {
		return nil, fmt.Errorf("%w: subscription end date must be in the future", validate.ErrInvalid)
	}

	err = r.docs.Update(ctx, org, map[string]any{
		"subscriptionTier":    tier,
		"subscriptionEndDate": until.UTC(),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrOrganizationNotFound, orgID)
		}
		return nil, fmt.Errorf("failed to renew subscription: %w", err)
	}

	return r.GetOrganization(ctx, orgID)
}
