package records

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/period"
	"github.com/wolfeidau/casework/internal/store"
	"github.com/wolfeidau/casework/internal/validate"
)

// ListRecapTypes returns every recap type of a tenant ordered by id.
func (r *Repository) ListRecapTypes(ctx context.Context, orgID string) ([]models.RecapType, error) {
	org, err := orgPath(orgID)
	if err != nil {
		return nil, err
	}
	docs, err := r.docs.GetAll(ctx, org.Collection(store.CollectionRecapTypes))
	if err != nil {
		return nil, fmt.Errorf("failed to list recap types: %w", err)
	}
	return decodeAll(docs, func(t *models.RecapType, id string) { t.ID = id })
}

// GetRecapType returns a recap type or ErrRecapTypeNotFound.
func (r *Repository) GetRecapType(ctx context.Context, orgID, id string) (*models.RecapType, error) {
	org, err := orgPath(orgID)
	if err != nil {
		return nil, err
	}
	rt, err := getOptional[models.RecapType](ctx, r.docs, org.Collection(store.CollectionRecapTypes).Doc(id))
	if err != nil {
		return nil, err
	}
	if rt == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecapTypeNotFound, id)
	}
	rt.ID = id
	return rt, nil
}

// ListRecaps returns every recap of a tenant ordered by id.
func (r *Repository) ListRecaps(ctx context.Context, orgID string) ([]models.Recap, error) {
	org, err := orgPath(orgID)
	if err != nil {
		return nil, err
	}
	docs, err := r.docs.GetAll(ctx, org.Collection(store.CollectionRecaps))
	if err != nil {
		return nil, fmt.Errorf("failed to list recaps: %w", err)
	}
	return decodeAll(docs, func(rc *models.Recap, id string) { rc.ID = id })
}

// CreateRecapType validates and stores a recap form schema.
func (r *Repository) CreateRecapType(ctx context.Context, orgID string, rt models.RecapType) (*models.RecapType, error) {
	org, err := orgPath(orgID)
	if err != nil {
		return nil, err
	}
	if err := r.validator.Struct(rt); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(rt.Fields))
	for _, f := range rt.Fields {
		if seen[f.ID] {
			return nil, fmt.Errorf("%w: duplicate field id %q", validate.ErrInvalid, f.ID)
		}
		seen[f.ID] = true
	}

	rt.CreatedAt = models.NewTimestamp(r.now())
	id, err := r.add(ctx, org.Collection(store.CollectionRecapTypes), rt)
	if err != nil {
		return nil, fmt.Errorf("failed to create recap type: %w", err)
	}
	rt.ID = id
	return &rt, nil
}

// CreateRecap validates a recap against its type and stores it. The type name is
// denormalized onto the recap.
func (r *Repository) CreateRecap(ctx context.Context, orgID string, rc models.Recap) (*models.Recap, error) {
	org, err := orgPath(orgID)
	if err != nil {
		return nil, err
	}
	if err := r.validator.Struct(rc); err != nil {
		return nil, err
	}
	if _, err := period.ParseRecapDate(rc.Date, r.loc); err != nil {
		return nil, fmt.Errorf("%w: %v", validate.ErrInvalid, err)
	}

	rt, err := r.GetRecapType(ctx, orgID, rc.RecapTypeID)
	if err != nil {
		return nil, err
	}
	if err := CheckRecapFields(rt, rc.Fields); err != nil {
		return nil, err
	}

	rc.RecapTypeName = rt.Name
	rc.CreatedAt = models.NewTimestamp(r.now())
	id, err := r.add(ctx, org.Collection(store.CollectionRecaps), rc)
	if err != nil {
		return nil, fmt.Errorf("failed to create recap: %w", err)
	}
	rc.ID = id
	return &rc, nil
}

// CheckRecapFields checks values against a recap type: required fields are present,
// numbers are numeric, dates parse, multi-select values come from the options and
// no unknown fields are supplied.
func CheckRecapFields(rt *models.RecapType, fields map[string]any) error {
	for id := range fields {
		if _, ok := rt.Field(id); !ok {
			return fmt.Errorf("%w: unknown field %q", validate.ErrInvalid, id)
		}
	}

	for _, f := range rt.Fields {
		v, ok := fields[f.ID]
		if !ok || isEmpty(v) {
			if f.Required {
				return fmt.Errorf("%w: %s is required", validate.ErrInvalid, f.Name)
			}
			continue
		}

		switch f.Type {
		case models.FieldNumber:
			if _, ok := NumericValue(v); !ok {
				return fmt.Errorf("%w: %s must be a number", validate.ErrInvalid, f.Name)
			}
		case models.FieldDate:
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%w: %s must be a date", validate.ErrInvalid, f.Name)
			}
			if _, err := period.ParseRecapDate(s, nil); err != nil {
				return fmt.Errorf("%w: %s must be a date", validate.ErrInvalid, f.Name)
			}
		case models.FieldMultiSelect:
			values, ok := toStrings(v)
			if !ok {
				return fmt.Errorf("%w: %s must be a list", validate.ErrInvalid, f.Name)
			}
			for _, s := range values {
				if !slices.Contains(f.Options, s) {
					return fmt.Errorf("%w: %q is not an option of %s", validate.ErrInvalid, s, f.Name)
				}
			}
		case models.FieldText:
			if _, ok := v.(string); !ok {
				return fmt.Errorf("%w: %s must be text", validate.ErrInvalid, f.Name)
			}
		}
	}
	return nil
}

// NumericValue coerces a recap field value to a finite number. Numbers and numeric
// strings qualify; lists, booleans, empty strings and other text do not.
func NumericValue(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}

func toStrings(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
