package models

import (
	"cmp"
	"fmt"
	"slices"
)

// CatalogKind identifies one of the tenant-level reference lists.
type CatalogKind string

const (
	CatalogServices  CatalogKind = "services"
	CatalogPrograms  CatalogKind = "programs"
	CatalogLocations CatalogKind = "locations"
)

// ParseCatalogKind validates a catalog kind name.
func ParseCatalogKind(s string) (CatalogKind, error) {
	switch k := CatalogKind(s); k {
	case CatalogServices, CatalogPrograms, CatalogLocations:
		return k, nil
	}
	return "", fmt.Errorf("unknown catalog %q", s)
}

// CatalogItem is a Service, Program or Location. Its name is copied into participant
// history at write time, so renames must be fanned out.
type CatalogItem struct {
	ID        string    `json:"-"`
	Name      string    `json:"name" validate:"required,max=200"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt,omitzero"`
}

// SortCatalog orders items by creation time then id, the order the catalog is
// enumerated in reports.
func SortCatalog(items []CatalogItem) {
	slices.SortFunc(items, func(a, b CatalogItem) int {
		if c := a.CreatedAt.Compare(b.CreatedAt.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
