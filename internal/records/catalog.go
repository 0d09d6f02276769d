package records

import (
	"context"
	"fmt"

	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/store"
)

// CatalogPath returns the collection path of a catalog.
func CatalogPath(orgID string, kind models.CatalogKind) (store.Path, error) {
	org, err := orgPath(orgID)
	if err != nil {
		return store.Path{}, err
	}
	return org.Collection(string(kind)), nil
}

// ListCatalog returns every item of a catalog in creation order.
func (r *Repository) ListCatalog(ctx context.Context, orgID string, kind models.CatalogKind) ([]models.CatalogItem, error) {
	collection, err := CatalogPath(orgID, kind)
	if err != nil {
		return nil, err
	}
	docs, err := r.docs.GetAll(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	items, err := decodeAll(docs, func(c *models.CatalogItem, id string) { c.ID = id })
	if err != nil {
		return nil, err
	}
	models.SortCatalog(items)
	return items, nil
}

// GetCatalogItem returns one catalog item or ErrCatalogItemNotFound.
func (r *Repository) GetCatalogItem(ctx context.Context, orgID string, kind models.CatalogKind, id string) (*models.CatalogItem, error) {
	collection, err := CatalogPath(orgID, kind)
	if err != nil {
		return nil, err
	}
	doc, err := r.docs.Get(ctx, collection.Doc(id))
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrCatalogItemNotFound, kind, id)
		}
		return nil, fmt.Errorf("failed to get %s/%s: %w", kind, id, err)
	}
	var item models.CatalogItem
	if err := doc.DataTo(&item); err != nil {
		return nil, err
	}
	item.ID = id
	return &item, nil
}

// FindProgramByName returns the program with the given name or ErrCatalogItemNotFound.
// When several programs share a name the one with the lowest id wins.
func (r *Repository) FindProgramByName(ctx context.Context, orgID, name string) (*models.CatalogItem, error) {
	collection, err := CatalogPath(orgID, models.CatalogPrograms)
	if err != nil {
		return nil, err
	}
	docs, err := r.docs.Query(ctx, collection, store.Query{}.Where("name", name).WithLimit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to find program %q: %w", name, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: program %q", ErrCatalogItemNotFound, name)
	}
	var item models.CatalogItem
	if err := docs[0].DataTo(&item); err != nil {
		return nil, err
	}
	item.ID = docs[0].ID()
	return &item, nil
}
