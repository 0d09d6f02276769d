package catalog

import (
	"context"
	"fmt"

	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/saga"
	"github.com/wolfeidau/casework/internal/store"
)

// rewriter returns the fields to update on one history document, or nil when the
// document does not mention the renamed item.
type rewriter func(data map[string]any) map[string]any

// Plan lists the participant history writes a rename needs. Services and programs
// are matched by id inside their entry arrays; locations carry only a name, so
// location records are matched on the old name.
func (s *Service) Plan(ctx context.Context, orgID string, kind models.CatalogKind, id, oldName, newName string) ([]saga.Write, error) {
	var (
		sub     string
		rewrite rewriter
	)
	switch kind {
	case models.CatalogServices:
		sub = store.CollectionParticipantServices
		rewrite = rewriteEntries("services", "serviceId", "serviceName", id, newName)
	case models.CatalogPrograms:
		sub = store.CollectionParticipantProgram
		rewrite = rewriteEntries("programs", "programId", "programName", id, newName)
	case models.CatalogLocations:
		sub = store.CollectionParticipantLocation
		rewrite = func(data map[string]any) map[string]any {
			if name, _ := data["location"].(string); name == oldName {
				return map[string]any{"location": newName}
			}
			return nil
		}
	default:
		return nil, fmt.Errorf("unknown catalog %q", kind)
	}

	participants, err := s.repo.ListParticipants(ctx, orgID)
	if err != nil {
		return nil, err
	}

	var writes []saga.Write
	for _, p := range participants {
		collection := store.Org(orgID).Collection(store.CollectionParticipants).Doc(p.ID).Collection(sub)
		docs, err := s.docs.GetAll(ctx, collection)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s of participant %s: %w", sub, p.ID, err)
		}
		for _, doc := range docs {
			if update := rewrite(doc.Data); update != nil {
				writes = append(writes, saga.Write{Op: saga.OpUpdate, Path: doc.Path.String(), Data: update})
			}
		}
	}
	return writes, nil
}

// rewriteEntries renames matching elements of an array of entry objects. Other
// fields of each entry are kept as stored.
func rewriteEntries(field, idKey, nameKey, id, newName string) rewriter {
	return func(data map[string]any) map[string]any {
		entries, ok := data[field].([]any)
		if !ok {
			return nil
		}

		changed := false
		out := make([]any, len(entries))
		for i, e := range entries {
			out[i] = e
			entry, ok := e.(map[string]any)
			if !ok || entry[idKey] != id || entry[nameKey] == newName {
				continue
			}
			renamed := make(map[string]any, len(entry))
			for k, v := range entry {
				renamed[k] = v
			}
			renamed[nameKey] = newName
			out[i] = renamed
			changed = true
		}

		if !changed {
			return nil
		}
		return map[string]any{field: out}
	}
}
