package report

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

// needs selects the sub-collections a variant reads per participant.
type needs struct {
	services     bool
	program      bool
	location     bool
	engagement   bool
	demographics bool
}

// snapshot is everything read for one participant.
type snapshot struct {
	participant  models.Participant
	services     []models.ServiceRecord
	program      *models.ProgramRecord
	location     *models.LocationRecord
	engagement   *models.LastEngagement
	demographics *models.Demographics
}

// walk reads the roster and then every participant's sub-collections.
// Snapshots are returned in roster order.
func (e *Engine) walk(ctx context.Context, orgID string, n needs) ([]snapshot, error) {
	roster, err := e.source.ListParticipants(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	telemetry.GetMetrics().ParticipantsScanned.Add(ctx, int64(len(roster)))

	snapshots := make([]snapshot, len(roster))

	if e.concurrency < 2 {
		for i, p := range roster {
			s, err := e.read(ctx, orgID, p, n)
			if err != nil {
				return nil, err
			}
			snapshots[i] = s
		}
		return snapshots, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, p := range roster {
		g.Go(func() error {
			s, err := e.read(gctx, orgID, p, n)
			if err != nil {
				return err
			}
			snapshots[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (e *Engine) read(ctx context.Context, orgID string, p models.Participant, n needs) (snapshot, error) {
	if err := ctx.Err(); err != nil {
		return snapshot{}, err
	}

	started := time.Now()
	defer func() {
		telemetry.GetMetrics().ParticipantReadDuration.Record(ctx, telemetry.Millis(time.Since(started)))
	}()

	s := snapshot{participant: p}
	var err error

	if n.services {
		if s.services, err = e.source.ServiceRecords(ctx, orgID, p.ID); err != nil {
			return snapshot{}, fmt.Errorf("failed to read services of participant %s: %w", p.ID, err)
		}
	}
	if n.program {
		if s.program, err = e.source.LatestProgram(ctx, orgID, p.ID); err != nil {
			return snapshot{}, fmt.Errorf("failed to read program of participant %s: %w", p.ID, err)
		}
	}
	if n.location {
		if s.location, err = e.source.LatestLocation(ctx, orgID, p.ID); err != nil {
			return snapshot{}, fmt.Errorf("failed to read location of participant %s: %w", p.ID, err)
		}
	}
	if n.engagement {
		if s.engagement, err = e.source.LastEngagement(ctx, orgID, p.ID); err != nil {
			return snapshot{}, fmt.Errorf("failed to read last engagement of participant %s: %w", p.ID, err)
		}
	}
	if n.demographics {
		if s.demographics, err = e.source.Demographics(ctx, orgID, p.ID); err != nil {
			return snapshot{}, fmt.Errorf("failed to read demographics of participant %s: %w", p.ID, err)
		}
	}

	return s, nil
}

// catalogs reads the catalogs a variant enumerates.
func (e *Engine) catalogs(ctx context.Context, orgID string, kinds ...models.CatalogKind) (map[models.CatalogKind][]models.CatalogItem, error) {
	out := make(map[models.CatalogKind][]models.CatalogItem, len(kinds))
	for _, kind := range kinds {
		items, err := e.source.ListCatalog(ctx, orgID, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", kind, err)
		}
		out[kind] = items
	}
	return out, nil
}
