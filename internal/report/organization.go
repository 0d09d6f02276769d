package report

import (
	"context"

	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/period"
)

// OrganizationResult is the organization-wide monthly report.
type OrganizationResult struct {
	Month                  period.Month    `json:"month"`
	Services               []CategoryCount `json:"services"`
	Programs               []CategoryCount `json:"programs"`
	Locations              []CategoryCount `json:"locations"`
	UniqueParticipantCount int             `json:"uniqueParticipantCount"`
}

func (r *OrganizationResult) Kind() models.ReportKind { return models.ReportOrganization }
func (r *OrganizationResult) Period() period.Month    { return r.Month }

// OrganizationWide counts service deliveries in the month across the whole roster.
//
// A participant is active when any of their service records was created in the
// month; each entry of those records adds its count to the service. Programs and
// locations count every participant's current value, whether or not they were active.
func (e *Engine) OrganizationWide(ctx context.Context, orgID string, month period.Month) (*OrganizationResult, error) {
	ctx, finish, err := e.begin(ctx, models.ReportOrganization, orgID, month)
	if err != nil {
		return nil, err
	}
	res, err := e.organizationWide(ctx, orgID, month)
	finish(err)
	return res, err
}

func (e *Engine) organizationWide(ctx context.Context, orgID string, month period.Month) (*OrganizationResult, error) {
	catalogs, err := e.catalogs(ctx, orgID, models.CatalogServices, models.CatalogPrograms, models.CatalogLocations)
	if err != nil {
		return nil, err
	}

	snapshots, err := e.walk(ctx, orgID, needs{services: true, program: true, location: true})
	if err != nil {
		return nil, err
	}

	window := month.Window(e.loc)
	serviceCounts := make(map[string]int)
	programCounts := make(map[string]int)
	locationCounts := make(map[string]int)
	active := make(map[string]struct{})

	for _, s := range snapshots {
		for _, rec := range s.services {
			if !window.Contains(rec.CreatedAt.Time) {
				continue
			}
			active[s.participant.ID] = struct{}{}
			for _, entry := range rec.Services {
				serviceCounts[entry.ServiceID] += entry.Quantity()
			}
		}

		if current, ok := s.program.Current(); ok {
			programCounts[current.ProgramID]++
		}
		if s.location != nil && s.location.Location != "" {
			locationCounts[s.location.Location]++
		}
	}

	return &OrganizationResult{
		Month:                  month,
		Services:               zeroFill(catalogs[models.CatalogServices], serviceCounts, byID),
		Programs:               zeroFill(catalogs[models.CatalogPrograms], programCounts, byID),
		Locations:              zeroFill(catalogs[models.CatalogLocations], locationCounts, byName),
		UniqueParticipantCount: len(active),
	}, nil
}
