package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/period"
	"github.com/wolfeidau/casework/internal/records"
)

// ProgramResult is the program-specific monthly report.
type ProgramResult struct {
	Month                  period.Month    `json:"month"`
	Program                string          `json:"program"`
	ProgramID              string          `json:"programId"`
	Services               []CategoryCount `json:"services"`
	Locations              []CategoryCount `json:"locations"`
	UniqueParticipantCount int             `json:"uniqueParticipantCount"`
}

func (r *ProgramResult) Kind() models.ReportKind { return models.ReportProgram }
func (r *ProgramResult) Period() period.Month    { return r.Month }

// ProgramSpecific reports on the participants currently assigned to a program.
//
// A participant qualifies when their latest program record assigns the program and
// their last engagement falls in the month. Every service entry in a qualifying
// participant's history adds one, and their current location adds one.
func (e *Engine) ProgramSpecific(ctx context.Context, orgID, programName string, month period.Month) (*ProgramResult, error) {
	ctx, finish, err := e.begin(ctx, models.ReportProgram, orgID, month)
	if err != nil {
		return nil, err
	}
	res, err := e.programSpecific(ctx, orgID, programName, month)
	finish(err)
	return res, err
}

func (e *Engine) programSpecific(ctx context.Context, orgID, programName string, month period.Month) (*ProgramResult, error) {
	program, err := e.source.FindProgramByName(ctx, orgID, programName)
	if err != nil {
		if errors.Is(err, records.ErrCatalogItemNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrProgramNotFound, programName)
		}
		return nil, err
	}

	catalogs, err := e.catalogs(ctx, orgID, models.CatalogServices, models.CatalogLocations)
	if err != nil {
		return nil, err
	}

	snapshots, err := e.walk(ctx, orgID, needs{services: true, program: true, location: true, engagement: true})
	if err != nil {
		return nil, err
	}

	window := month.Window(e.loc)
	serviceCounts := make(map[string]int)
	locationCounts := make(map[string]int)
	active := make(map[string]struct{})

	for _, s := range snapshots {
		current, ok := s.program.Current()
		if !ok || current.ProgramID != program.ID {
			continue
		}
		if !e.engagedIn(s.engagement, window, s.participant.ID) {
			continue
		}

		active[s.participant.ID] = struct{}{}
		for _, rec := range s.services {
			for _, entry := range rec.Services {
				serviceCounts[entry.ServiceID]++
			}
		}
		if s.location != nil && s.location.Location != "" {
			locationCounts[s.location.Location]++
		}
	}

	return &ProgramResult{
		Month:                  month,
		Program:                program.Name,
		ProgramID:              program.ID,
		Services:               zeroFill(catalogs[models.CatalogServices], serviceCounts, byID),
		Locations:              zeroFill(catalogs[models.CatalogLocations], locationCounts, byName),
		UniqueParticipantCount: len(active),
	}, nil
}
