package report

import (
	"cmp"
	"context"
	"slices"

	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/period"
)

// DemographicsResult is the demographics monthly report.
type DemographicsResult struct {
	Month             period.Month    `json:"month"`
	RaceCounts        []CategoryCount `json:"raceCounts"`
	GenderCounts      []CategoryCount `json:"genderCounts"`
	OrientationCounts []CategoryCount `json:"orientationCounts"`
	TotalParticipants int             `json:"totalParticipants"`
}

func (r *DemographicsResult) Kind() models.ReportKind { return models.ReportDemographics }
func (r *DemographicsResult) Period() period.Month    { return r.Month }

// Races returns the race counts keyed by category.
func (r *DemographicsResult) Races() map[string]int { return toMap(r.RaceCounts) }

// Genders returns the gender counts keyed by category.
func (r *DemographicsResult) Genders() map[string]int { return toMap(r.GenderCounts) }

// Orientations returns the sexual orientation counts keyed by category.
func (r *DemographicsResult) Orientations() map[string]int { return toMap(r.OrientationCounts) }

// Demographics tallies the demographics of participants engaged in the month.
// Participants without a demographics record are skipped entirely.
func (e *Engine) Demographics(ctx context.Context, orgID string, month period.Month) (*DemographicsResult, error) {
	ctx, finish, err := e.begin(ctx, models.ReportDemographics, orgID, month)
	if err != nil {
		return nil, err
	}
	res, err := e.demographics(ctx, orgID, month)
	finish(err)
	return res, err
}

func (e *Engine) demographics(ctx context.Context, orgID string, month period.Month) (*DemographicsResult, error) {
	snapshots, err := e.walk(ctx, orgID, needs{engagement: true, demographics: true})
	if err != nil {
		return nil, err
	}

	window := month.Window(e.loc)
	race := make(map[string]int)
	gender := make(map[string]int)
	orientation := make(map[string]int)
	total := 0

	for _, s := range snapshots {
		if s.demographics == nil || !e.engagedIn(s.engagement, window, s.participant.ID) {
			continue
		}
		total++
		increment(race, s.demographics.Race)
		increment(gender, s.demographics.Gender)
		increment(orientation, s.demographics.SexualOrientation)
	}

	return &DemographicsResult{
		Month:             month,
		RaceCounts:        sortedCounts(race),
		GenderCounts:      sortedCounts(gender),
		OrientationCounts: sortedCounts(orientation),
		TotalParticipants: total,
	}, nil
}

func increment(m map[string]int, key string) {
	if key != "" {
		m[key]++
	}
}

func sortedCounts(m map[string]int) []CategoryCount {
	out := make([]CategoryCount, 0, len(m))
	for name, n := range m {
		out = append(out, CategoryCount{Name: name, ParticipantCount: n})
	}
	slices.SortFunc(out, func(a, b CategoryCount) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

func toMap(rows []CategoryCount) map[string]int {
	m := make(map[string]int, len(rows))
	for _, r := range rows {
		m[r.Name] = r.ParticipantCount
	}
	return m
}
