package report

import (
	"cmp"
	"context"
	"maps"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/period"
	"github.com/wolfeidau/casework/internal/records"
)

// RecapSummary totals the recaps of one type.
type RecapSummary struct {
	Type        string  `json:"type"`
	Count       int     `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
}

// RecapsResult is the recaps monthly report.
type RecapsResult struct {
	Month     period.Month   `json:"month"`
	Summaries []RecapSummary `json:"summaries"`
}

func (r *RecapsResult) Kind() models.ReportKind { return models.ReportRecaps }
func (r *RecapsResult) Period() period.Month    { return r.Month }

// Recaps summarises recaps dated in the month per recap type. Every numeric field
// value of a recap is added to its type's total.
func (e *Engine) Recaps(ctx context.Context, orgID string, month period.Month) (*RecapsResult, error) {
	ctx, finish, err := e.begin(ctx, models.ReportRecaps, orgID, month)
	if err != nil {
		return nil, err
	}
	res, err := e.recaps(ctx, orgID, month)
	finish(err)
	return res, err
}

func (e *Engine) recaps(ctx context.Context, orgID string, month period.Month) (*RecapsResult, error) {
	recaps, err := e.source.ListRecaps(ctx, orgID)
	if err != nil {
		return nil, err
	}

	summaries := make(map[string]*RecapSummary)
	for _, rc := range recaps {
		date, err := period.ParseRecapDate(rc.Date, e.loc)
		if err != nil {
			log.Debug().Err(err).Str("recap_id", rc.ID).Msg("ignoring recap with malformed date")
			continue
		}
		if !month.Contains(date, e.loc) {
			continue
		}

		typeName := cmp.Or(rc.RecapTypeName, rc.RecapTypeID)
		summary, ok := summaries[typeName]
		if !ok {
			summary = &RecapSummary{Type: typeName}
			summaries[typeName] = summary
		}

		summary.Count++
		for _, id := range slices.Sorted(maps.Keys(rc.Fields)) {
			if n, ok := records.NumericValue(rc.Fields[id]); ok {
				summary.TotalAmount += n
			}
		}
	}

	out := make([]RecapSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b RecapSummary) int {
		return cmp.Compare(a.Type, b.Type)
	})

	return &RecapsResult{Month: month, Summaries: out}, nil
}
