// Package render lays out report results as single column text PDFs.
package render

import (
	"fmt"
	"strconv"
	"time"

	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/period"
	"github.com/wolfeidau/casework/internal/report"
)

// Font sizes in points.
const (
	TitleSize   = 18
	HeaderSize  = 14
	LineSize    = 14
	DetailSize  = 12
	DefaultFont = "Helvetica"
)

// Document is a renderer independent description of a report.
type Document struct {
	Title       string
	Sections    []Section
	Footer      []string
	GeneratedAt time.Time
}

// Section is a header followed by its lines.
type Section struct {
	Header string
	Lines  []Line
}

// Line is one row of a section. Indent is in millimetres from the left margin and
// Size is in points; zero means LineSize.
type Line struct {
	Text   string
	Indent float64
	Size   float64
}

func countLines(rows []report.CategoryCount) []Line {
	lines := make([]Line, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, Line{Text: fmt.Sprintf("%s: %d", r.Name, r.ParticipantCount)})
	}
	return lines
}

// generatedAt is the last second of the report month, so the same month renders
// the same bytes.
func generatedAt(m period.Month) time.Time {
	return m.End(time.UTC)
}

// OrganizationReport lays out the organization-wide report.
func OrganizationReport(res *report.OrganizationResult) Document {
	return Document{
		Title: "Organization Wide Report",
		Sections: []Section{
			{Header: "Services", Lines: countLines(res.Services)},
			{Header: "Programs", Lines: countLines(res.Programs)},
			{Header: "Locations", Lines: countLines(res.Locations)},
		},
		Footer:      []string{fmt.Sprintf("Un-Duplicated Participants: %d", res.UniqueParticipantCount)},
		GeneratedAt: generatedAt(res.Month),
	}
}

// ProgramReport lays out the program-specific report.
func ProgramReport(res *report.ProgramResult) Document {
	return Document{
		Title: fmt.Sprintf("%s Program Report", res.Program),
		Sections: []Section{
			{Header: "Services", Lines: countLines(res.Services)},
			{Header: "Locations", Lines: countLines(res.Locations)},
		},
		Footer:      []string{fmt.Sprintf("Un-Duplicated Program Participants: %d", res.UniqueParticipantCount)},
		GeneratedAt: generatedAt(res.Month),
	}
}

// DemographicsReport lays out the demographics report.
func DemographicsReport(res *report.DemographicsResult) Document {
	return Document{
		Title: fmt.Sprintf("Demographics Report - %s", res.Month.Label()),
		Sections: []Section{
			{Header: "Race/Ethnicity", Lines: countLines(res.RaceCounts)},
			{Header: "Gender", Lines: countLines(res.GenderCounts)},
			{Header: "Sexual Orientation", Lines: countLines(res.OrientationCounts)},
		},
		Footer:      []string{fmt.Sprintf("Total Participants: %d", res.TotalParticipants)},
		GeneratedAt: generatedAt(res.Month),
	}
}

// RecapsReport lays out the recaps report. The total line is left out for types
// with nothing to sum.
func RecapsReport(res *report.RecapsResult) Document {
	sections := make([]Section, 0, len(res.Summaries))
	for _, s := range res.Summaries {
		lines := []Line{{Text: fmt.Sprintf("Total Events: %d", s.Count), Indent: 10, Size: DetailSize}}
		if s.TotalAmount > 0 {
			lines = append(lines, Line{
				Text:   "Total Amount: " + strconv.FormatFloat(s.TotalAmount, 'f', -1, 64),
				Indent: 10,
				Size:   DetailSize,
			})
		}
		sections = append(sections, Section{Header: s.Type, Lines: lines})
	}
	return Document{
		Title:       "Organization Recaps Report",
		Sections:    sections,
		GeneratedAt: generatedAt(res.Month),
	}
}

// ForResult picks the layout for any report result.
func ForResult(res report.Result) (Document, error) {
	switch r := res.(type) {
	case *report.OrganizationResult:
		return OrganizationReport(r), nil
	case *report.ProgramResult:
		return ProgramReport(r), nil
	case *report.DemographicsResult:
		return DemographicsReport(r), nil
	case *report.RecapsResult:
		return RecapsReport(r), nil
	default:
		return Document{}, fmt.Errorf("no layout for %T", res)
	}
}

// DownloadFilename is the name offered when a report is downloaded directly, for
// example MonthlyReport_March_2024.pdf.
func DownloadFilename(kind models.ReportKind, month period.Month, programName string) string {
	var prefix string
	switch kind {
	case models.ReportOrganization:
		prefix = "MonthlyReport"
	case models.ReportProgram:
		prefix = programName + "Report"
	case models.ReportDemographics:
		prefix = "DemographicsReport"
	case models.ReportRecaps:
		prefix = "RecapsReport"
	default:
		prefix = "Report"
	}
	return fmt.Sprintf("%s_%s_%d.pdf", prefix, month.Name(), month.Year)
}

// ArchiveFilename is the name a report is archived under, for example March2024.pdf.
// It deliberately differs from DownloadFilename.
func ArchiveFilename(month period.Month) string {
	return month.Stem() + ".pdf"
}
