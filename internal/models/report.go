package models

import (
	"fmt"
)

// ReportKind identifies one of the monthly report variants.
type ReportKind string

const (
	ReportOrganization ReportKind = "organization"
	ReportProgram      ReportKind = "programs"
	ReportDemographics ReportKind = "demographics"
	ReportRecaps       ReportKind = "recaps"
)

// ReportKinds lists every report kind in display order.
var ReportKinds = []ReportKind{ReportOrganization, ReportProgram, ReportDemographics, ReportRecaps}

// ParseReportKind accepts the archive folder names plus a few aliases used by the UI.
func ParseReportKind(s string) (ReportKind, error) {
	switch s {
	case "organization", "org", "ORGANIZATION":
		return ReportOrganization, nil
	case "programs", "program", "PROGRAM":
		return ReportProgram, nil
	case "demographics":
		return ReportDemographics, nil
	case "recaps", "RECAPS":
		return ReportRecaps, nil
	}
	return "", fmt.Errorf("unknown report kind %q", s)
}

// MarkerField is the flag set on the monthly marker when this kind is archived.
func (k ReportKind) MarkerField() string {
	switch k {
	case ReportOrganization:
		return "organizationReport"
	case ReportProgram:
		return "programReports"
	case ReportDemographics:
		return "demographicsReport"
	case ReportRecaps:
		return "recapsReport"
	}
	return ""
}

// MonthlyReportMarker records which report kinds have been archived for a month.
type MonthlyReportMarker struct {
	ID                 string            `json:"-"`
	OrganizationReport bool              `json:"organizationReport,omitempty"`
	ProgramReports     bool              `json:"programReports,omitempty"`
	DemographicsReport bool              `json:"demographicsReport,omitempty"`
	RecapsReport       bool              `json:"recapsReport,omitempty"`
	Checksums          map[string]string `json:"checksums,omitempty"`
	LastUpdated        Timestamp         `json:"lastUpdated"`
}

// Archived reports whether the given kind has been archived.
func (m *MonthlyReportMarker) Archived(kind ReportKind) bool {
	switch kind {
	case ReportOrganization:
		return m.OrganizationReport
	case ReportProgram:
		return m.ProgramReports
	case ReportDemographics:
		return m.DemographicsReport
	case ReportRecaps:
		return m.RecapsReport
	}
	return false
}
