package models

import (
	"cmp"
	"slices"
)

// Participant is a person enrolled in the organization's services.
// Engagement history hangs off the participant document as sub-collections.
type Participant struct {
	ID          string    `json:"-"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	DateOfBirth string    `json:"dateOfBirth"`
	CreatedAt   Timestamp `json:"createdAt"`
}

// ServiceEntry is one service attached to an engagement.
type ServiceEntry struct {
	ServiceID   string `json:"serviceId"`
	ServiceName string `json:"serviceName"`
	Count       int    `json:"count,omitempty"`
}

// Quantity returns the number of deliveries this entry represents; entries written
// without a count represent a single delivery.
func (e ServiceEntry) Quantity() int {
	if e.Count <= 0 {
		return 1
	}
	return e.Count
}

// ServiceRecord is one append-only engagement event attaching zero or more services.
type ServiceRecord struct {
	ID        string         `json:"-"`
	CreatedAt Timestamp      `json:"createdAt"`
	Services  []ServiceEntry `json:"services"`
}

// ProgramEntry is a program assignment inside a ProgramRecord.
type ProgramEntry struct {
	ProgramID   string `json:"programId"`
	ProgramName string `json:"programName"`
	AssignedAt  string `json:"assignedAt"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// ProgramRecord is one append-only program assignment event.
type ProgramRecord struct {
	ID        string         `json:"-"`
	CreatedAt Timestamp      `json:"createdAt"`
	Programs  []ProgramEntry `json:"programs"`
}

// Current returns the program this record assigns, if any.
func (r *ProgramRecord) Current() (ProgramEntry, bool) {
	if r == nil || len(r.Programs) == 0 {
		return ProgramEntry{}, false
	}
	return r.Programs[0], true
}

// LocationRecord is one append-only location event.
type LocationRecord struct {
	ID        string    `json:"-"`
	CreatedAt Timestamp `json:"createdAt"`
	Location  string    `json:"location"`
}

// Demographics is the single mutable demographics record of a participant.
type Demographics struct {
	Age               int    `json:"age,omitempty"`
	Gender            string `json:"gender,omitempty"`
	Race              string `json:"race,omitempty"`
	SexualOrientation string `json:"sexualOrientation,omitempty"`
}

// Engagement types written to LastEngagement.Type.
const (
	EngagementNotes    = "notes"
	EngagementServices = "services"
	EngagementProgram  = "program"
	EngagementLocation = "location"
)

// LastEngagement marks the last time anything was recorded for a participant.
// Date is a MM/DD/YYYY string.
type LastEngagement struct {
	Date      string    `json:"date"`
	Type      string    `json:"type"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// Note is a free-text staff note on a participant.
type Note struct {
	ID        string    `json:"-"`
	Text      string    `json:"text" validate:"required"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
}

// LatestProgram projects the append-only program history onto the current assignment:
// the record with the greatest CreatedAt, ties broken by the greater id.
func LatestProgram(history []ProgramRecord) (*ProgramRecord, bool) {
	if len(history) == 0 {
		return nil, false
	}
	latest := slices.MaxFunc(history, func(a, b ProgramRecord) int {
		return compareEvents(a.CreatedAt, a.ID, b.CreatedAt, b.ID)
	})
	return &latest, true
}

// LatestLocation projects the append-only location history onto the current location.
func LatestLocation(history []LocationRecord) (*LocationRecord, bool) {
	if len(history) == 0 {
		return nil, false
	}
	latest := slices.MaxFunc(history, func(a, b LocationRecord) int {
		return compareEvents(a.CreatedAt, a.ID, b.CreatedAt, b.ID)
	})
	return &latest, true
}

func compareEvents(at Timestamp, aID string, bt Timestamp, bID string) int {
	if c := at.Compare(bt.Time); c != 0 {
		return c
	}
	return cmp.Compare(aID, bID)
}
