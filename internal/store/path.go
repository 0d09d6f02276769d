package store

import (
	"fmt"
	"slices"
	"strings"
)

// Collection names used under organizations/{orgId}.
const (
	CollectionOrganizations       = "organizations"
	CollectionParticipants        = "participants"
	CollectionParticipantServices = "participantServices"
	CollectionParticipantProgram  = "participantProgram"
	CollectionParticipantLocation = "participantLocation"
	CollectionDemographics        = "demographics"
	CollectionLastEngagement      = "lastEngagement"
	CollectionNotes               = "notes"
	CollectionServices            = "services"
	CollectionPrograms            = "programs"
	CollectionLocations           = "locations"
	CollectionRecapTypes          = "recapTypes"
	CollectionRecaps              = "recaps"
	CollectionMonthlyReports      = "monthlyReports"
	CollectionOutbox              = "outbox"
	CollectionUsers               = "users"

	// CurrentDoc is the id of single-document sub-collections such as demographics.
	CurrentDoc = "current"
)

// Path is an immutable slash separated document or collection path.
// An odd number of segments addresses a collection, an even number a document.
type Path struct {
	segments []string
}

// Root returns a path from raw segments.
func Root(segments ...string) Path {
	return Path{segments: slices.Clone(segments)}
}

// Org returns the document path of an organization.
func Org(orgID string) Path {
	return Root(CollectionOrganizations, orgID)
}

// ParsePath splits a slash separated path and validates it.
func ParsePath(s string) (Path, error) {
	p := Root(strings.Split(strings.Trim(s, "/"), "/")...)
	if err := p.Validate(); err != nil {
		return Path{}, err
	}
	return p, nil
}

// Collection appends a collection segment.
func (p Path) Collection(name string) Path {
	return p.with(name)
}

// Doc appends a document segment.
func (p Path) Doc(id string) Path {
	return p.with(id)
}

func (p Path) with(segment string) Path {
	segments := make([]string, len(p.segments), len(p.segments)+1)
	copy(segments, p.segments)
	return Path{segments: append(segments, segment)}
}

// Segments returns a copy of the path segments.
func (p Path) Segments() []string {
	return slices.Clone(p.segments)
}

// IsDocument reports whether the path addresses a document.
func (p Path) IsDocument() bool {
	return len(p.segments) > 0 && len(p.segments)%2 == 0
}

// IsCollection reports whether the path addresses a collection.
func (p Path) IsCollection() bool {
	return len(p.segments)%2 == 1
}

// ID returns the last segment.
func (p Path) ID() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Parent returns the path with the last segment removed.
func (p Path) Parent() Path {
	if len(p.segments) == 0 {
		return p
	}
	return Path{segments: slices.Clone(p.segments[:len(p.segments)-1])}
}

// OrgID returns the tenant a path belongs to, or "" for paths outside organizations/.
func (p Path) OrgID() string {
	if len(p.segments) >= 2 && p.segments[0] == CollectionOrganizations {
		return p.segments[1]
	}
	return ""
}

func (p Path) String() string {
	return strings.Join(p.segments, "/")
}

// Validate checks that no segment is empty or contains a slash.
func (p Path) Validate() error {
	if len(p.segments) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	for i, s := range p.segments {
		if s == "" {
			return fmt.Errorf("%w: empty segment %d in %q", ErrInvalidPath, i, p.String())
		}
		if strings.Contains(s, "/") {
			return fmt.Errorf("%w: segment %q contains a slash", ErrInvalidPath, s)
		}
	}
	return nil
}

// ValidateDocument checks that p is a valid document path.
func (p Path) ValidateDocument() error {
	if err := p.Validate(); err != nil {
		return err
	}
	if !p.IsDocument() {
		return fmt.Errorf("%w: %q is not a document path", ErrInvalidPath, p.String())
	}
	return nil
}

// ValidateCollection checks that p is a valid collection path.
func (p Path) ValidateCollection() error {
	if err := p.Validate(); err != nil {
		return err
	}
	if !p.IsCollection() {
		return fmt.Errorf("%w: %q is not a collection path", ErrInvalidPath, p.String())
	}
	return nil
}
