package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/period"
	"github.com/wolfeidau/casework/internal/store"
	"github.com/wolfeidau/casework/internal/validate"
)

// ListParticipants returns the whole roster of a tenant ordered by id.
func (r *Repository) ListParticipants(ctx context.Context, orgID string) ([]models.Participant, error) {
	org, err := orgPath(orgID)
	if err != nil {
		return nil, err
	}
	docs, err := r.docs.GetAll(ctx, org.Collection(store.CollectionParticipants))
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return decodeAll(docs, func(p *models.Participant, id string) { p.ID = id })
}

// GetParticipant returns a participant or ErrParticipantNotFound.
func (r *Repository) GetParticipant(ctx context.Context, orgID, participantID string) (*models.Participant, error) {
	p, err := participantPath(orgID, participantID)
	if err != nil {
		return nil, err
	}
	participant, err := getOptional[models.Participant](ctx, r.docs, p)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		return nil, ErrParticipantNotFound
	}
	participant.ID = participantID
	return participant, nil
}

// ServiceRecords returns every service engagement of a participant, oldest first.
func (r *Repository) ServiceRecords(ctx context.Context, orgID, participantID string) ([]models.ServiceRecord, error) {
	p, err := participantPath(orgID, participantID)
	if err != nil {
		return nil, err
	}
	docs, err := r.docs.Query(ctx, p.Collection(store.CollectionParticipantServices), store.Query{}.OrderByField("createdAt", false))
	if err != nil {
		return nil, fmt.Errorf("failed to list service records: %w", err)
	}
	return decodeAll(docs, func(s *models.ServiceRecord, id string) { s.ID = id })
}

// ProgramHistory returns the program assignment log of a participant, oldest first.
func (r *Repository) ProgramHistory(ctx context.Context, orgID, participantID string) ([]models.ProgramRecord, error) {
	p, err := participantPath(orgID, participantID)
	if err != nil {
		return nil, err
	}
	docs, err := r.docs.Query(ctx, p.Collection(store.CollectionParticipantProgram), store.Query{}.OrderByField("createdAt", false))
	if err != nil {
		return nil, fmt.Errorf("failed to list program history: %w", err)
	}
	return decodeAll(docs, func(s *models.ProgramRecord, id string) { s.ID = id })
}

// LocationHistory returns the location log of a participant, oldest first.
func (r *Repository) LocationHistory(ctx context.Context, orgID, participantID string) ([]models.LocationRecord, error) {
	p, err := participantPath(orgID, participantID)
	if err != nil {
		return nil, err
	}
	docs, err := r.docs.Query(ctx, p.Collection(store.CollectionParticipantLocation), store.Query{}.OrderByField("createdAt", false))
	if err != nil {
		return nil, fmt.Errorf("failed to list location history: %w", err)
	}
	return decodeAll(docs, func(s *models.LocationRecord, id string) { s.ID = id })
}

// LatestProgram returns the current program record, or nil when the participant has none.
func (r *Repository) LatestProgram(ctx context.Context, orgID, participantID string) (*models.ProgramRecord, error) {
	history, err := r.ProgramHistory(ctx, orgID, participantID)
	if err != nil {
		return nil, err
	}
	latest, _ := models.LatestProgram(history)
	return latest, nil
}

// LatestLocation returns the current location record, or nil when the participant has none.
func (r *Repository) LatestLocation(ctx context.Context, orgID, participantID string) (*models.LocationRecord, error) {
	history, err := r.LocationHistory(ctx, orgID, participantID)
	if err != nil {
		return nil, err
	}
	latest, _ := models.LatestLocation(history)
	return latest, nil
}

// LastEngagement returns the engagement marker, or nil when none was ever written.
func (r *Repository) LastEngagement(ctx context.Context, orgID, participantID string) (*models.LastEngagement, error) {
	p, err := participantPath(orgID, participantID)
	if err != nil {
		return nil, err
	}
	return getOptional[models.LastEngagement](ctx, r.docs, p.Collection(store.CollectionLastEngagement).Doc(store.CurrentDoc))
}

// Demographics returns the demographics record, or nil when none exists.
func (r *Repository) Demographics(ctx context.Context, orgID, participantID string) (*models.Demographics, error) {
	p, err := participantPath(orgID, participantID)
	if err != nil {
		return nil, err
	}
	return getOptional[models.Demographics](ctx, r.docs, p.Collection(store.CollectionDemographics).Doc(store.CurrentDoc))
}

// Notes returns a participant's notes, newest first.
func (r *Repository) Notes(ctx context.Context, orgID, participantID string) ([]models.Note, error) {
	p, err := participantPath(orgID, participantID)
	if err != nil {
		return nil, err
	}
	docs, err := r.docs.Query(ctx, p.Collection(store.CollectionNotes), store.Query{}.OrderByField("createdAt", true))
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return decodeAll(docs, func(n *models.Note, id string) { n.ID = id })
}

// CreateParticipant adds a participant to the roster.
func (r *Repository) CreateParticipant(ctx context.Context, orgID string, p models.Participant) (*models.Participant, error) {
	org, err := orgPath(orgID)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = models.NewTimestamp(r.now())

	data, err := store.Encode(p)
	if err != nil {
		return nil, err
	}

	collection := org.Collection(store.CollectionParticipants)
	var doc store.Path
	if p.ID != "" {
		doc = collection.Doc(p.ID)
		err = r.docs.Set(ctx, doc, data)
	} else {
		doc, err = r.docs.Add(ctx, collection, data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create participant: %w", err)
	}

	p.ID = doc.ID()
	return &p, nil
}

// RecordServices appends a service engagement and updates the engagement marker.
func (r *Repository) RecordServices(ctx context.Context, orgID, participantID string, entries []models.ServiceEntry) (*models.ServiceRecord, error) {
	p, err := participantPath(orgID, participantID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: at least one service is required", validate.ErrInvalid)
	}

	rec := models.ServiceRecord{CreatedAt: models.NewTimestamp(r.now()), Services: entries}
	id, err := r.add(ctx, p.Collection(store.CollectionParticipantServices), rec)
	if err != nil {
		return nil, fmt.Errorf("failed to record services: %w", err)
	}
	rec.ID = id

	if err := r.touch(ctx, p, models.EngagementServices); err != nil {
		return nil, err
	}
	return &rec, nil
}

// AssignProgram appends a program assignment for a catalog program and updates the engagement marker.
func (r *Repository) AssignProgram(ctx context.Context, orgID, participantID, programID string) (*models.ProgramRecord, error) {
	p, err := participantPath(orgID, participantID)
	if err != nil {
		return nil, err
	}
	program, err := r.GetCatalogItem(ctx, orgID, models.CatalogPrograms, programID)
	if err != nil {
		return nil, err
	}

	now := r.now()
	rec := models.ProgramRecord{
		CreatedAt: models.NewTimestamp(now),
		Programs: []models.ProgramEntry{{
			ProgramID:   program.ID,
			ProgramName: program.Name,
			AssignedAt:  now.In(r.loc).Format("2006-01-02"),
		}},
	}
	id, err := r.add(ctx, p.Collection(store.CollectionParticipantProgram), rec)
	if err != nil {
		return nil, fmt.Errorf("failed to assign program: %w", err)
	}
	rec.ID = id

	if err := r.touch(ctx, p, models.EngagementProgram); err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecordLocation appends a location event and updates the engagement marker.
func (r *Repository) RecordLocation(ctx context.Context, orgID, participantID, location string) (*models.LocationRecord, error) {
	p, err := participantPath(orgID, participantID)
	if err != nil {
		return nil, err
	}
	if location == "" {
		return nil, fmt.Errorf("%w: location is required", validate.ErrInvalid)
	}

	rec := models.LocationRecord{CreatedAt: models.NewTimestamp(r.now()), Location: location}
	id, err := r.add(ctx, p.Collection(store.CollectionParticipantLocation), rec)
	if err != nil {
		return nil, fmt.Errorf("failed to record location: %w", err)
	}
	rec.ID = id

	if err := r.touch(ctx, p, models.EngagementLocation); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpsertDemographics merges demographic fields into the participant's single record.
func (r *Repository) UpsertDemographics(ctx context.Context, orgID, participantID string, d models.Demographics) error {
	p, err := participantPath(orgID, participantID)
	if err != nil {
		return err
	}
	data, err := store.Encode(d)
	if err != nil {
		return err
	}
	if err := r.docs.Set(ctx, p.Collection(store.CollectionDemographics).Doc(store.CurrentDoc), data, store.WithMerge()); err != nil {
		return fmt.Errorf("failed to save demographics: %w", err)
	}
	return nil
}

// AddNote appends a staff note and updates the engagement marker.
func (r *Repository) AddNote(ctx context.Context, orgID, participantID, text, createdBy string) (*models.Note, error) {
	p, err := participantPath(orgID, participantID)
	if err != nil {
		return nil, err
	}

	note := models.Note{Text: text, CreatedBy: createdBy, CreatedAt: models.NewTimestamp(r.now())}
	if err := r.validator.Struct(note); err != nil {
		return nil, err
	}

	id, err := r.add(ctx, p.Collection(store.CollectionNotes), note)
	if err != nil {
		return nil, fmt.Errorf("failed to add note: %w", err)
	}
	note.ID = id

	if err := r.touch(ctx, p, models.EngagementNotes); err != nil {
		return nil, err
	}
	return &note, nil
}

// SetLastEngagement overwrites the engagement marker. Used by imports and tests to
// backdate activity.
func (r *Repository) SetLastEngagement(ctx context.Context, orgID, participantID string, marker models.LastEngagement) error {
	p, err := participantPath(orgID, participantID)
	if err != nil {
		return err
	}
	if marker.UpdatedAt.IsZero() {
		marker.UpdatedAt = models.NewTimestamp(r.now())
	}
	data, err := store.Encode(marker)
	if err != nil {
		return err
	}
	if err := r.docs.Set(ctx, p.Collection(store.CollectionLastEngagement).Doc(store.CurrentDoc), data); err != nil {
		return fmt.Errorf("failed to save last engagement: %w", err)
	}
	return nil
}

// touch records that something happened for the participant today. It is a
// separate write from the record itself, so a failure here leaves the record in place.
func (r *Repository) touch(ctx context.Context, participant store.Path, kind string) error {
	now := r.now()
	marker := models.LastEngagement{
		Date:      period.FormatEngagementDate(now.In(r.loc)),
		Type:      kind,
		UpdatedAt: models.NewTimestamp(now),
	}
	data, err := store.Encode(marker)
	if err != nil {
		return err
	}
	err = r.docs.Set(ctx, participant.Collection(store.CollectionLastEngagement).Doc(store.CurrentDoc), data)
	if err != nil {
		return fmt.Errorf("failed to update last engagement: %w", err)
	}
	return nil
}

func (r *Repository) add(ctx context.Context, collection store.Path, v any) (string, error) {
	data, err := store.Encode(v)
	if err != nil {
		return "", err
	}
	doc, err := r.docs.Add(ctx, collection, data)
	if err != nil {
		return "", err
	}
	return doc.ID(), nil
}

// isNotFound reports whether err is a missing document.
func isNotFound(err error) bool {
	return errors.Is(err, store.ErrDocumentNotFound)
}
