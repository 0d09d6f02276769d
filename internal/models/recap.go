package models

// Recap field types.
const (
	FieldText        = "text"
	FieldNumber      = "number"
	FieldDate        = "date"
	FieldMultiSelect = "multiSelect"
)

// RecapField describes one input of a RecapType form.
type RecapField struct {
	ID       string   `json:"id" validate:"required"`
	Name     string   `json:"name" validate:"required"`
	Type     string   `json:"type" validate:"required,oneof=text number date multiSelect"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty" validate:"required_if=Type multiSelect"`
}

// RecapType is a tenant-defined form schema for outreach/impact events.
type RecapType struct {
	ID        string       `json:"-"`
	Name      string       `json:"name" validate:"required,max=200"`
	Fields    []RecapField `json:"fields" validate:"dive"`
	CreatedAt Timestamp    `json:"createdAt"`
}

// Field returns the field definition with the given id.
func (t *RecapType) Field(id string) (RecapField, bool) {
	for _, f := range t.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return RecapField{}, false
}

// Recap is an instance of a RecapType.
type Recap struct {
	ID            string         `json:"-"`
	Name          string         `json:"name" validate:"required"`
	Date          string         `json:"date" validate:"required"`
	RecapTypeID   string         `json:"recapTypeId" validate:"required"`
	RecapTypeName string         `json:"recapTypeName"`
	Fields        map[string]any `json:"fields"`
	CreatedAt     Timestamp      `json:"createdAt"`
}
