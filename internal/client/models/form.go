// Package models defines the client-side data shapes of fieldreport: the
// mutable FormState being composed, its persisted DraftRecord, and the
// immutable SubmissionRecord / PendingEntry produced for transport.
package models

import (
	"encoding/json"
	"sort"
	"time"
)

// Location modes. Coordinates and a named place are mutually exclusive.
const (
	LocationCoords = "coords"
	LocationPlace  = "place"
)

// Location is either a coordinate fix or a named-place identifier.
type Location struct {
	Mode      string  `json:"mode"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	AccuracyM float64 `json:"accuracy_m"`
	PlaceID   string  `json:"place_id"`
}

// TableRow is one item of a table-shaped category (item -> one or more values).
type TableRow struct {
	Item   string   `json:"item"`
	Values []string `json:"values"`
}

// Attachment is a raw image blob awaiting encoding.
type Attachment struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// TagSet is an unordered set of tag codes. It serializes as a sorted array.
type TagSet map[string]struct{}

func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

func (s *TagSet) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	set := make(TagSet, len(list))
	for _, t := range list {
		set[t] = struct{}{}
	}
	*s = set
	return nil
}

// List returns the tags in sorted order.
func (s TagSet) List() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// FormState is the entry currently being composed. It has a single writer
// (the CLI loop) and is passed explicitly to the draft store and encoder.
type FormState struct {
	Location    Location              `json:"location"`
	Category    string                `json:"category"`
	Subcategory string                `json:"subcategory"`
	Fields      map[string]string     `json:"fields"`
	Tables      map[string][]TableRow `json:"tables"`
	Tags        TagSet                `json:"tags"`
	Notes       string                `json:"notes"`
	Attachments []Attachment          `json:"attachments"`
}

// NewFormState returns an empty state with all collections initialized.
func NewFormState() *FormState {
	s := &FormState{}
	s.Reset()
	return s
}

// Reset returns s to defaults in place.
func (s *FormState) Reset() {
	*s = FormState{
		Fields: map[string]string{},
		Tables: map[string][]TableRow{},
		Tags:   TagSet{},
	}
}

// Normalize re-initializes nil collections, e.g. after decoding an old draft.
func (s *FormState) Normalize() {
	if s.Fields == nil {
		s.Fields = map[string]string{}
	}
	if s.Tables == nil {
		s.Tables = map[string][]TableRow{}
	}
	if s.Tags == nil {
		s.Tags = TagSet{}
	}
}

func (s *FormState) SetCoords(lat, lon, accuracy float64) {
	s.Location = Location{Mode: LocationCoords, Latitude: lat, Longitude: lon, AccuracyM: accuracy}
}

func (s *FormState) SetPlace(id string) {
	s.Location = Location{Mode: LocationPlace, PlaceID: id}
}

// SetField sets a dynamic scalar field; an empty value removes it.
func (s *FormState) SetField(name, value string) {
	s.Normalize()
	if value == "" {
		delete(s.Fields, name)
		return
	}
	s.Fields[name] = value
}

// SetTableRow replaces the row for item in table, or appends it.
func (s *FormState) SetTableRow(table, item string, values ...string) {
	s.Normalize()
	row := TableRow{Item: item, Values: append([]string(nil), values...)}
	rows := s.Tables[table]
	for i := range rows {
		if rows[i].Item == item {
			rows[i] = row
			return
		}
	}
	s.Tables[table] = append(rows, row)
}

func (s *FormState) AddTag(tag string) {
	s.Normalize()
	s.Tags[tag] = struct{}{}
}

func (s *FormState) RemoveTag(tag string) {
	delete(s.Tags, tag)
}

// TagList returns the tags in sorted order.
func (s *FormState) TagList() []string {
	return s.Tags.List()
}

func (s *FormState) AddAttachment(name string, data []byte) {
	s.Attachments = append(s.Attachments, Attachment{Name: name, Data: data})
}

// DraftRecord is the timestamped snapshot kept in the draft slot.
type DraftRecord struct {
	SavedAt time.Time       `json:"saved_at"`
	State   json.RawMessage `json:"state"`
}
