// Package encoder turns a FormState into the flat SubmissionRecord the remote
// sheet expects. Every canonical column is always present; unset values are
// empty strings. The encoder does not validate and never mutates its input.
package encoder

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/fieldreport/internal/client/models"
	"github.com/google/uuid"
)

// TimestampLayout is ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

const (
	tagSeparator = ";"
	rowSeparator = "; "
	valueSep     = ":"
)

type Encoder struct {
	schema *Schema
	newID  func() (string, error)
	now    func() time.Time
}

type Option func(*Encoder)

func WithIDFunc(fn func() (string, error)) Option {
	return func(e *Encoder) { e.newID = fn }
}

func WithClock(now func() time.Time) Option {
	return func(e *Encoder) { e.now = now }
}

func newUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func NewEncoder(schema *Schema, opts ...Option) *Encoder {
	if schema == nil {
		schema = DefaultSchema()
	}
	e := &Encoder{schema: schema, newID: newUUID, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Encoder) Schema() *Schema {
	return e.schema
}

// Encode builds a SubmissionRecord from state. The id and timestamp are
// assigned here and never recomputed.
func (e *Encoder) Encode(state *models.FormState) (models.SubmissionRecord, error) {
	id, err := e.newID()
	if err != nil {
		return models.SubmissionRecord{}, fmt.Errorf("generate id: %w", err)
	}

	columns := e.schema.Columns()
	fields := make(map[string]string, len(columns))
	for _, col := range columns {
		fields[col] = ""
	}

	fields["id"] = id
	fields["timestamp"] = e.now().UTC().Format(TimestampLayout)
	fields["category"] = state.Category
	fields["subcategory"] = state.Subcategory
	fields["location_mode"] = state.Location.Mode
	switch state.Location.Mode {
	case models.LocationCoords:
		fields["latitude"] = formatFloat(state.Location.Latitude)
		fields["longitude"] = formatFloat(state.Location.Longitude)
		fields["accuracy_m"] = formatFloat(state.Location.AccuracyM)
	case models.LocationPlace:
		fields["place_id"] = state.Location.PlaceID
	}
	fields["tags"] = strings.Join(state.TagList(), tagSeparator)
	fields["notes"] = state.Notes
	fields["photo_count"] = strconv.Itoa(len(state.Attachments))

	for _, name := range e.schema.Fields {
		fields[name] = state.Fields[name]
	}
	for _, name := range e.schema.Tables {
		fields[name] = formatTable(state.Tables[name])
	}

	attachments := make([]models.EncodedAttachment, len(state.Attachments))
	for i, a := range state.Attachments {
		attachments[i] = encodeAttachment(a)
	}

	return models.SubmissionRecord{
		ID:          id,
		Columns:     columns,
		Fields:      fields,
		Attachments: attachments,
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatTable renders rows as "item:v1[:v2]" joined by "; ".
func formatTable(rows []models.TableRow) string {
	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		parts = append(parts, strings.Join(append([]string{r.Item}, r.Values...), valueSep))
	}
	return strings.Join(parts, rowSeparator)
}

func encodeAttachment(a models.Attachment) models.EncodedAttachment {
	return models.EncodedAttachment{
		Name:     a.Name,
		MimeType: sniffMime(a.Name, a.Data),
		Data:     base64.StdEncoding.EncodeToString(a.Data),
	}
}

// sniffMime prefers the content signature and falls back to the extension.
func sniffMime(name string, data []byte) string {
	ct := http.DetectContentType(data)
	if ct != "application/octet-stream" && !strings.HasPrefix(ct, "text/plain") {
		return ct
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return byExt
	}
	return ct
}
