// Package models holds the collector's view of a submitted record.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	FieldID          = "id"
	FieldCategory    = "category"
	FieldAttachments = "attachments"
)

var ErrMalformed = errors.New("malformed record")

// Attachment is one photo; Data is empty when the bytes travel as a
// separate multipart part.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Submission is a decoded record: every column but "attachments" is a
// string-valued field.
type Submission struct {
	ID          string
	Category    string
	Fields      map[string]string
	Attachments []Attachment
	ReceivedAt  time.Time
}

// DecodeSubmission parses a record body. Every value except "attachments"
// must be a string and "id" must be present.
func DecodeSubmission(b []byte) (*Submission, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	s := &Submission{Fields: make(map[string]string, len(raw))}
	for k, v := range raw {
		if k == FieldAttachments {
			if err := json.Unmarshal(v, &s.Attachments); err != nil {
				return nil, fmt.Errorf("%w: attachments: %w", ErrMalformed, err)
			}
			continue
		}
		var str string
		if err := json.Unmarshal(v, &str); err != nil {
			return nil, fmt.Errorf("%w: field %q is not a string", ErrMalformed, k)
		}
		s.Fields[k] = str
	}

	s.ID = s.Fields[FieldID]
	if s.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformed)
	}
	s.Category = s.Fields[FieldCategory]
	return s, nil
}
