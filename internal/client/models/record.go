package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Canonical keys every SubmissionRecord carries.
const (
	FieldID        = "id"
	FieldTimestamp = "timestamp"
	KeyAttachments = "attachments" // reserved: not usable as a column
)

// EncodedAttachment is an attachment ready for transport. Data is standard
// base64.
type EncodedAttachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// SubmissionRecord is the finalized, schema-stable record. Columns holds the
// canonical key order; Fields holds a value for every column.
//
// Its JSON form is a flat object: every column as a string key, in column
// order, followed by "attachments".
type SubmissionRecord struct {
	ID          string
	Columns     []string
	Fields      map[string]string
	Attachments []EncodedAttachment
}

// Get returns the value of a canonical field ("" when unset).
func (r SubmissionRecord) Get(name string) string {
	return r.Fields[name]
}

// WithoutPayloads returns a copy whose attachments keep names and MIME types
// but drop their data.
func (r SubmissionRecord) WithoutPayloads() SubmissionRecord {
	out := r
	out.Attachments = make([]EncodedAttachment, len(r.Attachments))
	for i, a := range r.Attachments {
		out.Attachments[i] = EncodedAttachment{Name: a.Name, MimeType: a.MimeType}
	}
	return out
}

func (r SubmissionRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, col := range r.Columns {
		k, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.Fields[col])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		buf.WriteByte(',')
	}

	att := r.Attachments
	if att == nil {
		att = []EncodedAttachment{}
	}
	a, err := json.Marshal(att)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"attachments":`)
	buf.Write(a)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var errRecordShape = errors.New("submission record must be a flat object of strings")

func (r *SubmissionRecord) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errRecordShape
	}

	out := SubmissionRecord{Fields: map[string]string{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errRecordShape
		}

		if key == KeyAttachments {
			if err := dec.Decode(&out.Attachments); err != nil {
				return fmt.Errorf("attachments: %w", err)
			}
			continue
		}

		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("%w: field %q: %v", errRecordShape, key, err)
		}
		if _, dup := out.Fields[key]; !dup {
			out.Columns = append(out.Columns, key)
		}
		out.Fields[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	out.ID = out.Fields[FieldID]
	*r = out
	return nil
}

// PendingEntry is a SubmissionRecord waiting in the fallback queue. Digest is
// the hex BLAKE2b-256 of the record's JSON at enqueue time.
//
// Attempts and LastError count failed sweep deliveries; they sit outside the
// digest so recording a failure never invalidates the record.
type PendingEntry struct {
	Record    SubmissionRecord `json:"record"`
	StoredAt  time.Time        `json:"stored_at"`
	Digest    string           `json:"digest"`
	Attempts  int              `json:"attempts,omitempty"`
	LastError string           `json:"last_error,omitempty"`
}

// Outcome is the normalized result of one delivery attempt.
type Outcome struct {
	OK         bool
	Message    string
	ServerInfo map[string]any
}
