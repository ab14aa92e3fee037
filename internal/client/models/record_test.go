package models

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() SubmissionRecord {
	return SubmissionRecord{
		ID:      "a3c1c9a4-0000-4000-8000-000000000001",
		Columns: []string{"id", "timestamp", "category", "tags", "notes"},
		Fields: map[string]string{
			"id":        "a3c1c9a4-0000-4000-8000-000000000001",
			"timestamp": "2026-01-02T03:04:05.000Z",
			"category":  "streetlight",
			"tags":      "urgent",
			"notes":     "",
		},
		Attachments: []EncodedAttachment{{Name: "a.jpg", MimeType: "image/jpeg", Data: "/9j/"}},
	}
}

func TestSubmissionRecord_MarshalIsFlatAndOrdered(t *testing.T) {
	b, err := json.Marshal(sampleRecord())
	require.NoError(t, err)

	want := `{"id":"a3c1c9a4-0000-4000-8000-000000000001","timestamp":"2026-01-02T03:04:05.000Z",` +
		`"category":"streetlight","tags":"urgent","notes":"",` +
		`"attachments":[{"name":"a.jpg","mime_type":"image/jpeg","data":"/9j/"}]}`
	assert.Equal(t, want, string(b))
}

func TestSubmissionRecord_RoundTrip(t *testing.T) {
	rec := sampleRecord()
	b, err := json.Marshal(rec)
	require.NoError(t, err)

	var got SubmissionRecord
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Empty(t, cmp.Diff(rec, got))

	again, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(again), "re-encoding must be byte-identical")
}

func TestSubmissionRecord_EmptyAttachments(t *testing.T) {
	rec := SubmissionRecord{ID: "x", Columns: []string{"id"}, Fields: map[string]string{"id": "x"}}
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"x","attachments":[]}`, string(b))
}

func TestSubmissionRecord_UnmarshalRejectsNested(t *testing.T) {
	tests := []string{
		`[]`,
		`{"id":1}`,
		`{"id":"x","fields":{"a":"b"}}`,
		`{"id":"x","attachments":"nope"}`,
		`{"id":"x"`,
	}
	for _, in := range tests {
		var r SubmissionRecord
		assert.Error(t, json.Unmarshal([]byte(in), &r), in)
	}
}

func TestSubmissionRecord_WithoutPayloads(t *testing.T) {
	rec := sampleRecord()
	light := rec.WithoutPayloads()

	assert.Equal(t, []EncodedAttachment{{Name: "a.jpg", MimeType: "image/jpeg"}}, light.Attachments)
	assert.Equal(t, "/9j/", rec.Attachments[0].Data, "original must be untouched")
}
