package encoder

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldreport/internal/client/models"
	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpeg = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}

func fixedEncoder() *Encoder {
	return NewEncoder(DefaultSchema(),
		WithIDFunc(func() (string, error) { return "5b0d5f0e-2c1a-4f5e-9a4b-0c2d7e8f9a10", nil }),
		WithClock(func() time.Time {
			return time.Date(2026, 3, 1, 13, 15, 30, 123456789, time.FixedZone("MVT", 5*3600))
		}),
	)
}

func streetlight() *models.FormState {
	s := models.NewFormState()
	s.Category = "streetlight"
	s.Subcategory = "streetlight"
	s.SetCoords(4.1755, 73.5093, 12)
	s.SetField("light_working", "no")
	s.AddTag("urgent")
	s.Notes = "lamp out since monday"
	s.AddAttachment("pole.jpg", jpeg)
	return s
}

func TestEncode_StreetlightGolden(t *testing.T) {
	rec, err := fixedEncoder().Encode(streetlight())
	require.NoError(t, err)

	b, err := json.Marshal(rec)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "streetlight_record", b)
}

func TestEncode_Streetlight(t *testing.T) {
	rec, err := NewEncoder(nil).Encode(streetlight())
	require.NoError(t, err)

	id, err := uuid.Parse(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())
	assert.Equal(t, rec.ID, rec.Get("id"))

	ts, err := time.Parse(time.RFC3339Nano, rec.Get("timestamp"))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, ts.Location())
	assert.True(t, strings.HasSuffix(rec.Get("timestamp"), "Z"))

	assert.Equal(t, "streetlight", rec.Get("category"))
	assert.Equal(t, "urgent", rec.Get("tags"))
	assert.Equal(t, "no", rec.Get("light_working"))
	require.Len(t, rec.Attachments, 1)
	assert.Equal(t, "image/jpeg", rec.Attachments[0].MimeType)
}

func TestEncode_EveryColumnPresent(t *testing.T) {
	rec, err := fixedEncoder().Encode(models.NewFormState())
	require.NoError(t, err)

	schema := DefaultSchema()
	assert.Equal(t, schema.Columns(), rec.Columns)
	require.Len(t, rec.Fields, len(schema.Columns()))
	for _, col := range schema.Columns() {
		v, ok := rec.Fields[col]
		require.True(t, ok, "column %q missing", col)
		if col != "id" && col != "timestamp" && col != "photo_count" {
			assert.Empty(t, v, "column %q", col)
		}
	}
	assert.Equal(t, "0", rec.Get("photo_count"))
	assert.Empty(t, rec.Attachments)
}

func TestEncode_Tags(t *testing.T) {
	s := models.NewFormState()
	s.AddTag("b")
	s.AddTag("a")

	rec, err := fixedEncoder().Encode(s)
	require.NoError(t, err)

	tags := rec.Get("tags")
	assert.Contains(t, tags, "a")
	assert.Contains(t, tags, "b")
	assert.Equal(t, 1, strings.Count(tags, ";"))
	assert.False(t, strings.HasPrefix(tags, ";") || strings.HasSuffix(tags, ";"))
}

func TestEncode_Tables(t *testing.T) {
	s := models.NewFormState()
	s.SetTableRow("catch", "tuna", "12")
	s.SetTableRow("catch", "reef", "3", "kg")
	s.SetTableRow("unknown_table", "x", "1")

	rec, err := fixedEncoder().Encode(s)
	require.NoError(t, err)

	assert.Equal(t, "tuna:12; reef:3:kg", rec.Get("catch"))
	assert.Equal(t, "", rec.Get("inventory"))
	_, ok := rec.Fields["unknown_table"]
	assert.False(t, ok, "non-canonical tables are not emitted")
}

func TestEncode_UnknownFieldsDropped(t *testing.T) {
	s := models.NewFormState()
	s.SetField("favourite_colour", "blue")

	rec, err := fixedEncoder().Encode(s)
	require.NoError(t, err)
	_, ok := rec.Fields["favourite_colour"]
	assert.False(t, ok)
}

func TestEncode_PlaceMode(t *testing.T) {
	s := models.NewFormState()
	s.SetPlace("hulhumale-ph2")

	rec, err := fixedEncoder().Encode(s)
	require.NoError(t, err)
	assert.Equal(t, "place", rec.Get("location_mode"))
	assert.Equal(t, "hulhumale-ph2", rec.Get("place_id"))
	assert.Equal(t, "", rec.Get("latitude"))
	assert.Equal(t, "", rec.Get("accuracy_m"))
}

func TestEncode_DoesNotMutateState(t *testing.T) {
	s := streetlight()
	s.AddAttachment("note.png", []byte("\x89PNG\r\n\x1a\n0000"))
	before, err := json.Marshal(s)
	require.NoError(t, err)
	orig := s.Attachments[0].Data

	first, err := fixedEncoder().Encode(s)
	require.NoError(t, err)
	second, err := fixedEncoder().Encode(s)
	require.NoError(t, err)

	after, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	assert.Same(t, &orig[0], &s.Attachments[0].Data[0])
	assert.Equal(t, first.Attachments, second.Attachments, "attachments stay re-encodable")
	assert.Equal(t, "image/png", first.Attachments[1].MimeType)
}

func TestEncode_MimeFallsBackToExtension(t *testing.T) {
	s := models.NewFormState()
	s.AddAttachment("photo.jpg", nil)

	rec, err := fixedEncoder().Encode(s)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", rec.Attachments[0].MimeType)
	assert.Equal(t, "", rec.Attachments[0].Data)
}

func TestEncode_IDFailure(t *testing.T) {
	enc := NewEncoder(nil, WithIDFunc(func() (string, error) { return "", errors.New("no entropy") }))

	_, err := enc.Encode(streetlight())
	require.ErrorContains(t, err, "no entropy")
}
