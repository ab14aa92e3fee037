package transport

import (
	"testing"

	"github.com/dmitrijs2005/fieldreport/internal/client/models"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Response
		out    models.Outcome
	}{
		{
			name: "structured ok", status: 200, body: `{"success":true,"id":"x"}`,
			want: StructuredResponse{Status: 200, Success: true, Info: map[string]any{"id": "x"}},
			out:  models.Outcome{OK: true, ServerInfo: map[string]any{"id": "x"}},
		},
		{
			name: "structured error", status: 200, body: `{"success":false,"error":"quota"}`,
			want: StructuredResponse{Status: 200, Success: false, Error: "quota"},
			out:  models.Outcome{OK: false, Message: "quota"},
		},
		{
			name: "structured non-string error", status: 200, body: `{"success":false,"error":{"code":7}}`,
			want: StructuredResponse{Status: 200, Success: false, Error: "map[code:7]"},
			out:  models.Outcome{OK: false, Message: "map[code:7]"},
		},
		{
			name: "null error", status: 200, body: `{"success":true,"error":null}`,
			want: StructuredResponse{Status: 200, Success: true},
			out:  models.Outcome{OK: true},
		},
		{
			name: "plain text", status: 200, body: `OK`,
			want: OpaqueResponse{Status: 200, Body: []byte("OK")},
			out:  models.Outcome{OK: true},
		},
		{
			name: "json array", status: 200, body: `[true]`,
			want: OpaqueResponse{Status: 200, Body: []byte("[true]")},
			out:  models.Outcome{OK: true},
		},
		{
			name: "empty body 503", status: 503, body: ``,
			want: OpaqueResponse{Status: 503, Body: []byte("")},
			out:  models.Outcome{OK: false, Message: "status 503"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.status, []byte(tt.body))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.out, got.Outcome())
			assert.Equal(t, tt.status, got.HTTPStatus())
		})
	}
}
