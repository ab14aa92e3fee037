package transport

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/fieldreport/internal/client/models"
	"github.com/dmitrijs2005/fieldreport/internal/netx"
)

// Response is one normalized endpoint reply: StructuredResponse or
// OpaqueResponse.
type Response interface {
	Outcome() models.Outcome
	HTTPStatus() int
}

// StructuredResponse is a JSON object with a boolean "success".
type StructuredResponse struct {
	Status  int
	Success bool
	Error   string
	Info    map[string]any
}

func (r StructuredResponse) Outcome() models.Outcome {
	return models.Outcome{OK: r.Success, Message: r.Error, ServerInfo: r.Info}
}

func (r StructuredResponse) HTTPStatus() int { return r.Status }

// OpaqueResponse is any other body; only the status carries meaning.
type OpaqueResponse struct {
	Status int
	Body   []byte
}

func (r OpaqueResponse) Outcome() models.Outcome {
	out := models.Outcome{OK: netx.IsSuccess(r.Status)}
	if !out.OK {
		out.Message = fmt.Sprintf("status %d", r.Status)
	}
	return out
}

func (r OpaqueResponse) HTTPStatus() int { return r.Status }

// Normalize classifies a reply body. It never fails: anything that is not a
// JSON object with a boolean "success" is opaque.
func Normalize(status int, body []byte) Response {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return OpaqueResponse{Status: status, Body: body}
	}
	success, ok := obj["success"].(bool)
	if !ok {
		return OpaqueResponse{Status: status, Body: body}
	}

	r := StructuredResponse{Status: status, Success: success}
	if e, ok := obj["error"]; ok && e != nil {
		if s, isStr := e.(string); isStr {
			r.Error = s
		} else {
			r.Error = fmt.Sprint(e)
		}
	}
	delete(obj, "success")
	delete(obj, "error")
	if len(obj) > 0 {
		r.Info = obj
	}
	return r
}
