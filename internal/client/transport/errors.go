package transport

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/fieldreport/internal/common"
)

// TransportError is the single error type Submit returns. StatusCode is 0
// when no HTTP response was received.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport %s: status %d %s: %v", e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{common.ErrTransport}
	}
	return []error{common.ErrTransport, e.Err}
}
