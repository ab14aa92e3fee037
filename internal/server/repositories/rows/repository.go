// Package rows stores one spreadsheet-like row per received submission.
package rows

import (
	"context"
	"time"
)

// Row is one stored submission. Fields holds every scalar column of the
// record; PhotoKeys are the object-store keys of its attachments.
type Row struct {
	ID         string
	ReceivedAt time.Time
	Category   string
	Fields     map[string]string
	PhotoKeys  []string
}

type Repository interface {
	// Insert stores r unless a row with the same id exists. It reports
	// whether a row was written.
	Insert(ctx context.Context, r *Row) (bool, error)
	Get(ctx context.Context, id string) (*Row, error)
}
