package audit

import (
	"context"

	"github.com/google/uuid"
)

// Recorder is the write side of the audit trail. Record either persists the
// entry or returns an error; there is no partial success and no retry inside
// the recorder itself.
type Recorder interface {
	Record(ctx context.Context, e *Entry) error
}

// Repo adds the admin read surface on top of the recorder.
type Repo interface {
	Recorder
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Entry, int, error)
}
