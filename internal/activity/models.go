package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind of activity
type Kind string

const (
	KindUpload       Kind = "upload"
	KindExtraction   Kind = "extraction"
	KindConfirmation Kind = "confirmation"
	KindAnalysis     Kind = "analysis"
	KindCase         Kind = "case"
	KindLetter       Kind = "letter"
	KindDeletion     Kind = "deletion"
)

// Event is one entry of the recent activity feed
type Event struct {
	ID        uuid.UUID
	Kind      Kind
	FileID    string
	Title     string
	Detail    string
	CreatedAt time.Time
}

// Store records activity and lists the newest entries
type Store interface {
	Record(ctx context.Context, ev Event) (Event, error)
	Recent(ctx context.Context, limit int) ([]Event, error)
	Close() error
}

// prepare fills the generated fields of a new event
func prepare(ev Event) Event {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	return ev
}
