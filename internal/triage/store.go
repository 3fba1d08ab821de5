package triage

import (
	"context"
	"time"
)

// Store is the persistence interface for case states. Implementations must
// return copies: a caller mutating a loaded state must not affect the stored
// one until Save.
type Store interface {
	Load(ctx context.Context, id string) (*CaseState, bool, error)
	Save(ctx context.Context, s *CaseState) error
	Delete(ctx context.Context, id string) error
	ListActive(ctx context.Context) ([]*CaseState, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// IDSource issues case identifiers. Implementations own uniqueness across
// concurrent callers.
type IDSource interface {
	Next(ctx context.Context) (string, error)
}

// Record is the immutable report emitted when a case resolves or is
// abandoned.
type Record struct {
	RecordID  string       `json:"record_id"`
	CaseID    string       `json:"case_id"`
	Timestamp time.Time    `json:"timestamp"`
	Path      CasePath     `json:"path"`
	Urgency   int          `json:"urgency"`
	Location  string       `json:"location,omitempty"`
	District  string       `json:"district,omitempty"`
	SBAR      *Disposition `json:"sbar,omitempty"`
	SlotLog   []SlotEvent  `json:"slot_log,omitempty"`
	Abandoned bool         `json:"abandoned,omitempty"`
}

// Reporter delivers resolved-case records to the reporting collaborator.
// Delivery guarantees, retry and authentication live behind this interface,
// not in the core.
type Reporter interface {
	Emit(ctx context.Context, rec *Record) error
}

// Phraser turns the next phase into the question text put to the caller.
type Phraser interface {
	Question(ctx context.Context, s *CaseState) string
}
