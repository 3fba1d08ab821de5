// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/navigator/internal/postgres"
	"github.com/linnemanlabs/navigator/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/navigator/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists case states in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL through a traced pool, applies the schema, and
// returns a ready Store that owns the pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	store, err := NewWithPool(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool wraps an existing pool (already pinged and traced) and applies
// the schema.
func NewWithPool(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const caseColumns = `id, created_at, updated_at, path, branch, phase, turns,
	patient, clinical, meta, answered, slot_log, disposition`

// Load retrieves a case state by ID.
func (s *Store) Load(ctx context.Context, id string) (*triage.CaseState, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Load", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1`
	c, err := scanCaseRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if c == nil {
		return nil, false, nil
	}
	return c, true, nil
}

// Save inserts or updates a case state (upsert on id).
func (s *Store) Save(ctx context.Context, c *triage.CaseState) error {
	ctx, span := tracer.Start(ctx, "pgstore.Save", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	patient, clinical, meta, answered, slotLog, disposition, err := marshalCase(c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	query := `INSERT INTO cases (
		id, created_at, updated_at, path, branch, phase, urgency, turns, resolved,
		patient, clinical, meta, answered, slot_log, disposition
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	ON CONFLICT (id) DO UPDATE SET
		updated_at  = EXCLUDED.updated_at,
		phase       = EXCLUDED.phase,
		branch      = EXCLUDED.branch,
		urgency     = EXCLUDED.urgency,
		turns       = EXCLUDED.turns,
		resolved    = EXCLUDED.resolved,
		patient     = EXCLUDED.patient,
		clinical    = EXCLUDED.clinical,
		meta        = EXCLUDED.meta,
		answered    = EXCLUDED.answered,
		slot_log    = EXCLUDED.slot_log,
		disposition = EXCLUDED.disposition`

	_, err = s.pool.Exec(ctx, query,
		c.ID, c.CreatedAt, c.UpdatedAt, string(c.Path), string(c.Branch), string(c.Phase),
		c.Meta.Urgency, c.Turns, c.Resolved(),
		patient, clinical, meta, answered, slotLog, disposition,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert case: %w", err)
	}
	return nil
}

// Delete removes a case. Deleting an absent ID is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "pgstore.Delete", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "DELETE"),
	))
	defer span.End()

	if _, err := s.pool.Exec(ctx, `DELETE FROM cases WHERE id = $1`, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("delete case: %w", err)
	}
	return nil
}

// ListActive returns all unresolved cases, oldest first.
func (s *Store) ListActive(ctx context.Context) ([]*triage.CaseState, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ListActive", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + caseColumns + ` FROM cases WHERE NOT resolved ORDER BY created_at`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query active cases: %w", err)
	}
	defer rows.Close()

	var out []*triage.CaseState
	for rows.Next() {
		c, err := scanCaseRow(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return out, nil
}

// DeleteOlderThan removes cases last updated before cutoff and reports how
// many went.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "pgstore.DeleteOlderThan", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "DELETE"),
	))
	defer span.End()

	tag, err := s.pool.Exec(ctx, `DELETE FROM cases WHERE updated_at < $1`, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("delete stale cases: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func marshalCase(c *triage.CaseState) (patient, clinical, meta, answered, slotLog, disposition []byte, err error) {
	if patient, err = json.Marshal(c.Patient); err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("marshal patient: %w", err)
	}
	if clinical, err = json.Marshal(c.Clinical); err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("marshal clinical: %w", err)
	}
	if meta, err = json.Marshal(c.Meta); err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("marshal meta: %w", err)
	}
	if c.Answered == nil {
		answered = []byte("{}")
	} else if answered, err = json.Marshal(c.Answered); err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("marshal answered: %w", err)
	}
	if c.SlotLog == nil {
		slotLog = []byte("[]")
	} else if slotLog, err = json.Marshal(c.SlotLog); err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("marshal slot log: %w", err)
	}
	if c.Disposition != nil {
		if disposition, err = json.Marshal(c.Disposition); err != nil {
			return nil, nil, nil, nil, nil, nil, fmt.Errorf("marshal disposition: %w", err)
		}
	}
	return patient, clinical, meta, answered, slotLog, disposition, nil
}

// scanCaseRow scans a single row into a triage.CaseState. Returns (nil, nil)
// when no row is found.
func scanCaseRow(row pgx.Row) (*triage.CaseState, error) {
	var (
		c                                 triage.CaseState
		path, branch, phase               string
		patient, clinical, meta, answered []byte
		slotLog, disposition              []byte
	)

	err := row.Scan(
		&c.ID, &c.CreatedAt, &c.UpdatedAt, &path, &branch, &phase, &c.Turns,
		&patient, &clinical, &meta, &answered, &slotLog, &disposition,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	c.Path = triage.CasePath(path)
	c.Branch = triage.CaseBranch(branch)
	c.Phase = triage.CasePhase(phase)

	if err := json.Unmarshal(patient, &c.Patient); err != nil {
		return nil, fmt.Errorf("unmarshal patient: %w", err)
	}
	if err := json.Unmarshal(clinical, &c.Clinical); err != nil {
		return nil, fmt.Errorf("unmarshal clinical: %w", err)
	}
	if err := json.Unmarshal(meta, &c.Meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	if err := json.Unmarshal(answered, &c.Answered); err != nil {
		return nil, fmt.Errorf("unmarshal answered: %w", err)
	}
	if err := json.Unmarshal(slotLog, &c.SlotLog); err != nil {
		return nil, fmt.Errorf("unmarshal slot log: %w", err)
	}
	if len(disposition) > 0 {
		c.Disposition = &triage.Disposition{}
		if err := json.Unmarshal(disposition, c.Disposition); err != nil {
			return nil, fmt.Errorf("unmarshal disposition: %w", err)
		}
	}
	return &c, nil
}
