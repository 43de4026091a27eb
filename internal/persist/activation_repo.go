package persist

import (
	"context"
	"fmt"
)

// ActivationEntry is one row of the ability activation log.
type ActivationEntry struct {
	Boss      string // boss owner key
	Ability   string
	Stage     int
	Target    string // player owner key, empty for self-cast
	Cancelled bool
}

type ActivationRepo struct {
	db *DB
}

func NewActivationRepo(db *DB) *ActivationRepo {
	return &ActivationRepo{db: db}
}

// WriteActivations inserts a batch of log entries in a single transaction.
func (r *ActivationRepo) WriteActivations(ctx context.Context, entries []ActivationEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("activations begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ability_activations (boss, ability, stage, target, cancelled)
			 VALUES ($1, $2, $3, $4, $5)`,
			e.Boss, e.Ability, e.Stage, e.Target, e.Cancelled,
		); err != nil {
			return fmt.Errorf("activations insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ActivationLog buffers entries in memory. Used when persistence is off and
// in tests.
type ActivationLog struct {
	Entries []ActivationEntry
}

func (l *ActivationLog) WriteActivations(_ context.Context, entries []ActivationEntry) error {
	l.Entries = append(l.Entries, entries...)
	return nil
}
