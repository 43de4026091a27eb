package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/l1jgo/encounter/internal/attr"
)

// AttributeRepo stores attribute snapshots as one JSONB row per owner.
type AttributeRepo struct {
	db *DB
}

func NewAttributeRepo(db *DB) *AttributeRepo {
	return &AttributeRepo{db: db}
}

// SaveSnapshots upserts every snapshot in a single transaction.
func (r *AttributeRepo) SaveSnapshots(ctx context.Context, snaps []attr.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("attributes begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, s := range snaps {
		data, err := json.Marshal(s.Entries)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", s.Owner, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO entity_attributes (owner, entries, updated_at)
			 VALUES ($1, $2, now())
			 ON CONFLICT (owner) DO UPDATE SET entries = EXCLUDED.entries, updated_at = now()`,
			s.Owner, data,
		); err != nil {
			return fmt.Errorf("upsert %s: %w", s.Owner, err)
		}
	}

	return tx.Commit(ctx)
}

// LoadSnapshot returns the saved snapshot for owner, if any.
func (r *AttributeRepo) LoadSnapshot(ctx context.Context, owner string) (attr.Snapshot, bool, error) {
	var raw []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT entries FROM entity_attributes WHERE owner = $1`, owner,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return attr.Snapshot{}, false, nil
	}
	if err != nil {
		return attr.Snapshot{}, false, err
	}
	var entries []attr.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return attr.Snapshot{}, false, fmt.Errorf("decode %s: %w", owner, err)
	}
	return attr.Snapshot{Owner: owner, Entries: entries}, true, nil
}
