package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/crmimport/internal/importer"
)

// LookupOwner implements importer.OwnerResolver.
func (s *Store) LookupOwner(ctx context.Context, id int64) (*importer.Owner, error) {
	return s.lookupOwner(ctx, `SELECT id, username FROM users WHERE id = $1`, id)
}

// LookupOwnerByUsername finds a user by username, ignoring case.
func (s *Store) LookupOwnerByUsername(ctx context.Context, username string) (*importer.Owner, error) {
	return s.lookupOwner(ctx, `SELECT id, username FROM users WHERE lower(username) = lower($1)`, username)
}

func (s *Store) lookupOwner(ctx context.Context, query string, arg any) (*importer.Owner, error) {
	var o importer.Owner
	err := s.pool.QueryRow(ctx, query, arg).Scan(&o.ID, &o.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup owner: %w", err)
	}
	return &o, nil
}

// ListExists implements importer.ListResolver.
func (s *Store) ListExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lead_lists WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup list: %w", err)
	}
	return exists, nil
}

// TagNames implements importer.TagResolver.
func (s *Store) TagNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT id, tag FROM lead_tags WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		names[id] = tag
	}
	return names, rows.Err()
}
