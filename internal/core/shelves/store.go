// Package shelves persists named rule trees ("Magic Shelves").
//
// The store treats the tree as opaque JSON. It only checks that the JSON
// parses as a rule tree when a shelf is saved, so a shelf always round-trips
// byte for byte.
package shelves

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/solatis/shelfkeeper/internal/core/db"
	"github.com/solatis/shelfkeeper/internal/rules"
	"github.com/solatis/shelfkeeper/internal/types"
)

// Store saves and loads shelves through named queries.
type Store struct {
	q   *db.Queries
	now func() time.Time
}

// New creates a Store.
func New(q *db.Queries) *Store {
	return &Store{q: q, now: time.Now}
}

type shelfRow struct {
	ID        string    `db:"shelf_id"`
	Name      string    `db:"name"`
	Filter    string    `db:"filter"`
	CreatedAt time.Time `db:"created_at"`
}

func (r shelfRow) shelf() types.Shelf {
	return types.Shelf{
		ID:        types.ShelfID(r.ID),
		Name:      r.Name,
		Filter:    json.RawMessage(r.Filter),
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func checkShelf(name string, filter []byte) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > types.MaxShelfNameLength {
		return "", types.ErrEmptyShelfName
	}
	if _, err := rules.Parse(filter); err != nil {
		return "", err
	}
	return name, nil
}

// Save stores a new shelf and returns its ID.
func (s *Store) Save(ctx context.Context, name string, filter []byte) (types.ShelfID, error) {
	name, err := checkShelf(name, filter)
	if err != nil {
		return "", err
	}

	id := types.NewShelfID()
	createdAt := s.now().UTC().Truncate(time.Second)
	if _, err := s.q.Exec(ctx, "insert-shelf", string(id), name, string(filter), createdAt); err != nil {
		return "", fmt.Errorf("failed to save shelf: %w", err)
	}
	return id, nil
}

// Get returns the shelf with the given ID.
func (s *Store) Get(ctx context.Context, id types.ShelfID) (*types.Shelf, error) {
	var row shelfRow
	err := s.q.Get(ctx, "get-shelf", &row, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrShelfNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load shelf: %w", err)
	}
	shelf := row.shelf()
	return &shelf, nil
}

// Load returns the stored rule tree JSON of a shelf.
func (s *Store) Load(ctx context.Context, id types.ShelfID) ([]byte, error) {
	shelf, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return shelf.Filter, nil
}

// List returns every shelf, oldest first.
func (s *Store) List(ctx context.Context) ([]types.Shelf, error) {
	var rows []shelfRow
	if err := s.q.Select(ctx, "list-shelves", &rows); err != nil {
		return nil, fmt.Errorf("failed to list shelves: %w", err)
	}
	out := make([]types.Shelf, len(rows))
	for i, row := range rows {
		out[i] = row.shelf()
	}
	return out, nil
}

// Update replaces the name and rule tree of an existing shelf.
func (s *Store) Update(ctx context.Context, id types.ShelfID, name string, filter []byte) error {
	name, err := checkShelf(name, filter)
	if err != nil {
		return err
	}
	res, err := s.q.Exec(ctx, "update-shelf", name, string(filter), string(id))
	if err != nil {
		return fmt.Errorf("failed to update shelf: %w", err)
	}
	return requireRow(res)
}

// Delete removes a shelf.
func (s *Store) Delete(ctx context.Context, id types.ShelfID) error {
	res, err := s.q.Exec(ctx, "delete-shelf", string(id))
	if err != nil {
		return fmt.Errorf("failed to delete shelf: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return types.ErrShelfNotFound
	}
	return nil
}
