// Package catalog mirrors library books into the shelf database so compiled
// rule trees can be run as SQL.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/solatis/shelfkeeper/internal/core/db"
	"github.com/solatis/shelfkeeper/internal/rules"
	"github.com/solatis/shelfkeeper/internal/types"
)

/*
 * Storage layout
 *
 *   books            one row per book, camelCase columns named after rule fields
 *   book_authors     (book_id, position, name) one row per non-blank author
 *   book_categories  (book_id, position, name) one row per non-blank category
 *
 * Empty strings and unparsable dates are written as NULL, and list elements
 * that are only whitespace are not written at all, so "absent" means the
 * same thing to SQL and to the in-memory evaluator. Dates are written as
 * YYYY-MM-DD.
 *
 * Filters compile in the dialect of the connection's driver. Trees naming a
 * field outside the registry are refused before any SQL runs.
 */

// Repository reads and writes the catalog mirror.
type Repository struct {
	q       *db.Queries
	dialect rules.Dialect
}

// New creates a Repository over loaded named queries.
func New(q *db.Queries) *Repository {
	// db.Open only hands out sqlite3 and postgres connections.
	dialect, err := rules.ParseDialect(q.DB().DriverName())
	if err != nil {
		dialect = rules.DialectSQLite
	}
	return &Repository{q: q, dialect: dialect}
}

// Dialect returns the SQL dialect filters are compiled to.
func (r *Repository) Dialect() rules.Dialect {
	return r.dialect
}

// Insert writes books, replacing any existing rows with the same IDs.
// All books are written in one transaction.
func (r *Repository) Insert(ctx context.Context, books ...types.Book) error {
	return r.q.InTx(ctx, func(tx *db.Tx) error {
		for i := range books {
			if err := insertBook(ctx, tx, &books[i]); err != nil {
				return fmt.Errorf("book %d: %w", books[i].ID, err)
			}
		}
		return nil
	})
}

func insertBook(ctx context.Context, tx *db.Tx, b *types.Book) error {
	for _, name := range []string{"delete-book-authors", "delete-book-categories", "delete-book"} {
		if _, err := tx.Exec(ctx, name, b.ID); err != nil {
			return err
		}
	}

	_, err := tx.Exec(ctx, "insert-book",
		b.ID, b.LibraryID,
		text(b.Title), text(b.Subtitle), text(b.Description), text(b.Publisher), text(b.Language),
		text(b.ISBN10), text(b.ISBN13), text(b.SeriesName),
		day(b.PublishedDate), day(b.AddedOn), day(b.LastReadTime), day(b.DateFinished),
		b.Rating, b.PersonalRating, b.SeriesNumber,
		b.PageCount, b.SeriesTotal, b.FileSizeKb,
		text(b.ReadStatus), text(b.FileType), b.IsPhysical,
	)
	if err != nil {
		return err
	}

	if err := insertElements(ctx, tx, "insert-book-author", b.ID, b.Authors); err != nil {
		return err
	}
	return insertElements(ctx, tx, "insert-book-category", b.ID, b.Categories)
}

func insertElements(ctx context.Context, tx *db.Tx, query string, bookID int64, elems []string) error {
	position := 0
	for _, e := range elems {
		if strings.TrimSpace(e) == "" {
			continue
		}
		if _, err := tx.Exec(ctx, query, bookID, position, e); err != nil {
			return err
		}
		position++
	}
	return nil
}

// text maps the empty string to NULL.
func text(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// day maps a date to YYYY-MM-DD, or NULL when it does not parse.
func day(s string) any {
	d, ok := rules.DayString(s)
	if !ok {
		return nil
	}
	return d
}

// where appends the compiled filter to a base query. An empty fragment
// selects every book.
func (r *Repository) where(base string, group *rules.Group) (string, error) {
	if err := rules.RequireKnownFields(group); err != nil {
		return "", err
	}
	if frag := rules.CompileSQLDialect(group, r.dialect); frag != "" {
		return base + " WHERE " + frag, nil
	}
	return base, nil
}

// Count returns the number of books matching group. A tree naming an
// unknown field fails with types.ErrInvalidFilter.
func (r *Repository) Count(ctx context.Context, group *rules.Group) (int, error) {
	base, err := r.q.Raw("count-books")
	if err != nil {
		return 0, err
	}
	query, err := r.where(base, group)
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.q.DB().GetContext(ctx, &n, query); err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return n, nil
}

// MatchingIDs returns the IDs of books matching group in ascending order.
func (r *Repository) MatchingIDs(ctx context.Context, group *rules.Group) ([]int64, error) {
	base, err := r.q.Raw("select-book-ids")
	if err != nil {
		return nil, err
	}
	query, err := r.where(base, group)
	if err != nil {
		return nil, err
	}
	ids := []int64{}
	if err := r.q.DB().SelectContext(ctx, &ids, query+" ORDER BY books.id"); err != nil {
		return nil, fmt.Errorf("failed to select books: %w", err)
	}
	return ids, nil
}

type bookRow struct {
	ID             int64           `db:"id"`
	LibraryID      int64           `db:"library_id"`
	Title          sql.NullString  `db:"title"`
	Subtitle       sql.NullString  `db:"subtitle"`
	Description    sql.NullString  `db:"description"`
	Publisher      sql.NullString  `db:"publisher"`
	Language       sql.NullString  `db:"language"`
	ISBN10         sql.NullString  `db:"isbn10"`
	ISBN13         sql.NullString  `db:"isbn13"`
	SeriesName     sql.NullString  `db:"series_name"`
	PublishedDate  sql.NullString  `db:"published_date"`
	AddedOn        sql.NullString  `db:"added_on"`
	LastReadTime   sql.NullString  `db:"last_read_time"`
	DateFinished   sql.NullString  `db:"date_finished"`
	Rating         sql.NullFloat64 `db:"rating"`
	PersonalRating sql.NullFloat64 `db:"personal_rating"`
	SeriesNumber   sql.NullFloat64 `db:"series_number"`
	PageCount      sql.NullInt64   `db:"page_count"`
	SeriesTotal    sql.NullInt64   `db:"series_total"`
	FileSizeKb     sql.NullInt64   `db:"file_size_kb"`
	ReadStatus     sql.NullString  `db:"read_status"`
	FileType       sql.NullString  `db:"file_type"`
	IsPhysical     sql.NullBool    `db:"is_physical"`
}

type elementRow struct {
	BookID int64  `db:"book_id"`
	Name   string `db:"name"`
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func boolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	return &v.Bool
}

func (row bookRow) book() types.Book {
	return types.Book{
		ID:             row.ID,
		LibraryID:      row.LibraryID,
		Title:          row.Title.String,
		Subtitle:       row.Subtitle.String,
		Description:    row.Description.String,
		Publisher:      row.Publisher.String,
		Language:       row.Language.String,
		ISBN10:         row.ISBN10.String,
		ISBN13:         row.ISBN13.String,
		SeriesName:     row.SeriesName.String,
		PublishedDate:  row.PublishedDate.String,
		AddedOn:        row.AddedOn.String,
		LastReadTime:   row.LastReadTime.String,
		DateFinished:   row.DateFinished.String,
		Rating:         floatPtr(row.Rating),
		PersonalRating: floatPtr(row.PersonalRating),
		SeriesNumber:   floatPtr(row.SeriesNumber),
		PageCount:      intPtr(row.PageCount),
		SeriesTotal:    intPtr(row.SeriesTotal),
		FileSizeKb:     intPtr(row.FileSizeKb),
		ReadStatus:     row.ReadStatus.String,
		FileType:       row.FileType.String,
		IsPhysical:     boolPtr(row.IsPhysical),
	}
}

// List returns every stored book ordered by ID, with authors and categories
// in their stored order.
func (r *Repository) List(ctx context.Context) ([]types.Book, error) {
	var rows []bookRow
	if err := r.q.Select(ctx, "list-books", &rows); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	var authors, categories []elementRow
	if err := r.q.Select(ctx, "list-book-authors", &authors); err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	if err := r.q.Select(ctx, "list-book-categories", &categories); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	books := make([]types.Book, len(rows))
	index := make(map[int64]*types.Book, len(rows))
	for i, row := range rows {
		books[i] = row.book()
		index[row.ID] = &books[i]
	}
	for _, a := range authors {
		if b, ok := index[a.BookID]; ok {
			b.Authors = append(b.Authors, a.Name)
		}
	}
	for _, c := range categories {
		if b, ok := index[c.BookID]; ok {
			b.Categories = append(b.Categories, c.Name)
		}
	}
	return books, nil
}
