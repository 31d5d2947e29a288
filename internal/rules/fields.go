package rules

import (
	"sort"

	"github.com/solatis/shelfkeeper/internal/types"
)

/*
 * Field registry.
 *
 * Maps a rule's field name to its semantic type, the SQL column the compiler
 * emits, and the accessor the evaluator reads. The registry is shared
 * configuration: the rule tree only carries the name.
 *
 * Accessors return the raw book value in evaluator form:
 *   - string/enum: string ("" means absent)
 *   - number:      *float64 / *int
 *   - date:        string, parsed lazily by the evaluator
 *   - boolean:     *bool
 *   - string-list: []string
 *
 * The "library" field is not registered here; it bypasses operator dispatch
 * in both evaluators (see LibraryField).
 */

// FieldType is the semantic type of a book field.
type FieldType int

const (
	FieldTypeUnknown FieldType = iota
	FieldTypeString
	FieldTypeNumber
	FieldTypeDate
	FieldTypeBoolean
	FieldTypeEnum
	FieldTypeStringList
)

func (t FieldType) String() string {
	switch t {
	case FieldTypeString:
		return "string"
	case FieldTypeNumber:
		return "number"
	case FieldTypeDate:
		return "date"
	case FieldTypeBoolean:
		return "boolean"
	case FieldTypeEnum:
		return "enum"
	case FieldTypeStringList:
		return "string-list"
	default:
		return "unknown"
	}
}

// Supports reports whether op may be applied to a field of this type.
// Unknown fields accept every operator: the compiler emits them literally
// and lets the database reject a missing column.
func (t FieldType) Supports(op Operator) bool {
	if !op.Known() {
		return false
	}
	switch t {
	case FieldTypeString, FieldTypeEnum, FieldTypeStringList:
		return op != OpGreaterThan && op != OpLessThan && op != OpInBetween
	case FieldTypeNumber, FieldTypeDate:
		return !op.isPattern()
	case FieldTypeBoolean:
		return op == OpEquals || op == OpNotEquals || op == OpIsEmpty || op == OpIsNotEmpty
	default:
		return true
	}
}

// LibraryField is compared by identity against Book.LibraryID regardless of
// the rule's operator.
const LibraryField = "library"

// libraryColumn is the catalog column holding the library identifier.
const libraryColumn = "libraryId"

// ListRelation describes the table holding the elements of a list field.
type ListRelation struct {
	Table  string // e.g. book_authors
	Column string // element column, e.g. name
}

// FieldDescriptor binds a field name to its type, column and accessor.
type FieldDescriptor struct {
	Name     string
	Type     FieldType
	Column   string
	Relation *ListRelation
	value    func(b *types.Book) any
}

// Value reads the field from a book in evaluator form.
func (d FieldDescriptor) Value(b *types.Book) any {
	if d.value == nil || b == nil {
		return nil
	}
	return d.value(b)
}

// booksTable is the outer table list-field sub-queries correlate against.
const booksTable = "books"

func stringField(name string, get func(b *types.Book) string) FieldDescriptor {
	return FieldDescriptor{Name: name, Type: FieldTypeString, Column: name, value: func(b *types.Book) any { return get(b) }}
}

func enumField(name string, get func(b *types.Book) string) FieldDescriptor {
	d := stringField(name, get)
	d.Type = FieldTypeEnum
	return d
}

func dateField(name string, get func(b *types.Book) string) FieldDescriptor {
	d := stringField(name, get)
	d.Type = FieldTypeDate
	return d
}

func floatField(name string, get func(b *types.Book) *float64) FieldDescriptor {
	return FieldDescriptor{Name: name, Type: FieldTypeNumber, Column: name, value: func(b *types.Book) any { return get(b) }}
}

func intField(name string, get func(b *types.Book) *int) FieldDescriptor {
	return FieldDescriptor{Name: name, Type: FieldTypeNumber, Column: name, value: func(b *types.Book) any { return get(b) }}
}

func listField(name, table string, get func(b *types.Book) []string) FieldDescriptor {
	return FieldDescriptor{
		Name:     name,
		Type:     FieldTypeStringList,
		Column:   name,
		Relation: &ListRelation{Table: table, Column: "name"},
		value:    func(b *types.Book) any { return get(b) },
	}
}

var registry = func() map[string]FieldDescriptor {
	fields := []FieldDescriptor{
		stringField("title", func(b *types.Book) string { return b.Title }),
		stringField("subtitle", func(b *types.Book) string { return b.Subtitle }),
		stringField("description", func(b *types.Book) string { return b.Description }),
		stringField("publisher", func(b *types.Book) string { return b.Publisher }),
		stringField("language", func(b *types.Book) string { return b.Language }),
		stringField("isbn10", func(b *types.Book) string { return b.ISBN10 }),
		stringField("isbn13", func(b *types.Book) string { return b.ISBN13 }),
		stringField("seriesName", func(b *types.Book) string { return b.SeriesName }),

		listField("authors", "book_authors", func(b *types.Book) []string { return b.Authors }),
		listField("categories", "book_categories", func(b *types.Book) []string { return b.Categories }),

		dateField("publishedDate", func(b *types.Book) string { return b.PublishedDate }),
		dateField("addedOn", func(b *types.Book) string { return b.AddedOn }),
		dateField("lastReadTime", func(b *types.Book) string { return b.LastReadTime }),
		dateField("dateFinished", func(b *types.Book) string { return b.DateFinished }),

		floatField("rating", func(b *types.Book) *float64 { return b.Rating }),
		floatField("personalRating", func(b *types.Book) *float64 { return b.PersonalRating }),
		floatField("seriesNumber", func(b *types.Book) *float64 { return b.SeriesNumber }),
		intField("pageCount", func(b *types.Book) *int { return b.PageCount }),
		intField("seriesTotal", func(b *types.Book) *int { return b.SeriesTotal }),
		intField("fileSizeKb", func(b *types.Book) *int { return b.FileSizeKb }),

		enumField("readStatus", func(b *types.Book) string { return b.ReadStatus }),
		enumField("fileType", func(b *types.Book) string { return b.FileType }),

		{Name: "isPhysical", Type: FieldTypeBoolean, Column: "isPhysical", value: func(b *types.Book) any { return b.IsPhysical }},
	}
	m := make(map[string]FieldDescriptor, len(fields))
	for _, f := range fields {
		m[f.Name] = f
	}
	return m
}()

// LookupField returns the descriptor for name.
func LookupField(name string) (FieldDescriptor, bool) {
	d, ok := registry[name]
	return d, ok
}

// Fields returns all registered descriptors sorted by name.
func Fields() []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// describe returns the descriptor for name, or an unknown-typed descriptor
// whose column is the name itself.
func describe(name string) (FieldDescriptor, bool) {
	if d, ok := registry[name]; ok {
		return d, true
	}
	return FieldDescriptor{Name: name, Type: FieldTypeUnknown, Column: name}, false
}
