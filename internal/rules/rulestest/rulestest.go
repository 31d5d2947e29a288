// Package rulestest provides fixtures for tests that exercise rule trees:
// a small representative book catalog and a random tree generator whose
// operands stay inside the value alphabet on which SQLite and the in-memory
// evaluator are expected to agree (no LIKE wildcards).
package rulestest

import (
	"math/rand"

	"github.com/solatis/shelfkeeper/internal/rules"
	"github.com/solatis/shelfkeeper/internal/types"
)

func ptrFloat(f float64) *float64 { return &f }
func ptrInt(n int) *int           { return &n }
func ptrBool(b bool) *bool        { return &b }

// Catalog returns a fresh copy of the fixture catalog.
func Catalog() []types.Book {
	return []types.Book{
		{
			ID: 1, LibraryID: 1,
			Title: "Dune", Publisher: "Chilton Books", Language: "English",
			ISBN10: "0441013593", ISBN13: "9780441013593",
			Authors: []string{"Frank Herbert"}, Categories: []string{"Science Fiction", "Classics"},
			PublishedDate: "1965-08-01", AddedOn: "2023-01-10", LastReadTime: "2024-03-05T22:15:00Z",
			Rating: ptrFloat(4.5), PersonalRating: ptrFloat(5), PageCount: ptrInt(412),
			ReadStatus: "READ", FileType: "epub", IsPhysical: ptrBool(false),
		},
		{
			ID: 2, LibraryID: 1,
			Title: "Foundation", SeriesName: "Foundation", SeriesNumber: ptrFloat(1), SeriesTotal: ptrInt(7),
			Authors: []string{"Isaac Asimov"}, Categories: []string{"Science Fiction"},
			Language: "English", PublishedDate: "1951-06-01",
			Rating: ptrFloat(4.2), PageCount: ptrInt(255),
			ReadStatus: "READING", FileType: "pdf", IsPhysical: ptrBool(true),
		},
		{
			ID: 3, LibraryID: 1,
			Title: "Foundation and Empire", SeriesName: "Foundation", SeriesNumber: ptrFloat(2), SeriesTotal: ptrInt(7),
			Authors: []string{"Isaac Asimov"}, Categories: []string{"Science Fiction"},
			Language: "English", PublishedDate: "1952-01-01",
			Rating: ptrFloat(4.1), ReadStatus: "UNREAD", FileType: "pdf",
		},
		{
			ID: 4, LibraryID: 1,
			Title: "Second Foundation", SeriesName: "Foundation", SeriesNumber: ptrFloat(3), SeriesTotal: ptrInt(7),
			Authors: []string{"Isaac Asimov"}, Language: "English", PublishedDate: "1953-01-01",
			Rating: ptrFloat(4.3), ReadStatus: "UNREAD",
		},
		{
			ID: 5, LibraryID: 2,
			Title: "The Hobbit", Subtitle: "There and Back Again", Publisher: "George Allen and Unwin",
			Description: "A hobbit leaves home.",
			Authors: []string{"J.R.R. Tolkien"}, Categories: []string{"Fantasy"},
			Language: "English", PublishedDate: "1937-09-21",
			Rating: ptrFloat(4.7), PageCount: ptrInt(310), ReadStatus: "READ", IsPhysical: ptrBool(true),
		},
		{
			ID: 6, LibraryID: 2,
			Title: "Les Miserables", Authors: []string{"Victor Hugo"}, Categories: []string{"Classics"},
			Language: "French", PublishedDate: "1862-01-01",
			Rating: ptrFloat(5), PageCount: ptrInt(1463), FileSizeKb: ptrInt(2048), FileType: "epub",
		},
		{
			ID: 7, LibraryID: 1,
			Title: "Untitled Draft",
		},
		{
			ID: 8, LibraryID: 3,
			Title: "The Historian", Authors: []string{"Elizabeth Kostova"}, Categories: []string{"Mystery", "Historical"},
			Language: "English", PublishedDate: "2005-06-15", DateFinished: "2006-02-01",
			Rating: ptrFloat(3), ReadStatus: "READ",
		},
		{
			ID: 9, LibraryID: 3,
			Title: "A Dance with Dragons", SeriesName: "A Song of Ice and Fire", SeriesNumber: ptrFloat(5),
			Authors: []string{"George R. R. Martin"}, Categories: []string{"Fantasy"},
			Language: "English", PublishedDate: "2011-01-01",
			Rating: ptrFloat(3.9), PageCount: ptrInt(1016), FileType: "epub",
		},
		{
			ID: 10, LibraryID: 2,
			Title: "Good Omens", Authors: []string{"Terry Pratchett", "Neil Gaiman"}, Categories: []string{"Fantasy", "Humor"},
			Language: "English", PublishedDate: "1990-05-01",
			Rating: ptrFloat(4.25), PersonalRating: ptrFloat(4), ReadStatus: "READ",
		},
		{
			ID: 11, LibraryID: 1,
			Title: "O'Brien's Guide", Publisher: "O'Reilly", Language: "english",
			Rating: ptrFloat(2), ISBN10: "4", IsPhysical: ptrBool(false),
		},
		{
			ID: 12, LibraryID: 3,
			Title: "Élan Vital", Subtitle: "ÉTUDES", Authors: []string{"ÉMILE ZOLA", "   "}, Categories: []string{"Philosophie", ""},
			Language: "Français", PublishedDate: "1907-01-01", Rating: ptrFloat(3.5), FileType: "epub",
		},
		{
			// Only blank list elements, and a file size beyond float64 precision.
			ID: 13, LibraryID: 2,
			Title: "Anonymous Pamphlet", Authors: []string{"   "}, Categories: []string{" "},
			PageCount: ptrInt(12), FileSizeKb: ptrInt(1<<53 + 1),
		},
	}
}

// Operand pools by field type.
var (
	stringOperands = []rules.Scalar{
		rules.String("Dune"), rules.String("dune"), rules.String("Foundation"), rules.String("found"),
		rules.String("ation"), rules.String("English"), rules.String("english"), rules.String("French"),
		rules.String("O'Brien's Guide"), rules.String("O'Re"), rules.String("the"), rules.String("Empire"),
		rules.String("0441013593"), rules.String("4"), rules.String("Dune, Foundation"),
		rules.String("English, French"), rules.String(""), rules.Null(), rules.Bool(true),
		rules.String("ÉLAN"), rules.String("élan"), rules.String("Français"), rules.String("études"),
	}
	numberOperands = []rules.Scalar{
		rules.String("4"), rules.String("4.5"), rules.String("3"), rules.String("412"), rules.String("1"),
		rules.String("2"), rules.String("0"), rules.String("5"), rules.String("4.25"), rules.Number(4.2),
		rules.String("1, 2, 5"), rules.String("x"), rules.String(""), rules.Null(),
		rules.String("9007199254740992"), rules.String("9007199254740993"),
	}
	dateOperands = []rules.Scalar{
		rules.String("1965-08-01"), rules.String("2000-01-01"), rules.String("2010-12-31"),
		rules.String("1950-01-01"), rules.String("2005-06-15"), rules.String("2024-03-05"),
		rules.String("2024-03-05T23:00:00Z"), rules.String("1952-01-01, 1953-01-01"),
		rules.String("someday"), rules.Null(),
	}
	boolOperands = []rules.Scalar{
		rules.Bool(true), rules.Bool(false), rules.String("true"), rules.String("false"), rules.String("maybe"),
	}
	enumOperands = []rules.Scalar{
		rules.String("READ"), rules.String("READING"), rules.String("UNREAD"), rules.String("read"),
		rules.String("epub"), rules.String("pdf"), rules.String("READ, UNREAD"), rules.String("EA"),
	}
	listOperands = []rules.Scalar{
		rules.String("Frank Herbert"), rules.String("frank herbert"), rules.String("Isaac Asimov"),
		rules.String("Tolkien, Herbert"), rules.String("Neil Gaiman, Terry Pratchett"), rules.String("Herbert"),
		rules.String("science"), rules.String("Fantasy"), rules.String("fiction"), rules.String(""),
		rules.String("ÉMILE ZOLA"), rules.String("émile zola"), rules.String("Émile"), rules.String("   "),
	}
	libraryOperands = []rules.Scalar{
		rules.Number(1), rules.String("2"), rules.Number(3), rules.String("x"), rules.Bool(true), rules.Null(),
	}
)

func operandPool(field string) []rules.Scalar {
	if field == rules.LibraryField {
		return libraryOperands
	}
	d, _ := rules.LookupField(field)
	switch d.Type {
	case rules.FieldTypeNumber:
		return numberOperands
	case rules.FieldTypeDate:
		return dateOperands
	case rules.FieldTypeBoolean:
		return boolOperands
	case rules.FieldTypeEnum:
		return enumOperands
	case rules.FieldTypeStringList:
		return listOperands
	default:
		return stringOperands
	}
}

// fields are the registry fields the generator draws from, plus library.
var fields = []string{
	"title", "subtitle", "publisher", "language", "isbn10", "seriesName", "description",
	"authors", "categories",
	"publishedDate", "lastReadTime", "dateFinished",
	"rating", "personalRating", "pageCount", "seriesNumber", "fileSizeKb",
	"readStatus", "fileType", "isPhysical",
	rules.LibraryField,
}

// RandomRule draws one rule. Roughly one in ten is inert (missing field or
// operator, or an operator outside the closed set); many more end up inert
// because operator and field type do not fit.
func RandomRule(r *rand.Rand) rules.Rule {
	field := fields[r.Intn(len(fields))]
	op := rules.Operators[r.Intn(len(rules.Operators))]
	switch r.Intn(30) {
	case 0:
		field = ""
	case 1:
		op = ""
	case 2:
		op = rules.Operator("matches")
	}
	pool := operandPool(field)
	pick := func() rules.Scalar { return pool[r.Intn(len(pool))] }
	return rules.Rule{Field: field, Operator: op, Value: pick(), ValueStart: pick(), ValueEnd: pick()}
}

// RandomTree draws a group with up to four children, nesting at most depth
// further levels.
func RandomTree(r *rand.Rand, depth int) *rules.Group {
	g := &rules.Group{Join: rules.JoinAnd}
	if r.Intn(2) == 0 {
		g.Join = rules.JoinOr
	}
	n := r.Intn(5)
	for i := 0; i < n; i++ {
		if depth > 0 && r.Intn(4) == 0 {
			g.Rules = append(g.Rules, rules.Branch(RandomTree(r, depth-1)))
			continue
		}
		g.Rules = append(g.Rules, rules.Leaf(RandomRule(r)))
	}
	return g
}

// InertRule returns one of the shapes the engine must ignore.
func InertRule(r *rand.Rand) rules.Rule {
	switch r.Intn(4) {
	case 0:
		return rules.Rule{Operator: rules.OpEquals, Value: rules.String("Dune")}
	case 1:
		return rules.Rule{Field: "title", Value: rules.String("Dune")}
	case 2:
		return rules.Rule{Field: "title", Operator: rules.Operator("sounds_like"), Value: rules.String("Dune")}
	default:
		return rules.Rule{Field: "rating", Operator: rules.OpContains, Value: rules.String("4")}
	}
}
