package catalog_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/shelfkeeper/internal/core/catalog"
	"github.com/solatis/shelfkeeper/internal/core/db"
	"github.com/solatis/shelfkeeper/internal/rules"
	"github.com/solatis/shelfkeeper/internal/rules/rulestest"
	"github.com/solatis/shelfkeeper/internal/types"
)

func newRepository(t *testing.T) *catalog.Repository {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Open(ctx, db.MemoryURL)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = db.MigrateUp(ctx, conn)
	require.NoError(t, err)

	q, err := db.LoadQueries(conn)
	require.NoError(t, err)
	return catalog.New(q)
}

func seeded(t *testing.T) (*catalog.Repository, []types.Book) {
	t.Helper()
	repo := newRepository(t)
	books := rulestest.Catalog()
	require.NoError(t, repo.Insert(context.Background(), books...))
	return repo, books
}

func evaluatedIDs(books []types.Book, g *rules.Group) []int64 {
	ids := []int64{}
	for _, b := range rules.Filter(books, g) {
		ids = append(ids, b.ID)
	}
	return ids
}

var equivalenceTrees = map[string]string{
	"empty":               `{"join":"and","rules":[]}`,
	"title equals":        `{"join":"and","rules":[{"field":"title","operator":"equals","value":"Dune"}]}`,
	"title case differs":  `{"join":"and","rules":[{"field":"title","operator":"equals","value":"dune"}]}`,
	"title not equals":    `{"join":"and","rules":[{"field":"title","operator":"not_equals","value":"Dune"}]}`,
	"title contains":      `{"join":"and","rules":[{"field":"title","operator":"contains","value":"FOUND"}]}`,
	"title starts":        `{"join":"and","rules":[{"field":"title","operator":"starts_with","value":"the"}]}`,
	"title ends":          `{"join":"and","rules":[{"field":"title","operator":"ends_with","value":"ation"}]}`,
	"apostrophes":         `{"join":"and","rules":[{"field":"publisher","operator":"starts_with","value":"O'Re"}]}`,
	"subtitle empty":      `{"join":"and","rules":[{"field":"subtitle","operator":"is_empty"}]}`,
	"subtitle not empty":  `{"join":"and","rules":[{"field":"subtitle","operator":"is_not_empty"}]}`,
	"language in list":    `{"join":"and","rules":[{"field":"language","operator":"in_list","value":"English, French"}]}`,
	"language not in":     `{"join":"and","rules":[{"field":"language","operator":"not_in_list","value":"English"}]}`,
	"isbn leading zero":   `{"join":"and","rules":[{"field":"isbn10","operator":"equals","value":"0441013593"}]}`,
	"isbn numeric":        `{"join":"and","rules":[{"field":"isbn10","operator":"equals","value":4}]}`,
	"title greater":       `{"join":"and","rules":[{"field":"title","operator":"greater_than","value":"M"}]}`,
	"rating greater":      `{"join":"and","rules":[{"field":"rating","operator":"greater_than","value":4.5}]}`,
	"unknown operator":    `{"join":"and","rules":[{"field":"rating","operator":"greater_than_equal_to","value":4.5}]}`,
	"rating between":      `{"join":"and","rules":[{"field":"rating","operator":"in_between","valueStart":"4","valueEnd":"4.3"}]}`,
	"pages less":          `{"join":"and","rules":[{"field":"pageCount","operator":"less_than","value":"400"}]}`,
	"pages not equals":    `{"join":"and","rules":[{"field":"pageCount","operator":"not_equals","value":412}]}`,
	"series in list":      `{"join":"and","rules":[{"field":"seriesNumber","operator":"in_list","value":"1, 3, x"}]}`,
	"published before":    `{"join":"and","rules":[{"field":"publishedDate","operator":"less_than","value":"1950-01-01"}]}`,
	"published between":   `{"join":"and","rules":[{"field":"publishedDate","operator":"in_between","valueStart":"1951-01-01","valueEnd":"1953-01-01"}]}`,
	"last read timestamp": `{"join":"and","rules":[{"field":"lastReadTime","operator":"equals","value":"2024-03-05T23:00:00Z"}]}`,
	"physical true":       `{"join":"and","rules":[{"field":"isPhysical","operator":"equals","value":true}]}`,
	"physical string":     `{"join":"and","rules":[{"field":"isPhysical","operator":"not_equals","value":"true"}]}`,
	"physical empty":      `{"join":"and","rules":[{"field":"isPhysical","operator":"is_empty"}]}`,
	"status in list":      `{"join":"and","rules":[{"field":"readStatus","operator":"in_list","value":"READ, UNREAD"}]}`,
	"author equals":       `{"join":"and","rules":[{"field":"authors","operator":"equals","value":"frank HERBERT"}]}`,
	"author not equals":   `{"join":"and","rules":[{"field":"authors","operator":"not_equals","value":"Isaac Asimov"}]}`,
	"author in list":      `{"join":"and","rules":[{"field":"authors","operator":"in_list","value":"Neil Gaiman, Victor Hugo"}]}`,
	"author contains":     `{"join":"and","rules":[{"field":"authors","operator":"contains","value":"tolk"}]}`,
	"category not in":     `{"join":"and","rules":[{"field":"categories","operator":"not_in_list","value":"Fantasy, Classics"}]}`,
	"category empty":      `{"join":"and","rules":[{"field":"categories","operator":"is_empty"}]}`,
	"category not empty":  `{"join":"and","rules":[{"field":"categories","operator":"is_not_empty"}]}`,
	"accented contains":   `{"join":"and","rules":[{"field":"title","operator":"contains","value":"ÉLAN"}]}`,
	"accented case":       `{"join":"and","rules":[{"field":"title","operator":"contains","value":"élan"}]}`,
	"accented subtitle":   `{"join":"and","rules":[{"field":"subtitle","operator":"starts_with","value":"études"}]}`,
	"accented language":   `{"join":"and","rules":[{"field":"language","operator":"in_list","value":"Français, French"}]}`,
	"accented author":     `{"join":"and","rules":[{"field":"authors","operator":"equals","value":"Émile zola"}]}`,
	"accented in list":    `{"join":"and","rules":[{"field":"authors","operator":"in_list","value":"émile zola"}]}`,
	"accented prefix":     `{"join":"and","rules":[{"field":"authors","operator":"starts_with","value":"ÉMILE"}]}`,
	"author empty":        `{"join":"and","rules":[{"field":"authors","operator":"is_empty"}]}`,
	"author not empty":    `{"join":"and","rules":[{"field":"authors","operator":"is_not_empty"}]}`,
	"author not in list":  `{"join":"and","rules":[{"field":"authors","operator":"not_in_list","value":"Isaac Asimov"}]}`,
	"blank author equals": `{"join":"and","rules":[{"field":"authors","operator":"equals","value":"   "}]}`,
	"category not equals": `{"join":"and","rules":[{"field":"categories","operator":"not_equals","value":"Fantasy"}]}`,
	"file size exact":     `{"join":"and","rules":[{"field":"fileSizeKb","operator":"equals","value":9007199254740993}]}`,
	"file size rounded":   `{"join":"and","rules":[{"field":"fileSizeKb","operator":"equals","value":"9007199254740992"}]}`,
	"file size greater":   `{"join":"and","rules":[{"field":"fileSizeKb","operator":"greater_than","value":9007199254740992}]}`,
	"file size real":      `{"join":"and","rules":[{"field":"fileSizeKb","operator":"greater_than","value":"9007199254740992.0"}]}`,
	"library":             `{"join":"and","rules":[{"field":"library","operator":"equals","value":2}]}`,
	"library any operator": `{"join":"and","rules":[{"field":"library","operator":"greater_than","value":"3"}]}`,
	"inert mixed": `{"join":"or","rules":[
		{"field":"rating","operator":"contains","value":"4"},
		{"field":"title","value":"Dune"},
		{"field":"title","operator":"equals","value":"Dune"}]}`,
	"nested": `{"join":"and","rules":[
		{"field":"language","operator":"equals","value":"English"},
		{"join":"or","rules":[
			{"field":"authors","operator":"contains","value":"asimov"},
			{"field":"categories","operator":"equals","value":"fantasy"}]},
		{"field":"rating","operator":"greater_than","value":4}]}`,
	"vacuous nested or": `{"join":"or","rules":[
		{"field":"title","operator":"equals","value":"Nope"},
		{"join":"and","rules":[]}]}`,
}

func TestRepository_AgreesWithEvaluator(t *testing.T) {
	repo, books := seeded(t)
	ctx := context.Background()

	for name, tree := range equivalenceTrees {
		t.Run(name, func(t *testing.T) {
			g, err := rules.Parse([]byte(tree))
			require.NoError(t, err)

			ids, err := repo.MatchingIDs(ctx, g)
			require.NoError(t, err, "sql: %s", rules.CompileSQL(g))
			assert.Equal(t, evaluatedIDs(books, g), ids, "sql: %s", rules.CompileSQL(g))

			n, err := repo.Count(ctx, g)
			require.NoError(t, err)
			assert.Equal(t, rules.Count(books, g), n)
		})
	}
}

func TestRepository_Scenarios(t *testing.T) {
	repo, _ := seeded(t)
	ctx := context.Background()

	tests := []struct {
		name string
		tree string
		want []int64
	}{
		{
			name: "asimov in english",
			tree: `{"join":"and","rules":[
				{"field":"authors","operator":"equals","value":"Isaac Asimov"},
				{"field":"language","operator":"equals","value":"English"}]}`,
			want: []int64{2, 3, 4},
		},
		{
			name: "highly rated or physical",
			tree: `{"join":"or","rules":[
				{"field":"rating","operator":"greater_than","value":4.6},
				{"field":"isPhysical","operator":"equals","value":true}]}`,
			want: []int64{2, 5, 6},
		},
		{
			name: "no evaluable rules matches everything",
			tree: `{"join":"and","rules":[{"field":"","operator":"equals","value":"x"}]}`,
			want: []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13},
		},
		{
			name: "accented title folds ascii only",
			tree: `{"join":"and","rules":[{"field":"title","operator":"contains","value":"ÉLAN"}]}`,
			want: []int64{12},
		},
		{
			name: "accented author folds ascii only",
			tree: `{"join":"or","rules":[
				{"field":"authors","operator":"equals","value":"émile zola"},
				{"field":"authors","operator":"equals","value":"ÉMILE zola"}]}`,
			want: []int64{12},
		},
		{
			name: "blank authors are absent",
			tree: `{"join":"and","rules":[{"field":"authors","operator":"is_empty"}]}`,
			want: []int64{7, 11, 13},
		},
		{
			name: "integer beyond float precision",
			tree: `{"join":"and","rules":[{"field":"fileSizeKb","operator":"greater_than","value":9007199254740992}]}`,
			want: []int64{13},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := rules.Parse([]byte(tt.tree))
			require.NoError(t, err)
			ids, err := repo.MatchingIDs(ctx, g)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestRepository_NilGroupMatchesAll(t *testing.T) {
	repo, books := seeded(t)

	n, err := repo.Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, len(books), n)
}

// Property-based test: SQL and in-memory evaluation select the same books
func TestProperty_SQLAgreesWithEvaluator(t *testing.T) {
	repo, books := seeded(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("MatchingIDs equals Filter", prop.ForAll(
		func(seed int64) bool {
			g := rulestest.RandomTree(rand.New(rand.NewSource(seed)), 3)
			ids, err := repo.MatchingIDs(ctx, g)
			if err != nil {
				t.Logf("sql failed: %v: %s", err, rules.CompileSQL(g))
				return false
			}
			want := evaluatedIDs(books, g)
			if !assert.ObjectsAreEqual(want, ids) {
				t.Logf("mismatch for %s: sql %v, evaluator %v", rules.CompileSQL(g), ids, want)
				return false
			}
			return true
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestRepository_ListRoundTrip(t *testing.T) {
	repo, books := seeded(t)

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, len(books))

	dune := got[0]
	assert.Equal(t, "Dune", dune.Title)
	assert.Equal(t, []string{"Frank Herbert"}, dune.Authors)
	assert.Equal(t, []string{"Science Fiction", "Classics"}, dune.Categories)
	assert.Equal(t, "2024-03-05", dune.LastReadTime) // stored at day granularity
	require.NotNil(t, dune.IsPhysical)
	assert.False(t, *dune.IsPhysical)
	require.NotNil(t, dune.PageCount)
	assert.Equal(t, 412, *dune.PageCount)

	draft := got[6]
	assert.Equal(t, "Untitled Draft", draft.Title)
	assert.Nil(t, draft.Rating)
	assert.Nil(t, draft.IsPhysical)
	assert.Empty(t, draft.Authors)

	// The stored copy classifies exactly like the source.
	for name, tree := range equivalenceTrees {
		g, err := rules.Parse([]byte(tree))
		require.NoError(t, err)
		assert.Equal(t, evaluatedIDs(books, g), evaluatedIDs(got, g), name)
	}
}

func TestRepository_RejectsUnknownFields(t *testing.T) {
	repo, _ := seeded(t)
	ctx := context.Background()

	for _, tree := range []string{
		`{"join":"and","rules":[{"field":"(SELECT COUNT(*) FROM migrations)","operator":"equals","value":1}]}`,
		`{"join":"or","rules":[{"join":"and","rules":[{"field":"colour","operator":"equals","value":"red"}]}]}`,
	} {
		g, err := rules.Parse([]byte(tree))
		require.NoError(t, err)

		_, err = repo.Count(ctx, g)
		require.ErrorIs(t, err, types.ErrInvalidFilter)
		require.ErrorIs(t, err, types.ErrUnknownField)

		_, err = repo.MatchingIDs(ctx, g)
		require.ErrorIs(t, err, types.ErrInvalidFilter)
	}

	// An unknown field on an inert rule emits nothing and is allowed.
	g, err := rules.Parse([]byte(`{"join":"and","rules":[{"field":"colour","value":"red"}]}`))
	require.NoError(t, err)
	n, err := repo.Count(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, 13, n)
}

func TestRepository_InsertReplaces(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, types.Book{ID: 1, LibraryID: 1, Title: "Draft", Authors: []string{"A", "", " ", "B"}}))
	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"A", "B"}, got[0].Authors)

	require.NoError(t, repo.Insert(ctx, types.Book{ID: 1, LibraryID: 2, Title: "Final", Authors: []string{"C"}, PublishedDate: "not a date"}))

	got, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Final", got[0].Title)
	assert.Equal(t, int64(2), got[0].LibraryID)
	assert.Equal(t, []string{"C"}, got[0].Authors)
	assert.Empty(t, got[0].PublishedDate)
}
