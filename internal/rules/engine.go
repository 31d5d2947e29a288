package rules

import (
	"github.com/solatis/shelfkeeper/internal/types"
)

// Engine bundles the rule functions behind one value for dependency
// injection into the shelf service and CLI. It holds no per-call state and
// is safe for concurrent use.
type Engine struct {
	maxDepth int
	dialect  Dialect
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxDepth bounds group nesting accepted by Validate.
// Values of zero or less fall back to types.MaxTreeDepth.
func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) {
		e.maxDepth = depth
	}
}

// WithDialect selects the SQL dialect Compile emits. The default is SQLite.
func WithDialect(d Dialect) EngineOption {
	return func(e *Engine) {
		e.dialect = d
	}
}

// NewEngine creates a new rules engine instance.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{maxDepth: types.MaxTreeDepth}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxDepth <= 0 {
		e.maxDepth = types.MaxTreeDepth
	}
	return e
}

// MaxDepth returns the nesting limit applied by Validate.
func (e *Engine) MaxDepth() int {
	return e.maxDepth
}

// Dialect returns the SQL dialect Compile emits.
func (e *Engine) Dialect() Dialect {
	return e.dialect
}

// Parse decodes a persisted rule tree.
func (e *Engine) Parse(data []byte) (*Group, error) {
	return Parse(data)
}

// Validate reports every construction-time problem in g.
func (e *Engine) Validate(g *Group) error {
	return Validate(g, e.maxDepth)
}

// Compile lowers g to a SQL boolean expression in the engine's dialect.
func (e *Engine) Compile(g *Group) string {
	return CompileSQLDialect(g, e.dialect)
}

// CompileJSON parses a persisted rule tree and compiles it.
func (e *Engine) CompileJSON(data []byte) (string, error) {
	g, err := Parse(data)
	if err != nil {
		return "", err
	}
	return CompileSQLDialect(g, e.dialect), nil
}

// Evaluate reports whether book satisfies g.
func (e *Engine) Evaluate(book *types.Book, g *Group) bool {
	return EvaluateGroup(book, g)
}

// Count returns how many books satisfy g.
func (e *Engine) Count(books []types.Book, g *Group) int {
	return Count(books, g)
}

// CountJSON counts books matching a persisted rule tree. A tree that does not
// decode yields 0 and an error wrapping types.ErrInvalidFilter; callers show
// an empty shelf rather than failing the page.
func (e *Engine) CountJSON(books []types.Book, data []byte) (int, error) {
	g, err := Parse(data)
	if err != nil {
		return 0, err
	}
	return Count(books, g), nil
}
