package rules_test

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/shelfkeeper/internal/rules"
	"github.com/solatis/shelfkeeper/internal/rules/rulestest"
)

// Property-based test: compiling and evaluating are deterministic
func TestProperty_Deterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	catalog := rulestest.Catalog()

	properties.Property("same tree yields same SQL and same matches", prop.ForAll(
		func(seed int64) bool {
			tree := rulestest.RandomTree(rand.New(rand.NewSource(seed)), 3)
			again := rulestest.RandomTree(rand.New(rand.NewSource(seed)), 3)

			if rules.CompileSQL(tree) != rules.CompileSQL(tree) || rules.CompileSQL(tree) != rules.CompileSQL(again) {
				return false
			}
			for i := range catalog {
				if rules.EvaluateGroup(&catalog[i], tree) != rules.EvaluateGroup(&catalog[i], again) {
					return false
				}
			}
			return true
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

// Property-based test: inserting inert rules anywhere changes nothing
func TestProperty_InertNeutrality(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	catalog := rulestest.Catalog()

	properties.Property("inert rules are invisible to both evaluators", prop.ForAll(
		func(seed int64) bool {
			r := rand.New(rand.NewSource(seed))
			tree := rulestest.RandomTree(r, 2)
			if len(tree.Rules) == 0 {
				return true
			}
			padded := &rules.Group{Join: tree.Join}
			for _, n := range tree.Rules {
				if r.Intn(2) == 0 {
					padded.Rules = append(padded.Rules, rules.Leaf(rulestest.InertRule(r)))
				}
				padded.Rules = append(padded.Rules, n)
			}
			padded.Rules = append(padded.Rules, rules.Leaf(rulestest.InertRule(r)))

			if rules.CompileSQL(tree) != rules.CompileSQL(padded) {
				return false
			}
			for i := range catalog {
				if rules.EvaluateGroup(&catalog[i], tree) != rules.EvaluateGroup(&catalog[i], padded) {
					return false
				}
			}
			return true
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

// Property-based test: a tree survives a JSON round trip unchanged in meaning
func TestProperty_JSONRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	catalog := rulestest.Catalog()

	properties.Property("marshal then parse preserves SQL and matches", prop.ForAll(
		func(seed int64) bool {
			tree := rulestest.RandomTree(rand.New(rand.NewSource(seed)), 3)
			data, err := json.Marshal(tree)
			if err != nil {
				return false
			}
			back, err := rules.Parse(data)
			if err != nil {
				return false
			}
			if rules.CompileSQL(tree) != rules.CompileSQL(back) {
				return false
			}
			for i := range catalog {
				if rules.EvaluateGroup(&catalog[i], tree) != rules.EvaluateGroup(&catalog[i], back) {
					return false
				}
			}
			return true
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

// Property-based test: evaluation never panics, even on nil books
func TestProperty_NeverPanics(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("evaluation is total", prop.ForAll(
		func(seed int64) bool {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("EvaluateGroup() panicked: %v", r)
				}
			}()
			tree := rulestest.RandomTree(rand.New(rand.NewSource(seed)), 4)
			_ = rules.EvaluateGroup(nil, tree)
			_ = rules.Count(rulestest.Catalog(), tree)
			return true
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}
