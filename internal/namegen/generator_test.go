package namegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "symveil.dev/pkg/symveil/internal/model"
)

func TestParseStrategy(t *testing.T) {
	for _, s := range []string{"random", "seeded", "prefixed", "dictionary", " Seeded "} {
		_, err := ParseStrategy(s)
		assert.NoError(t, err, s)
	}

	_, err := ParseStrategy("caesar")
	assert.Error(t, err)
}

func TestGenerate_SeededIsDeterministicAcrossGenerators(t *testing.T) {
	first := New(StrategySeeded, WithSeed("fixed-seed"))
	second := New(StrategySeeded, WithSeed("fixed-seed"))

	inputs := []struct {
		name string
		kind m.SymbolKind
	}{
		{"UserStore", m.KindClass},
		{"loadData", m.KindMethod},
		{"load", m.KindMethod},
		{"userName", m.KindProperty},
	}

	for _, in := range inputs {
		a := first.Generate(in.name, in.kind)
		b := second.Generate(in.name, in.kind)
		require.False(t, a.Conflict)
		assert.Equal(t, a.Name, b.Name, "identical seed+input+prior-issued-set must agree for %s", in.name)
	}
}

func TestGenerate_SeedChangesOutput(t *testing.T) {
	a := New(StrategySeeded, WithSeed("seed-one")).Generate("UserStore", m.KindClass)
	b := New(StrategySeeded, WithSeed("seed-two")).Generate("UserStore", m.KindClass)

	assert.NotEqual(t, a.Name, b.Name)
}

func TestGenerate_DistinctOriginalsGetDistinctNames(t *testing.T) {
	g := New(StrategySeeded, WithSeed("s"))
	seen := make(map[string]string)

	for _, name := range []string{"load", "loadData", "loadDataAsync", "UserStore", "SessionStore"} {
		res := g.Generate(name, m.KindMethod)
		require.False(t, res.Conflict)

		prev, dup := seen[res.Name]
		require.False(t, dup, "%s and %s collided on %s", prev, name, res.Name)
		seen[res.Name] = name
	}
}

func TestGenerate_CaseFollowsKind(t *testing.T) {
	g := New(StrategySeeded, WithSeed("s"))

	class := g.Generate("UserStore", m.KindClass)
	assert.Regexp(t, `^[A-Z]`, class.Name)

	method := g.Generate("loadData", m.KindMethod)
	assert.Regexp(t, `^[a-z]`, method.Name)

	proto := g.Generate("Syncable", m.KindProtocol)
	assert.Regexp(t, `^[A-Z]`, proto.Name)
}

func TestGenerate_PrefixedStrategy(t *testing.T) {
	g := New(StrategyPrefixed, WithPrefix("obf"), WithSeed("s"))

	res := g.Generate("loadData", m.KindMethod)
	require.False(t, res.Conflict)
	assert.Regexp(t, `^obf`, res.Name)
}

func TestGenerate_DictionaryStrategyLooksNatural(t *testing.T) {
	g := New(StrategyDictionary, WithSeed("s"))

	res := g.Generate("UserStore", m.KindClass)
	require.False(t, res.Conflict)
	assert.Regexp(t, `^[A-Za-z]+$`, res.Name)
	assert.GreaterOrEqual(t, len(res.Name), 6)
}

func TestGenerate_CollisionRetriesWithSuffix(t *testing.T) {
	g := New(StrategySeeded, WithSeed("s"))

	first := g.Generate("original", m.KindMethod)
	require.False(t, first.Conflict)

	// A second original whose attempt-0 candidate is forced to collide via
	// the external taken-check still succeeds through the retry path.
	blocked := map[string]bool{first.Name: true}
	g2 := New(StrategySeeded, WithSeed("s"), WithTakenCheck(func(n string) bool { return blocked[n] }))

	second := g2.Generate("original", m.KindMethod)
	require.False(t, second.Conflict)
	assert.NotEqual(t, first.Name, second.Name)
	assert.Greater(t, second.Attempts, 1)
}

func TestGenerate_ExhaustedBudgetReturnsConflict(t *testing.T) {
	g := New(StrategySeeded, WithSeed("s"), WithTakenCheck(func(string) bool { return true }))

	res := g.Generate("doomed", m.KindMethod)
	assert.True(t, res.Conflict)
	assert.Equal(t, maxAttempts, res.Attempts)
	assert.Empty(t, res.Name)
}

func TestGenerate_NeverEmitsKeywords(t *testing.T) {
	// Force the first candidate through, then verify the keyword filter is
	// consulted by rejecting everything that isn't obviously synthetic.
	calls := 0
	g := New(StrategySeeded, WithSeed("s"), WithKeywordCheck(func(name string) bool {
		calls++
		return calls == 1 // reject the first candidate as a "keyword"
	}))

	res := g.Generate("loadData", m.KindMethod)
	require.False(t, res.Conflict)
	assert.GreaterOrEqual(t, res.Attempts, 2)
}

func TestGenerate_RandomNamesAreUniqueWithinRun(t *testing.T) {
	g := New(StrategyRandom)
	seen := make(map[string]bool)

	for i := 0; i < 200; i++ {
		res := g.Generate("sym", m.KindMethod)
		require.False(t, res.Conflict)
		require.False(t, seen[res.Name], "duplicate random name %s", res.Name)
		seen[res.Name] = true
	}
}
