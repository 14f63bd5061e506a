// Package namegen issues collision-free obfuscated names.
package namegen

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/big"
	"strings"

	m "symveil.dev/pkg/symveil/internal/model"
)

// Strategy selects how obfuscated names are derived.
type Strategy string

const (
	// StrategyRandom issues unpredictable readable names.
	StrategyRandom Strategy = "random"
	// StrategySeeded derives names deterministically from a fixed seed, so
	// identical (seed, original, kind, prior-issued-set) yields identical
	// results across processes. Required for stable incremental runs.
	StrategySeeded Strategy = "seeded"
	// StrategyPrefixed prepends a fixed prefix to a scrambled stem.
	StrategyPrefixed Strategy = "prefixed"
	// StrategyDictionary combines plausible words so output resembles
	// hand-written identifiers.
	StrategyDictionary Strategy = "dictionary"
)

// ParseStrategy validates a strategy name from configuration.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyRandom:
		return StrategyRandom, nil
	case StrategySeeded:
		return StrategySeeded, nil
	case StrategyPrefixed:
		return StrategyPrefixed, nil
	case StrategyDictionary:
		return StrategyDictionary, nil
	}

	return "", fmt.Errorf("unknown naming strategy %q", s)
}

// maxAttempts bounds collision retries before the run aborts with a
// NameConflictError. A silent duplicate is worse than aborting.
const maxAttempts = 10

// Keyword reports names the generator must never emit. Injected by the
// caller (typically whitelist.Registry.IsWhitelisted) so the generator
// stays decoupled from the registry.
type Keyword func(name string) bool

// Generator issues names and tracks what has already been handed out. The
// issued index is single-writer: the engine runs generation sequentially
// behind the extraction barrier.
type Generator struct {
	strategy Strategy
	seed     string
	prefix   string
	isTaken  func(string) bool
	keyword  Keyword
	issued   map[string]struct{}
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed fixes the deterministic seed (seeded strategy).
func WithSeed(seed string) Option {
	return func(g *Generator) { g.seed = seed }
}

// WithPrefix sets the identifier prefix (prefixed strategy).
func WithPrefix(prefix string) Option {
	return func(g *Generator) { g.prefix = prefix }
}

// WithTakenCheck wires an external reverse index, typically the run
// mapping, consulted in addition to the generator's own issued set.
func WithTakenCheck(fn func(string) bool) Option {
	return func(g *Generator) { g.isTaken = fn }
}

// WithKeywordCheck prevents emitting dialect keywords or whitelisted names.
func WithKeywordCheck(fn Keyword) Option {
	return func(g *Generator) { g.keyword = fn }
}

// New constructs a Generator for the given strategy.
func New(strategy Strategy, opts ...Option) *Generator {
	g := &Generator{
		strategy: strategy,
		prefix:   "sv",
		issued:   make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Result is the outcome of one generation request. Exhausted collisions are
// reported as a value, letting callers choose abort-vs-continue policy.
type Result struct {
	Name     string
	Conflict bool // true when the retry budget was exhausted
	Attempts int
	Original string
	Kind     m.SymbolKind
}

// Generate issues an obfuscated name for an original symbol. The result is
// never a duplicate of a previously issued name; when the retry budget runs
// out the Conflict flag is set instead.
func (g *Generator) Generate(original string, kind m.SymbolKind) Result {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := g.candidate(original, kind, attempt)
		candidate = matchCase(candidate, original, kind)

		if g.acceptable(candidate) {
			g.issued[candidate] = struct{}{}
			return Result{Name: candidate, Attempts: attempt + 1, Original: original, Kind: kind}
		}
	}

	return Result{Conflict: true, Attempts: maxAttempts, Original: original, Kind: kind}
}

func (g *Generator) acceptable(candidate string) bool {
	if candidate == "" {
		return false
	}

	if _, taken := g.issued[candidate]; taken {
		return false
	}

	if g.isTaken != nil && g.isTaken(candidate) {
		return false
	}

	if g.keyword != nil && g.keyword(candidate) {
		return false
	}

	return true
}

// candidate derives the attempt-specific raw name. Retries append a
// disambiguating suffix derived from the original name and attempt count so
// deterministic strategies stay reproducible.
func (g *Generator) candidate(original string, kind m.SymbolKind, attempt int) string {
	var base string

	switch g.strategy {
	case StrategySeeded:
		base = seededName(g.seed, original, kind, attempt)
	case StrategyPrefixed:
		base = g.prefix + capitalize(seededName(g.seed, original, kind, attempt))
	case StrategyDictionary:
		base = dictionaryName(g.seed, original, kind, attempt)
	default:
		base = randomName()
	}

	if attempt > 0 && g.strategy == StrategyRandom {
		base += disambiguator(original, attempt)
	}

	return base
}

// seededName maps (seed, kind, original, attempt) to a pronounceable
// identifier through SHA-256, so separate processes agree on the output.
func seededName(seed, original string, kind m.SymbolKind, attempt int) string {
	sum := sha256.Sum256([]byte(seed + "\x00" + string(kind) + "\x00" + original + "\x00" + fmt.Sprint(attempt)))
	return pronounceable(sum[:], 8+int(sum[0])%5)
}

// dictionaryName combines vocabulary words keyed off the seeded hash.
func dictionaryName(seed, original string, kind m.SymbolKind, attempt int) string {
	sum := sha256.Sum256([]byte(seed + "\x01" + string(kind) + "\x01" + original + "\x01" + fmt.Sprint(attempt)))
	a := binary.BigEndian.Uint32(sum[0:4])
	b := binary.BigEndian.Uint32(sum[4:8])
	c := binary.BigEndian.Uint32(sum[8:12])

	name := verbs[a%uint32(len(verbs))] + capitalize(nouns[b%uint32(len(nouns))])
	if c%3 == 0 {
		name += capitalize(qualifiers[c%uint32(len(qualifiers))])
	}

	return name
}

// randomName produces an unpredictable but readable identifier by
// alternating consonants and vowels.
func randomName() string {
	length := 6 + secureRandInt(6)
	buf := make([]byte, length)

	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable for random mode; fall back
		// to a deterministic-ish stub that the caller's collision check
		// still guards.
		for i := range buf {
			buf[i] = byte(i * 31)
		}
	}

	return pronounceable(buf, length)
}

// pronounceable renders hash bytes as alternating consonant/vowel runs.
func pronounceable(src []byte, length int) string {
	const (
		vowels     = "aeiou"
		consonants = "bcdfghjklmnpqrstvwxz"
	)

	if length < 4 {
		length = 4
	}

	var b strings.Builder

	for i := 0; i < length; i++ {
		c := src[i%len(src)]
		if i%2 == 0 {
			b.WriteByte(consonants[int(c)%len(consonants)])
		} else {
			b.WriteByte(vowels[int(c)%len(vowels)])
		}
	}

	return b.String()
}

// disambiguator derives the collision-retry suffix from the original name
// and attempt count.
func disambiguator(original string, attempt int) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(original))

	return fmt.Sprintf("%x%d", h.Sum32()&0xfff, attempt)
}

// matchCase aligns the candidate's leading case with the symbol kind:
// types, protocols and categories keep an uppercase initial, methods and
// properties a lowercase one.
func matchCase(candidate, original string, kind m.SymbolKind) string {
	if candidate == "" {
		return candidate
	}

	switch kind {
	case m.KindClass, m.KindProtocol, m.KindCategory:
		return capitalize(candidate)
	default:
		return strings.ToLower(candidate[:1]) + candidate[1:]
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}

func secureRandInt(max int) int {
	if max <= 0 {
		return 0
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}

	return int(n.Int64())
}
