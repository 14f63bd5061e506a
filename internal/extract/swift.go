package extract

import (
	"regexp"
	"strings"

	m "symveil.dev/pkg/symveil/internal/model"
)

// SwiftHandler extracts symbols from Swift sources.
type SwiftHandler struct{}

// NewSwiftHandler constructs the Swift dialect handler.
func NewSwiftHandler() *SwiftHandler {
	return &SwiftHandler{}
}

// Dialect identifies the handled dialect.
func (h *SwiftHandler) Dialect() m.Dialect { return m.DialectSwift }

// Extensions lists the accepted file extensions.
func (h *SwiftHandler) Extensions() []string { return []string{".swift"} }

var (
	swiftModifiers = `(?:(?:public|private|internal|fileprivate|open|final|static|class|indirect|dynamic|override|required|convenience|mutating|nonisolated|lazy|weak|unowned|@\w+(?:\([^)]*\))?)\s+)*`

	reSwiftType      = regexp.MustCompile(`^\s*` + swiftModifiers + `(class|struct|enum|actor)\s+([A-Za-z_]\w*)`)
	reSwiftProtocol  = regexp.MustCompile(`^\s*` + swiftModifiers + `protocol\s+([A-Za-z_]\w*)`)
	reSwiftExtension = regexp.MustCompile(`^\s*` + swiftModifiers + `extension\s+([A-Za-z_]\w*)`)
	reSwiftFunc      = regexp.MustCompile(`^\s*` + swiftModifiers + `func\s+([A-Za-z_]\w*)\s*(?:<[^>]*>)?\s*\(([^)]*)`)
	reSwiftProperty  = regexp.MustCompile(`^\s*` + swiftModifiers + `(?:var|let)\s+([A-Za-z_]\w*)`)
	reSwiftParam     = regexp.MustCompile(`(?:^|,)\s*(_|[A-Za-z_]\w*)(?:\s+[A-Za-z_]\w*)?\s*:`)
)

// braceContext tags what kind of scope an opening brace introduced, so
// stored properties are only emitted inside type bodies.
type braceContext int

const (
	ctxBlock braceContext = iota
	ctxType
)

// Extract scans Swift content line by line. Type, protocol and extension
// declarations are recognized at any depth; `func` anywhere; `var`/`let`
// only when the innermost enclosing brace belongs to a type body. Generic
// parameter lists are consumed, never emitted as symbols, and `where`
// clauses are skipped permissively.
func (h *SwiftHandler) Extract(content []byte, path m.Path) ([]m.Symbol, []error) {
	masked := Mask(content, m.DialectSwift)
	lines := logicalLines(masked, false)

	var (
		symbols []m.Symbol
		stack   []braceContext
	)

	emit := func(line logicalLine, name string, kind m.SymbolKind, labels ...string) {
		if name == "" {
			return
		}

		symbols = append(symbols, m.Symbol{
			Name:          name,
			Kind:          kind,
			DeclaringFile: path,
			Spans:         []m.Span{spanFor(line, name)},
			Labels:        labels,
		})
	}

	for _, line := range lines {
		text := line.text
		lineCtx := ctxBlock

		switch {
		case reSwiftType.MatchString(text):
			parts := reSwiftType.FindStringSubmatch(text)
			// `class func` / `class var` are member modifiers, not types.
			if !isMemberModifierUse(text, parts[1]) {
				emit(line, parts[2], m.KindClass)

				lineCtx = ctxType
			}

		case reSwiftProtocol.MatchString(text):
			emit(line, reSwiftProtocol.FindStringSubmatch(text)[1], m.KindProtocol)

			lineCtx = ctxType

		case reSwiftExtension.MatchString(text):
			// An extension declares no new name. Record a class-kind
			// occurrence of the extended type so it shares the type's
			// obfuscated name instead of diverging.
			emit(line, reSwiftExtension.FindStringSubmatch(text)[1], m.KindClass)

			lineCtx = ctxType
		}

		if parts := reSwiftFunc.FindStringSubmatch(text); parts != nil {
			emit(line, parts[1], m.KindMethod, funcLabels(parts[1], parts[2])...)
		} else if parts := reSwiftProperty.FindStringSubmatch(text); parts != nil {
			if insideType(stack) {
				emit(line, parts[1], m.KindProperty)
			}
		}

		stack = updateBraces(stack, text, lineCtx)
	}

	return symbols, nil
}

// isMemberModifierUse reports whether a `class` keyword on this line is a
// member modifier (`class func`, `class var`) rather than a declaration.
func isMemberModifierUse(text, keyword string) bool {
	if keyword != "class" {
		return false
	}

	idx := strings.Index(text, "class")
	rest := strings.TrimLeft(text[idx+len("class"):], " \t")

	return strings.HasPrefix(rest, "func ") || strings.HasPrefix(rest, "var ") || strings.HasPrefix(rest, "let ")
}

// funcLabels returns the external label sequence of a Swift function: the
// base name followed by each parameter's external label. Wildcard labels are
// omitted from the sequence.
func funcLabels(name, params string) []string {
	labels := []string{name}

	for _, match := range reSwiftParam.FindAllStringSubmatch(params, -1) {
		if match[1] != "_" {
			labels = append(labels, match[1])
		}
	}

	return labels
}

// insideType reports whether the innermost open brace belongs to a type.
func insideType(stack []braceContext) bool {
	return len(stack) > 0 && stack[len(stack)-1] == ctxType
}

// updateBraces pushes/pops brace contexts for one masked line. The first
// opening brace on a declaration line carries that declaration's context;
// any further braces are plain blocks.
func updateBraces(stack []braceContext, text string, lineCtx braceContext) []braceContext {
	first := true

	for _, c := range text {
		switch c {
		case '{':
			if first {
				stack = append(stack, lineCtx)
				first = false
			} else {
				stack = append(stack, ctxBlock)
			}
		case '}':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	return stack
}
