package extract

import (
	"fmt"
	"regexp"
	"strings"

	m "symveil.dev/pkg/symveil/internal/model"
)

// ObjCHandler extracts symbols from Objective-C headers and implementations.
type ObjCHandler struct{}

// NewObjCHandler constructs the Objective-C dialect handler.
func NewObjCHandler() *ObjCHandler {
	return &ObjCHandler{}
}

// Dialect identifies the handled dialect.
func (h *ObjCHandler) Dialect() m.Dialect { return m.DialectObjC }

// Extensions lists the accepted file extensions.
func (h *ObjCHandler) Extensions() []string { return []string{".h", ".m", ".mm"} }

var (
	reObjCCategory  = regexp.MustCompile(`^\s*@interface\s+([A-Za-z_]\w*)\s*\(\s*([A-Za-z_]\w*)\s*\)`)
	reObjCInterface = regexp.MustCompile(`^\s*@interface\s+([A-Za-z_]\w*)`)
	reObjCImpl      = regexp.MustCompile(`^\s*@implementation\s+([A-Za-z_]\w*)(?:\s*\(\s*([A-Za-z_]\w*)\s*\))?`)
	reObjCProtoFwd  = regexp.MustCompile(`^\s*@protocol\s+[A-Za-z_]\w*(\s*,\s*[A-Za-z_]\w*)*\s*;`)
	reObjCProtocol  = regexp.MustCompile(`^\s*@protocol\s+([A-Za-z_]\w*)`)
	reObjCProperty  = regexp.MustCompile(`^\s*@property\s*(?:\([^)]*\))?[^;]*?([A-Za-z_]\w*)\s*;`)
	reObjCSelPart   = regexp.MustCompile(`^([A-Za-z_]\w*)\s*:\s*(?:\([^()]*(?:\([^()]*\)[^()]*)*\)\s*)?(?:[A-Za-z_]\w*)?\s*`)
	reObjCSelBare   = regexp.MustCompile(`^([A-Za-z_]\w*)\s*[;{]`)
	reObjCMethod    = regexp.MustCompile(`^\s*([-+])\s*\([^)]*\)\s*`)
)

// Extract scans Objective-C content. Properties and methods are only
// recognized inside @interface/@implementation/@protocol blocks; anything
// the patterns do not recognize is skipped silently.
func (h *ObjCHandler) Extract(content []byte, path m.Path) ([]m.Symbol, []error) {
	masked := Mask(content, m.DialectObjC)
	lines := logicalLines(masked, true)

	var (
		symbols []m.Symbol
		errs    []error
		inDecl  bool
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

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		text := line.text

		switch {
		case reObjCCategory.MatchString(text):
			parts := reObjCCategory.FindStringSubmatch(text)
			emit(line, parts[1], m.KindClass)
			emit(line, parts[2], m.KindCategory)

			inDecl = true

		case reObjCInterface.MatchString(text):
			emit(line, reObjCInterface.FindStringSubmatch(text)[1], m.KindClass)

			inDecl = true

		case reObjCImpl.MatchString(text):
			parts := reObjCImpl.FindStringSubmatch(text)
			emit(line, parts[1], m.KindClass)

			if parts[2] != "" {
				emit(line, parts[2], m.KindCategory)
			}

			inDecl = true

		case reObjCProtoFwd.MatchString(text):
			// Forward declaration, not a protocol definition.

		case reObjCProtocol.MatchString(text):
			emit(line, reObjCProtocol.FindStringSubmatch(text)[1], m.KindProtocol)

			inDecl = true

		case strings.HasPrefix(strings.TrimSpace(text), "@end"):
			inDecl = false

		case inDecl && reObjCProperty.MatchString(text):
			emit(line, reObjCProperty.FindStringSubmatch(text)[1], m.KindProperty)

		case inDecl && reObjCMethod.MatchString(text):
			joined, consumed := joinMethodDeclaration(lines, i)

			labels, err := parseSelector(joined.text)
			if err != nil {
				errs = append(errs, &m.ParseError{File: path, Line: line.num, Err: err})
				i += consumed

				continue
			}

			if len(labels) > 0 {
				emit(joined, labels[0], m.KindMethod, labels...)
			}

			i += consumed
		}
	}

	return symbols, errs
}

// joinMethodDeclaration folds a method declaration that spans physical lines
// (selector parts on their own lines) into one logical line. The lookahead
// is bounded so runaway input cannot stall the scanner.
func joinMethodDeclaration(lines []logicalLine, start int) (logicalLine, int) {
	const maxLookahead = 8

	joined := lines[start]
	consumed := 0

	for !strings.ContainsAny(joined.text, ";{") && consumed < maxLookahead && start+consumed+1 < len(lines) {
		consumed++
		joined.text += " " + lines[start+consumed].text
	}

	return joined, consumed
}

// parseSelector returns the full label sequence of an Objective-C method
// declaration, e.g. "- (void)load;" yields ["load"] and
// "- (BOOL)write:(NSData *)d to:(NSURL *)u;" yields ["write", "to"].
func parseSelector(text string) ([]string, error) {
	loc := reObjCMethod.FindStringIndex(text)
	if loc == nil {
		return nil, fmt.Errorf("not a method declaration")
	}

	rest := text[loc[1]:]

	if parts := reObjCSelBare.FindStringSubmatch(rest); parts != nil {
		return []string{parts[1]}, nil
	}

	var labels []string

	for {
		parts := reObjCSelPart.FindStringSubmatch(rest)
		if parts == nil {
			break
		}

		labels = append(labels, parts[1])
		rest = rest[len(parts[0]):]
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("selector not recognized in %q", strings.TrimSpace(text))
	}

	return labels, nil
}

// spanFor locates the first occurrence of name inside the logical line.
func spanFor(line logicalLine, name string) m.Span {
	col := strings.Index(line.text, name)
	if col < 0 {
		col = 0
	}

	return m.Span{Line: line.num, Start: col, End: col + len(name)}
}
