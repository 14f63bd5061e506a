package extract

import (
	"strings"

	m "symveil.dev/pkg/symveil/internal/model"
)

// Mask returns a copy of content in which every comment and string literal,
// delimiters included, is overwritten with spaces. Newlines are kept so byte
// offsets and line numbers stay aligned with the original. Matching against
// the masked text guarantees that protected regions are never touched and
// stay byte-identical in the output.
func Mask(content []byte, dialect m.Dialect) []byte {
	const (
		stCode = iota
		stLineComment
		stBlockComment
		stString
		stMultiString // Swift """ ... """
		stChar        // C character literal
	)

	out := make([]byte, len(content))
	copy(out, content)

	state := stCode
	depth := 0 // Swift block comments nest

	for i := 0; i < len(content); i++ {
		c := content[i]

		switch state {
		case stCode:
			switch {
			case c == '/' && i+1 < len(content) && content[i+1] == '/':
				state = stLineComment
				out[i] = ' '
			case c == '/' && i+1 < len(content) && content[i+1] == '*':
				state = stBlockComment
				depth = 1
				out[i], out[i+1] = ' ', ' '
				i++
			case c == '"':
				if dialect == m.DialectSwift && i+2 < len(content) && content[i+1] == '"' && content[i+2] == '"' {
					state = stMultiString
					out[i], out[i+1], out[i+2] = ' ', ' ', ' '
					i += 2
				} else {
					state = stString
					out[i] = ' '
				}
			case c == '\'' && dialect == m.DialectObjC:
				state = stChar
				out[i] = ' '
			}

		case stLineComment:
			if c == '\n' {
				state = stCode
			} else {
				out[i] = ' '
			}

		case stBlockComment:
			switch {
			case c == '/' && i+1 < len(content) && content[i+1] == '*' && dialect == m.DialectSwift:
				depth++
				out[i], out[i+1] = ' ', ' '
				i++
			case c == '*' && i+1 < len(content) && content[i+1] == '/':
				depth--
				out[i], out[i+1] = ' ', ' '
				i++

				if depth <= 0 {
					state = stCode
				}
			case c != '\n':
				out[i] = ' '
			}

		case stString:
			switch {
			case c == '\\' && i+1 < len(content):
				out[i] = ' '
				if content[i+1] != '\n' {
					out[i+1] = ' '
					i++
				}
			case c == '"':
				out[i] = ' '
				state = stCode
			case c == '\n':
				// Unterminated literal; reset rather than swallowing the file.
				state = stCode
			default:
				out[i] = ' '
			}

		case stMultiString:
			switch {
			case c == '"' && i+2 < len(content) && content[i+1] == '"' && content[i+2] == '"':
				out[i], out[i+1], out[i+2] = ' ', ' ', ' '
				i += 2
				state = stCode
			case c != '\n':
				out[i] = ' '
			}

		case stChar:
			switch {
			case c == '\\' && i+1 < len(content):
				out[i], out[i+1] = ' ', ' '
				i++
			case c == '\'':
				out[i] = ' '
				state = stCode
			case c == '\n':
				state = stCode
			default:
				out[i] = ' '
			}
		}
	}

	return out
}

// logicalLine is one physical-or-joined source line with comments and
// strings already blanked out.
type logicalLine struct {
	num  int // 1-based number of the first physical line
	text string
}

// logicalLines splits masked content into lines, folding explicit
// backslash continuations into the logical line they start on.
func logicalLines(masked []byte, joinContinuations bool) []logicalLine {
	raw := strings.Split(string(masked), "\n")
	lines := make([]logicalLine, 0, len(raw))

	for i := 0; i < len(raw); i++ {
		start := i
		text := raw[i]

		for joinContinuations && strings.HasSuffix(strings.TrimRight(text, " \t"), "\\") && i+1 < len(raw) {
			text = strings.TrimSuffix(strings.TrimRight(text, " \t"), "\\") + " " + raw[i+1]
			i++
		}

		lines = append(lines, logicalLine{num: start + 1, text: text})
	}

	return lines
}
