package sql

import (
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

// LiteralCheckResult describes an injection pattern found inside a string
// literal of an otherwise-accepted statement.
type LiteralCheckResult struct {
	Literal     string // contents of the offending literal
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// ScreenLiterals runs libinjection over the contents of every single-quoted
// string literal in an already-sanitized statement. The keyword gate cannot see
// inside literals, so a payload smuggled into one (e.g. a probing fragment the
// model echoed from the question) passes Sanitize; this is the second layer.
//
// Returns nil if all literals are clean. This is a heuristic like the keyword
// gate: a clean result is not proof of safety, and a hit on genuinely benign
// data is possible but has not been observed for plain prose values.
func ScreenLiterals(sanitized string) *LiteralCheckResult {
	for _, lit := range extractLiterals(sanitized) {
		if isSQLi, fingerprint := libinjection.IsSQLi(lit); isSQLi {
			return &LiteralCheckResult{
				Literal:     lit,
				Fingerprint: string(fingerprint),
			}
		}
	}
	return nil
}

// extractLiterals returns the contents of each single-quoted literal,
// honoring the SQL standard '' escape.
func extractLiterals(s string) []string {
	var literals []string
	var current strings.Builder
	inLiteral := false

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if !inLiteral {
			if ch == '\'' {
				inLiteral = true
				current.Reset()
			}
			continue
		}
		if ch == '\'' {
			// Doubled quote is an escaped quote inside the literal.
			if i+1 < len(runes) && runes[i+1] == '\'' {
				current.WriteRune('\'')
				i++
				continue
			}
			inLiteral = false
			literals = append(literals, current.String())
			continue
		}
		current.WriteRune(ch)
	}

	return literals
}
