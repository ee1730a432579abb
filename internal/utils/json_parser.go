package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	fenceRe         = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.+?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
	controlRe       = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)

	curlyQuotes = strings.NewReplacer("“", `"`, "”", `"`, "„", `"`)

	pythonLiterals = map[string]string{"True": "true", "False": "false", "None": "null"}
)

// ParseOracleJSON decodes the JSON value embedded in a model completion into target.
// Candidates are tried in order: the whole completion, each fenced code block, then the
// first balanced object and array. Each candidate is tried verbatim, then repaired;
// a candidate that does not decode into target falls through to the next one.
func ParseOracleJSON(completion string, target any) error {
	completion = strings.TrimSpace(strings.TrimPrefix(completion, "\ufeff"))
	if completion == "" {
		return errors.New("empty completion")
	}

	var decodeErr error
	for _, candidate := range jsonCandidates(completion) {
		for _, text := range []string{candidate, repairJSON(candidate)} {
			if !json.Valid([]byte(text)) {
				continue
			}
			if decodeErr = json.Unmarshal([]byte(text), target); decodeErr == nil {
				return nil
			}
			break
		}
	}

	if decodeErr != nil {
		return decodeErr
	}
	return fmt.Errorf("no JSON value in completion %q", excerpt(completion, 100))
}

func jsonCandidates(completion string) []string {
	candidates := []string{completion}
	for _, m := range fenceRe.FindAllStringSubmatch(completion, -1) {
		candidates = append(candidates, m[1])
	}
	if obj := balanced(completion, '{', '}'); obj != "" {
		candidates = append(candidates, obj)
	}
	if arr := balanced(completion, '[', ']'); arr != "" {
		candidates = append(candidates, arr)
	}
	return candidates
}

// balanced returns the first open...close span of s, skipping delimiters inside strings
func balanced(s string, open, close rune) string {
	start := strings.IndexRune(s, open)
	if start < 0 {
		return ""
	}

	depth := 0
	inString, escaped := false, false
	for i, r := range s[start:] {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
		case r == open:
			depth++
		case r == close:
			depth--
			if depth == 0 {
				return s[start : start+i+1]
			}
		}
	}
	return ""
}

// repairJSON fixes the mistakes completions make most often: typographic quotes,
// single-quoted strings, Python literals, bare keys, trailing commas and control characters.
func repairJSON(s string) string {
	s = curlyQuotes.Replace(s)
	s = normalizeTokens(s)
	s = bareKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return controlRe.ReplaceAllString(s, "")
}

// normalizeTokens rewrites single-quoted strings and Python literals found outside strings
func normalizeTokens(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))

	inString, escaped := false, false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inString:
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
		case r == '"':
			inString = true
		case r == '\'' && startsValue(runes, i):
			j := i + 1
			b.WriteRune('"')
			for ; j < len(runes) && runes[j] != '\''; j++ {
				if runes[j] == '"' {
					b.WriteRune('\\')
				}
				b.WriteRune(runes[j])
			}
			b.WriteRune('"')
			i = j
			continue
		case unicode.IsLetter(r):
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			word := string(runes[i:j])
			if lit, ok := pythonLiterals[word]; ok {
				word = lit
			}
			b.WriteString(word)
			i = j - 1
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// startsValue reports whether position i follows a structural character
func startsValue(runes []rune, i int) bool {
	for j := i - 1; j >= 0; j-- {
		if unicode.IsSpace(runes[j]) {
			continue
		}
		return strings.ContainsRune("{[,:", runes[j])
	}
	return true
}

func excerpt(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
