// Package extract turns arbitrary model output into a parsed JSON string.
// Model text is untrusted: it may wrap JSON in markdown fences, prose,
// comments or sloppy quoting. Extraction is pure and never panics; callers
// treat the false return as the error signal.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencePatterns = []*regexp.Regexp{
	// ```json ... ``` or ``` ... ```
	regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\n?(.*?)```"),
	regexp.MustCompile(`(?s)<json>(.*?)</json>`),
	regexp.MustCompile(`(?s)\[JSON\](.*?)\[/JSON\]`),
}

// Extract attempts to recover a syntactically valid JSON document from raw
// model text. Strategies are tried in order: parse as-is, first delimited
// block, brace-span scan with a repair pass. Returns false if no strategy
// yields valid JSON.
func Extract(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}

	// (a) The whole text already parses.
	if json.Valid([]byte(trimmed)) {
		return trimmed, true
	}

	// (b) First fenced/delimited block.
	for _, pattern := range fencePatterns {
		if m := pattern.FindStringSubmatch(trimmed); m != nil {
			block := strings.TrimSpace(m[1])
			if json.Valid([]byte(block)) {
				return block, true
			}
			if repaired, ok := repairObject(block); ok {
				return repaired, true
			}
		}
	}

	// (c) Brace-span scan over the full text plus repair.
	return repairObject(trimmed)
}

// repairObject locates the first {...} span and applies the repair pass:
// trailing prose truncation, comment stripping, bare-key quoting,
// single-quote conversion and trailing-comma removal.
func repairObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	span := text[start : end+1]

	if json.Valid([]byte(span)) {
		return span, true
	}

	repaired := stripComments(span)
	repaired = convertSingleQuotes(repaired)
	repaired = quoteBareKeys(repaired)
	repaired = stripTrailingCommas(repaired)
	repaired = strings.TrimSpace(repaired)

	// The repair pass may expose a shorter valid span; cut trailing prose
	// after the last closing brace again.
	if idx := strings.LastIndex(repaired, "}"); idx >= 0 {
		repaired = repaired[:idx+1]
	}

	if json.Valid([]byte(repaired)) {
		return repaired, true
	}
	return "", false
}

// stripComments removes // line comments and /* */ block comments outside
// of string literals.
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	i := 0
	for i < len(s) {
		c := s[i]
		if inString {
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			i++
			continue
		}
		switch {
		case c == '"':
			inString = true
			b.WriteByte(c)
			i++
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			i += 2
			for i+1 < len(s) && !(s[i] == '*' && s[i+1] == '/') {
				i++
			}
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// convertSingleQuotes rewrites single-quoted strings to double-quoted ones
// outside of existing double-quoted strings.
func convertSingleQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inDouble := false
	inSingle := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			b.WriteByte(c)
			escaped = true
		case inDouble:
			b.WriteByte(c)
			if c == '"' {
				inDouble = false
			}
		case inSingle:
			if c == '\'' {
				b.WriteByte('"')
				inSingle = false
			} else if c == '"' {
				b.WriteString(`\"`)
			} else {
				b.WriteByte(c)
			}
		case c == '"':
			b.WriteByte(c)
			inDouble = true
		case c == '\'':
			b.WriteByte('"')
			inSingle = true
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

var bareKeyPattern = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)

// quoteBareKeys wraps unquoted object keys in double quotes.
func quoteBareKeys(s string) string {
	return bareKeyPattern.ReplaceAllString(s, `$1"$2"$3`)
}

var trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)

// stripTrailingCommas removes commas directly preceding a closing bracket.
func stripTrailingCommas(s string) string {
	return trailingCommaPattern.ReplaceAllString(s, `$1`)
}
