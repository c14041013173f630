package curl

import "strings"

// flags with dedicated model fields; compared lower-cased
var skippedFlags = map[string]struct{}{
	"-x":              {},
	"--request":       {},
	"--url":           {},
	"-d":              {},
	"--data":          {},
	"--data-raw":      {},
	"--data-binary":   {},
	"--data-urlencode": {},
	"-h":              {},
	"--header":        {},
	"--write-out":     {},
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isSpace(c byte) bool {
	return isBlank(c) || c == '\v' || c == '\f'
}

func isWordChar(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// Tokenize splits a command into whitespace separated tokens. A token that
// starts with a quote and has a matching closing quote is kept whole,
// quotes included.
func Tokenize(command string) []string {
	var tokens []string
	for i := 0; i < len(command); {
		c := command[i]
		if isBlank(c) {
			i++
			continue
		}
		if c == '\'' || c == '"' {
			if end := strings.IndexByte(command[i+1:], c); end >= 0 {
				tokens = append(tokens, command[i:i+end+2])
				i += end + 2
				continue
			}
		}
		j := i
		for j < len(command) && !isBlank(command[j]) {
			j++
		}
		tokens = append(tokens, command[i:j])
		i = j
	}
	return tokens
}

// ExtractFlags returns the passthrough flags of command: every flag that
// is not mapped to a model field, paired with its value token when the
// next token is not itself a flag. Tokens of the form --flag=value are
// kept whole.
func ExtractFlags(command string) []string {
	tokens := Tokenize(command)
	if len(tokens) == 0 {
		return nil
	}

	var results []string
	for i := 1; i < len(tokens); i++ {
		token := tokens[i]
		if !strings.HasPrefix(token, "-") {
			continue
		}
		hasValue := i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-")

		name, _, inline := strings.Cut(token, "=")
		if _, skip := skippedFlags[strings.ToLower(name)]; skip {
			if !inline && hasValue {
				i++
			}
			continue
		}
		if inline {
			results = append(results, token)
			continue
		}
		if hasValue {
			results = append(results, token+" "+tokens[i+1])
			i++
			continue
		}
		results = append(results, token)
	}
	return results
}

// stripQuotedText replaces every quoted span of command with a single
// space. A backslash escapes the following character inside a span.
func stripQuotedText(command string) string {
	var b strings.Builder
	b.Grow(len(command))
	for i := 0; i < len(command); {
		c := command[i]
		if c == '"' || c == '\'' {
			if end, ok := closingQuote(command, i); ok {
				b.WriteByte(' ')
				i = end + 1
				continue
			}
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func closingQuote(s string, start int) (int, bool) {
	q := s[start]
	for j := start + 1; j < len(s); {
		switch s[j] {
		case q:
			return j, true
		case '\\':
			if j+1 < len(s) && s[j+1] != '\n' && s[j+1] != '\r' {
				j += 2
				continue
			}
			return 0, false
		default:
			j++
		}
	}
	return 0, false
}

// MethodWasExplicit reports whether command sets the method with -X or
// --request outside of any quoted value.
func MethodWasExplicit(command string) bool {
	if command == "" {
		return false
	}
	text := strings.ToLower(stripQuotedText(command))
	for i := 0; i < len(text); i++ {
		if i > 0 && !isSpace(text[i-1]) {
			continue
		}
		rest := text[i:]
		switch {
		case strings.HasPrefix(rest, "--request"):
			after := rest[len("--request"):]
			if after == "" || !isWordChar(after[0]) {
				return true
			}
		case strings.HasPrefix(rest, "-x"):
			after := rest[2:]
			if after == "" || isSpace(after[0]) {
				return true
			}
			n := 0
			for n < len(after) && isLetter(after[n]) {
				n++
			}
			if n > 0 && (n == len(after) || !isWordChar(after[n])) {
				return true
			}
		}
	}
	return false
}

// StripWrappingQuotes removes matching outer quote pairs repeatedly.
func StripWrappingQuotes(value string) string {
	for len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			value = value[1 : len(value)-1]
			continue
		}
		break
	}
	return value
}
