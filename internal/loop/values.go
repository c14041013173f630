package loop

import (
	"strings"

	"github.com/funnyzak/reqloop/pkg/curl"
)

// ParseValues reads loop values from text, one per line. Blank lines are
// skipped. A line wrapped in matching quotes is taken literally without
// its quotes; any other line is decoded as JSON when it parses and kept as
// a string otherwise.
//
//	1        -> json.Number("1")
//	"1"      -> "1"
//	{"a":1}  -> map[string]any{"a": json.Number("1")}
//	hello    -> "hello"
func ParseValues(text string) []any {
	var values []any
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) >= 2 {
			first, last := line[0], line[len(line)-1]
			if first == last && (first == '"' || first == '\'') {
				values = append(values, line[1:len(line)-1])
				continue
			}
		}
		if v, err := curl.ParseJSON(line); err == nil {
			values = append(values, v)
			continue
		}
		values = append(values, line)
	}
	return values
}
