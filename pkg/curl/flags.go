package curl

import "strings"

// FormatFlagValue quotes value for use as a shell argument. Values with a
// double quote are single-quoted; everything else is double-quoted with
// " \ $ and ` escaped.
func FormatFlagValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "''"
	}
	if strings.Contains(trimmed, `"`) {
		return shellSingleQuote(trimmed)
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(trimmed); i++ {
		switch c := trimmed[i]; c {
		case '"', '\\', '$', '`':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// OverrideFlag drops every entry of flags that uses flag (matched without
// case) and appends "<flag> <value>" with value shell-quoted.
func OverrideFlag(flags []string, flag, value string) []string {
	lowered := strings.ToLower(flag)
	out := make([]string, 0, len(flags)+1)
	for _, entry := range flags {
		trimmed := strings.ToLower(strings.TrimSpace(entry))
		if trimmed == lowered || strings.HasPrefix(trimmed, lowered+" ") {
			continue
		}
		out = append(out, entry)
	}
	return append(out, flag+" "+FormatFlagValue(value))
}
