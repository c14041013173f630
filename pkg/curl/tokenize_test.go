package curl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize(`curl -H 'A: b' "x y"  -d'z w'` + "\n\t--compressed")
	assert.Equal(t, []string{"curl", "-H", "'A: b'", `"x y"`, "-d'z", "w'", "--compressed"}, tokens)
}

func TestTokenizeUnterminatedQuote(t *testing.T) {
	assert.Equal(t, []string{"curl", "'abc", "def"}, Tokenize("curl 'abc def"))
}

func TestExtractFlags(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
	}{
		{
			name:    "mixed passthrough flags",
			command: `curl -X POST 'https://a.io' -H 'A: b' --insecure --max-time 5 -d 'x=1' --compressed --proxy=http://p`,
			want:    []string{"--insecure", "--max-time 5", "--compressed", "--proxy=http://p"},
		},
		{
			name:    "skipped inline flags keep the next token",
			command: `curl --data-raw={"a":1} --location https://a.io`,
			want:    []string{"--location https://a.io"},
		},
		{
			name:    "header flags are never passthrough",
			command: `curl https://a.io -H 'X: 1' --header 'Y: 2' -h`,
			want:    nil,
		},
		{
			name:    "write-out is owned by the runner",
			command: `curl https://a.io --write-out '%{http_code}' -k`,
			want:    []string{"-k"},
		},
		{name: "empty command", command: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFlags(tt.command))
		})
	}
}

func TestMethodWasExplicit(t *testing.T) {
	tests := []struct {
		command string
		want    bool
	}{
		{"curl -X POST https://a.io", true},
		{"curl -XPUT https://a.io", true},
		{"curl --request=PATCH https://a.io", true},
		{"curl --request DELETE https://a.io", true},
		{"curl https://a.io -H 'X-Mode: -X POST'", false},
		{`curl https://a.io -d "--request"`, false},
		{"curl https://a.io -d x=1", false},
		{"curl https://a.io/-X", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			assert.Equal(t, tt.want, MethodWasExplicit(tt.command))
		})
	}
}

func TestStripQuotedText(t *testing.T) {
	assert.Equal(t, "curl   -H  ", stripQuotedText(`curl 'a b' -H "c \" d"`))
	assert.Equal(t, "curl 'open", stripQuotedText("curl 'open"))
}

func TestStripWrappingQuotes(t *testing.T) {
	assert.Equal(t, "abc", StripWrappingQuotes(`"'abc'"`))
	assert.Equal(t, `'abc"`, StripWrappingQuotes(`'abc"`))
	assert.Equal(t, "", StripWrappingQuotes(`''`))
	assert.Equal(t, "'", StripWrappingQuotes(`'`))
}

func TestFormatFlagValue(t *testing.T) {
	assert.Equal(t, "''", FormatFlagValue("   "))
	assert.Equal(t, `'a"b'`, FormatFlagValue(`a"b`))
	assert.Equal(t, `'say "it'\''s"'`, FormatFlagValue(`say "it's"`))
	assert.Equal(t, `"session=\$x"`, FormatFlagValue("session=$x"))
	assert.Equal(t, "\"c\\\\d\\`e\"", FormatFlagValue("c\\d`e"))
	assert.Equal(t, `"v"`, FormatFlagValue(" v "))
}

func TestOverrideFlag(t *testing.T) {
	flags := []string{"--insecure", `-b "a=1"`, "-B x"}
	got := OverrideFlag(flags, "-b", "c=2")
	assert.Equal(t, []string{"--insecure", `-b "c=2"`}, got)
	assert.Equal(t, []string{"--insecure", `-b "a=1"`, "-B x"}, flags, "input must not be modified")

	assert.Equal(t, []string{"--cookie ''"}, OverrideFlag(nil, "--cookie", ""))
}
