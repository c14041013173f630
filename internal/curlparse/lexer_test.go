package curlparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitWords(t *testing.T) {
	input := "curl -H \"X-A: \\\"q\\\"\" 'it'\"'\"'s' $'a\\tb' line\\\ncont \"a\\nb\" ''"
	words, err := splitWords(input)
	require.NoError(t, err)
	assert.Equal(t, []string{"curl", "-H", `X-A: "q"`, "it's", "a\tb", "linecont", `a\nb`, ""}, words)
}

func TestSplitWordsContinuationWithCRLF(t *testing.T) {
	words, err := splitWords("curl \\\r\n  https://a.io \\\r\n  -k")
	require.NoError(t, err)
	assert.Equal(t, []string{"curl", "https://a.io", "-k"}, words)
}

func TestSplitWordsANSIHex(t *testing.T) {
	words, err := splitWords(`$'\x41é'`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aé"}, words)
}

func TestSplitWordsErrors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"curl 'abc", errUnterminatedQuote},
		{`curl "abc`, errUnterminatedQuote},
		{`curl abc\`, errUnterminatedEscape},
		{`curl $'\xZZ'`, errInvalidHexEscape},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := splitWords(tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
