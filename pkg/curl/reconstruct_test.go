package curl

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconstruct(t *testing.T) {
	tests := []struct {
		name  string
		state *State
		want  string
	}{
		{
			name:  "json body",
			state: jsonState(),
			want:  `curl 'https://api.example.com/items' -H 'Content-Type: application/json' --data-raw '{"a":1,"b":"x"}'`,
		},
		{
			name:  "form body",
			state: formState(),
			want:  `curl 'https://a.example.com/form' -d 'name=Jane%20Doe&age=30'`,
		},
		{
			name: "query replaces embedded query",
			state: &State{
				URL:    "https://a.io/s?old=1",
				Method: "GET",
				Query:  NewDict("q", "a b", "page", "2"),
			},
			want: `curl 'https://a.io/s?q=a%20b&page=2'`,
		},
		{
			name: "explicit method and passthrough flags",
			state: &State{
				URL:            "https://a.io/x",
				Method:         "delete",
				ExplicitMethod: true,
				ExtraFlags:     []string{" --insecure ", "not-a-flag", "--max-time 5"},
			},
			want: `curl -X DELETE 'https://a.io/x' --insecure --max-time 5`,
		},
		{
			name:  "text body without flag",
			state: &State{URL: "https://a.io", Method: "PUT", Body: Text("hi")},
			want:  `curl -X PUT 'https://a.io' --data-raw 'hi'`,
		},
		{
			name:  "form body without flag",
			state: &State{URL: "https://a.io", Method: "POST", Body: Fields{NewDict("a", "1")}},
			want:  `curl 'https://a.io' -d 'a=1'`,
		},
		{
			name: "apostrophes are shell escaped",
			state: &State{
				URL:     "https://a.io/q",
				Method:  "POST",
				Headers: NewDict("X-Note", "it's"),
				Query:   NewDict("name", "O'Brien"),
				Body:    Text(`{"name":"O'Brien"}`),
			},
			want: `curl 'https://a.io/q?name=O'\''Brien' -H 'X-Note: it'\''s' --data-raw '{"name":"O'\''Brien"}'`,
		},
		{
			name: "urlencoded fields go out decoded",
			state: &State{
				URL:      "https://a.io",
				Method:   "POST",
				Body:     Fields{NewDict("q", "a b", "two words", "x")},
				BodyFlag: "--data-urlencode",
			},
			want: `curl 'https://a.io' --data-urlencode 'q=a b' --data 'two%20words=x'`,
		},
		{
			name:  "urlencoded text is sent as encoded",
			state: &State{URL: "https://a.io", Method: "POST", Body: Text("a%20b"), BodyFlag: "--data-urlencode"},
			want:  `curl 'https://a.io' --data 'a%20b'`,
		},
		{
			name:  "nothing to emit falls back to command text",
			state: &State{CommandText: "  curl --version  "},
			want:  "curl --version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconstruct(tt.state))
		})
	}
}

func TestShouldIncludeMethodFlag(t *testing.T) {
	assert.False(t, ShouldIncludeMethodFlag("", &State{ExplicitMethod: true}))
	assert.True(t, ShouldIncludeMethodFlag("GET", &State{ExplicitMethod: true}))
	assert.False(t, ShouldIncludeMethodFlag("GET", &State{}))
	assert.True(t, ShouldIncludeMethodFlag("POST", &State{}))
	assert.False(t, ShouldIncludeMethodFlag("POST", &State{Body: Text("x")}))
	assert.False(t, ShouldIncludeMethodFlag("POST", &State{BodyFlag: "--data-binary"}))
	assert.False(t, ShouldIncludeMethodFlag("POST", &State{ExtraFlags: []string{"--data-ascii x"}}))
	assert.True(t, ShouldIncludeMethodFlag("PUT", &State{Body: Text("x")}))
	assert.True(t, ShouldIncludeMethodFlag("DELETE", &State{}))
}

func TestTargetURL(t *testing.T) {
	assert.Equal(t, "", (&State{Query: NewDict("a", "1")}).TargetURL())
	assert.Equal(t, "https://x.io/p", (&State{URL: "https://x.io/p"}).TargetURL())
	assert.Equal(t, "https://x.io/p?a=1&b=two%20words",
		(&State{URL: "https://x.io/p?old=1", Query: NewDict("a", "1", "b", "two words")}).TargetURL())
}

func TestApplyEditsJSONBodyKeepsShape(t *testing.T) {
	prev := jsonState()
	next := ApplyEdits(prev, Edits{Data: NewDict("a", "2", "b", "x")})

	body, ok := next.Body.(JSON)
	require.True(t, ok)
	assert.Equal(t, `{"a":2,"b":"x"}`, body.Raw)
	assert.Equal(t, json.Number("2"), body.Object()["a"])
	assert.Equal(t, "x", body.Object()["b"])
	assert.Equal(t, body.Raw, next.RawBody)
	assert.Equal(t, "--data-raw", next.BodyFlag)

	prevBody := prev.Body.(JSON)
	assert.Equal(t, `{"a":1,"b":"x"}`, prevBody.Raw, "previous state must not change")
}

func TestApplyEditsFormBody(t *testing.T) {
	next := ApplyEdits(formState(), Edits{Data: NewDict("name", "Joe")})

	assert.Equal(t, BodyForm, next.BodyKind())
	assert.Equal(t, "-d", next.BodyFlag)
	assert.Equal(t, "", next.RawBody)
	assert.Equal(t, "name=Joe", next.Body.Payload())
}

func TestApplyEditsRawBodyWithDataRawFlagBecomesJSON(t *testing.T) {
	prev := &State{URL: "https://a.io", Method: "POST", Body: Text("x"), BodyFlag: "--data-raw"}
	next := ApplyEdits(prev, Edits{Data: NewDict("n", "[1,2]", "s", "plain")})

	assert.Equal(t, BodyJSON, next.BodyKind())
	assert.Equal(t, `{"n":[1,2],"s":"plain"}`, next.Body.Payload())
}

func TestApplyEditsEmptyDataKeepsBody(t *testing.T) {
	prev := jsonState()
	next := ApplyEdits(prev, Edits{Data: &Dict{}})
	assert.Equal(t, prev.Body.Payload(), next.Body.Payload())
	assert.Equal(t, prev.BodyFlag, next.BodyFlag)
}

func TestApplyEditsQueryFlagsRoute(t *testing.T) {
	prev := formState()
	prev.ExtraFlags = []string{"--insecure"}

	next := ApplyEdits(prev, Edits{
		Query: NewDict("q", "1"),
		Flags: []string{" --compressed ", "junk", ""},
		Route: &RouteParts{Subdomain: strPtr("b")},
	})
	assert.Equal(t, []string{"q"}, next.Query.Keys())
	assert.Equal(t, []string{"--compressed"}, next.ExtraFlags)
	assert.Equal(t, "https://b.example.com/form", next.URL)
	assert.Equal(t, []string{"--insecure"}, prev.ExtraFlags)

	cleared := ApplyEdits(prev, Edits{Flags: []string{}})
	assert.Empty(t, cleared.ExtraFlags)
	kept := ApplyEdits(prev, Edits{})
	assert.Equal(t, []string{"--insecure"}, kept.ExtraFlags)
}

func TestEditsDecode(t *testing.T) {
	var e Edits
	err := json.Unmarshal([]byte(`{"query":{"q":"x","n":1,"z":null},"data":{},"flags":[],"route":{"path":"/a"}}`), &e)
	require.NoError(t, err)

	assert.Equal(t, []string{"q", "n"}, e.Query.Keys())
	n, _ := e.Query.Get("n")
	assert.Equal(t, "1", n)
	assert.Equal(t, 0, e.Data.Len())
	assert.NotNil(t, e.Flags)
	require.NotNil(t, e.Route)
	assert.Equal(t, "/a", *e.Route.Path)
	assert.Nil(t, e.Route.Domain)
}

func TestToPayload(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		p := ToPayload(jsonState())
		assert.Equal(t, BodyJSON, p.BodyKind)
		assert.Equal(t, []string{"a", "b"}, p.Data.Keys())
		a, _ := p.Data.Get("a")
		assert.Equal(t, "1", a)
		require.NotNil(t, p.RawBody)
		assert.Equal(t, `{"a":1,"b":"x"}`, *p.RawBody)
		assert.Equal(t, []string{}, p.Flags)
		assert.Equal(t, "api", *p.Route.Subdomain)
	})

	t.Run("form", func(t *testing.T) {
		p := ToPayload(formState())
		assert.Equal(t, []string{"name", "age"}, p.Data.Keys())
		assert.Equal(t, "name=Jane+Doe&age=30", *p.RawBody)
	})

	t.Run("no body", func(t *testing.T) {
		p := ToPayload(&State{URL: "https://a.io", Method: "GET", Headers: &Dict{}, Query: &Dict{}})
		assert.Nil(t, p.RawBody)
		assert.Equal(t, BodyNone, p.BodyKind)

		raw, err := json.Marshal(p)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"url":"https://a.io","method":"GET","headers":{},"query":{},"data":{},"flags":[],
			"route":{"scheme":"https","subdomain":"","domain":"a.io","port":"","path":""}
		}`, string(raw))
	})
}
