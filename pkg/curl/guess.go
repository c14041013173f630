package curl

// Param is one name/value pair as read from a command. Names may repeat.
type Param struct {
	Name  string
	Value string
}

// Guess is a parser's best-effort reading of a curl command. It is a hint
// only: Normalize cross-checks it against the command text and a
// Conversion before building a State.
type Guess struct {
	URL     string
	Method  string
	Headers []Param
	Query   []Param
	// Body is the payload as the parser saw it: a string, a decoded
	// JSON object (possibly wrapping the payload under "data", "text"
	// or "value"), or nil.
	Body any
}

// Conversion is the output of a secondary converter, used only to
// cross-check the body of a Guess.
type Conversion struct {
	Headers []Param
	// Data is a string, a decoded JSON value, or nil.
	Data any
}

// groupParams folds params into a Dict. A repeated name keeps its first
// position and stores all of its values as a JSON array.
func groupParams(params []Param) *Dict {
	order := make([]string, 0, len(params))
	grouped := make(map[string][]string, len(params))
	for _, p := range params {
		if _, ok := grouped[p.Name]; !ok {
			order = append(order, p.Name)
		}
		grouped[p.Name] = append(grouped[p.Name], p.Value)
	}
	out := &Dict{}
	for _, name := range order {
		values := grouped[name]
		if len(values) == 1 {
			out.Set(name, values[0])
			continue
		}
		out.Set(name, MarshalCompact(values))
	}
	return out
}
