package curlparse

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/funnyzak/reqloop/pkg/curl"
)

var (
	errEmptyCommand = errors.New("empty command")
	errNotCurl      = errors.New("command does not start with curl")
	errMissingURL   = errors.New("no URL found")
)

type optKind int

const (
	optFlag optKind = iota
	optValue
)

type optHandler func(*invocation, string)

type optDef struct {
	kind optKind
	fn   optHandler
}

// Options that shape the structured request. Anything else is ignored here
// and survives as a passthrough flag.
var longOpts = map[string]optDef{
	"request":        {optValue, optRequest},
	"header":         {optValue, optHeader},
	"url":            {optValue, optURL},
	"data":           {optValue, optData},
	"data-ascii":     {optValue, optData},
	"data-raw":       {optValue, optData},
	"data-binary":    {optValue, optData},
	"data-urlencode": {optValue, optDataURLEncode},
	"json":           {optValue, optJSON},
	"form":           {optValue, optForm},
	"form-string":    {optValue, optForm},
	"get":            {optFlag, optGet},
	"head":           {optFlag, optHead},
}

var shortOpts = map[byte]string{
	'X': "request",
	'H': "header",
	'd': "data",
	'F': "form",
	'G': "get",
	'I': "head",
}

// Passthrough options that consume an argument. They must be known so their
// argument is not mistaken for the URL. Credentials, cookies and agent
// strings stay passthrough so a rebuilt command does not send them twice.
var valueOpts = map[string]bool{
	"user": true, "user-agent": true, "referer": true, "cookie": true,
	"output": true, "max-time": true, "proxy": true, "proxy-user": true, "connect-timeout": true,
	"write-out": true, "cookie-jar": true, "upload-file": true, "range": true, "cacert": true,
	"capath": true, "cert": true, "cert-type": true, "key": true, "key-type": true, "resolve": true,
	"connect-to": true, "retry": true, "retry-delay": true, "retry-max-time": true, "max-redirs": true,
	"interface": true, "dns-servers": true, "trace": true, "trace-ascii": true, "stderr": true,
	"dump-header": true, "config": true, "limit-rate": true, "max-filesize": true, "ciphers": true,
	"oauth2-bearer": true, "unix-socket": true, "aws-sigv4": true, "noproxy": true, "pass": true,
	"request-target": true, "tls-max": true, "local-port": true, "speed-limit": true,
	"speed-time": true, "keepalive-time": true, "expect100-timeout": true, "variable": true,
	"proto": true, "proto-redir": true, "ftp-port": true, "quote": true, "time-cond": true,
}

var shortValueOpts = "ACDEKPQTUYbcemoruwxyz"

// invocation is the flag level reading of a curl command.
type invocation struct {
	rawURL    string
	method    string
	headers   []curl.Param
	data      []string
	forms     []curl.Param
	jsonData  bool
	get       bool
	head      bool
	positions []string
}

func scan(command string) (*invocation, error) {
	words, err := splitWords(command)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, errEmptyCommand
	}
	if !isCurlBinary(words[0]) {
		return nil, errNotCurl
	}

	inv := &invocation{}
	args := words[1:]
	for i := 0; i < len(args); i++ {
		word := args[i]

		switch {
		case word == "--":
			inv.positions = append(inv.positions, args[i+1:]...)
			i = len(args)

		case strings.HasPrefix(word, "--"):
			name, value, hasValue := strings.Cut(word[2:], "=")
			def, known := longOpts[name]
			takesValue := (known && def.kind == optValue) || valueOpts[name]
			if !takesValue {
				if known {
					def.fn(inv, "")
				}
				continue
			}
			if !hasValue {
				if i+1 >= len(args) {
					return nil, fmt.Errorf("option --%s requires a value", name)
				}
				i++
				value = args[i]
			}
			if known {
				def.fn(inv, value)
			}

		case strings.HasPrefix(word, "-") && len(word) > 1:
			consumed, err := inv.shortBundle(word[1:], args, i)
			if err != nil {
				return nil, err
			}
			i += consumed

		default:
			inv.positions = append(inv.positions, word)
		}
	}

	if inv.rawURL == "" && len(inv.positions) > 0 {
		inv.rawURL = inv.positions[0]
	}
	if inv.rawURL == "" {
		return nil, errMissingURL
	}
	return inv, nil
}

// shortBundle handles -sSL style bundles and -XPOST style attached values.
// It returns how many following words were consumed.
func (inv *invocation) shortBundle(bundle string, args []string, i int) (int, error) {
	for j := 0; j < len(bundle); j++ {
		c := bundle[j]
		name, known := shortOpts[c]
		def := longOpts[name]
		takesValue := (known && def.kind == optValue) || strings.IndexByte(shortValueOpts, c) >= 0
		if !takesValue {
			if known {
				def.fn(inv, "")
			}
			continue
		}

		consumed := 0
		value := bundle[j+1:]
		if value == "" {
			if i+1 >= len(args) {
				return 0, fmt.Errorf("option -%c requires a value", c)
			}
			value = args[i+1]
			consumed = 1
		}
		if known {
			def.fn(inv, value)
		}
		return consumed, nil
	}
	return 0, nil
}

func isCurlBinary(word string) bool {
	base := strings.ToLower(path.Base(strings.ReplaceAll(word, "\\", "/")))
	return base == "curl" || base == "curl.exe"
}

func optRequest(inv *invocation, v string) { inv.method = strings.ToUpper(strings.TrimSpace(v)) }

func optURL(inv *invocation, v string) { inv.rawURL = v }

func optGet(inv *invocation, _ string) { inv.get = true }

func optHead(inv *invocation, _ string) { inv.head = true }

func optForm(inv *invocation, v string) {
	name, value, _ := strings.Cut(v, "=")
	inv.forms = append(inv.forms, curl.Param{Name: name, Value: value})
}

func optHeader(inv *invocation, v string) {
	name, value, ok := strings.Cut(v, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return
	}
	inv.headers = append(inv.headers, curl.Param{Name: name, Value: strings.TrimSpace(value)})
}

func optData(inv *invocation, v string) { inv.data = append(inv.data, v) }

// optDataURLEncode encodes the content part of name=content, or the whole
// value when there is no name.
func optDataURLEncode(inv *invocation, v string) {
	name, content, ok := strings.Cut(v, "=")
	if !ok {
		inv.data = append(inv.data, url.QueryEscape(v))
		return
	}
	if name == "" {
		inv.data = append(inv.data, url.QueryEscape(content))
		return
	}
	inv.data = append(inv.data, name+"="+url.QueryEscape(content))
}

func optJSON(inv *invocation, v string) {
	inv.jsonData = true
	inv.data = append(inv.data, v)
}

func (inv *invocation) body() string {
	return strings.Join(inv.data, "&")
}

func (inv *invocation) hasHeader(name string) bool {
	for _, h := range inv.headers {
		if strings.EqualFold(h.Name, name) {
			return true
		}
	}
	return false
}

// requestHeaders returns the headers including the ones --json implies.
func (inv *invocation) requestHeaders() []curl.Param {
	headers := append([]curl.Param(nil), inv.headers...)
	if inv.jsonData {
		if !inv.hasHeader("Content-Type") {
			headers = append(headers, curl.Param{Name: "Content-Type", Value: "application/json"})
		}
		if !inv.hasHeader("Accept") {
			headers = append(headers, curl.Param{Name: "Accept", Value: "application/json"})
		}
	}
	return headers
}

// resolvedMethod applies curl's implicit method rules.
func (inv *invocation) resolvedMethod() string {
	switch {
	case inv.method != "":
		return inv.method
	case inv.head:
		return "HEAD"
	case inv.get:
		return "GET"
	case len(inv.data) > 0 || len(inv.forms) > 0:
		return "POST"
	default:
		return "GET"
	}
}

// splitURL separates the query string from the target and decodes its
// pairs. With -G the data is appended to the query as well.
func (inv *invocation) splitURL() (string, []curl.Param) {
	target := inv.rawURL
	if hash := strings.IndexByte(target, '#'); hash >= 0 {
		target = target[:hash]
	}
	base, rawQuery, _ := strings.Cut(target, "?")

	var params []curl.Param
	addPairs := func(raw string) {
		for _, pair := range strings.Split(raw, "&") {
			if pair == "" {
				continue
			}
			name, value, _ := strings.Cut(pair, "=")
			name = unescape(name)
			if name == "" {
				continue
			}
			params = append(params, curl.Param{Name: name, Value: unescape(value)})
		}
	}
	addPairs(rawQuery)
	if inv.get {
		addPairs(inv.body())
	}
	return base, params
}

func unescape(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
