package printer

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"strings"

	nethtml "golang.org/x/net/html"

	"github.com/dustin/go-humanize"
	"github.com/funnyzak/reqloop/internal/config"
	"github.com/funnyzak/reqloop/internal/logger"
	"github.com/funnyzak/reqloop/pkg/i18n"
)

// bodyFormatter pretty-prints command output. Run output has no content
// type, so the format is sniffed from the text itself.
type bodyFormatter struct {
	cfg    *config.BodyViewConfig
	logger logger.Logger
	intl   *i18n.Translator
	locale string
}

type formattedBody struct {
	Text    string
	Notices []string
}

func newBodyFormatter(cfg *config.BodyViewConfig, log logger.Logger, translator *i18n.Translator, locale string) *bodyFormatter {
	if cfg == nil {
		cfg = &config.BodyViewConfig{}
	}
	if log == nil {
		log = logger.Nop()
	}
	resolved := strings.TrimSpace(locale)
	if resolved == "" && translator != nil {
		resolved = translator.DefaultLocale()
	}
	return &bodyFormatter{cfg: cfg, logger: log, intl: translator, locale: resolved}
}

func (f *bodyFormatter) t(key string) string {
	if f == nil || f.intl == nil {
		return key
	}
	return f.intl.Text(f.locale, key)
}

// Format returns text unchanged unless a body view applies.
func (f *bodyFormatter) Format(text string) formattedBody {
	if f == nil || text == "" {
		return formattedBody{Text: text}
	}
	if !f.cfg.Enable {
		return formattedBody{Text: text}
	}
	body := []byte(text)
	if res, ok := f.formatJSON(body); ok {
		return res
	}
	if res, ok := f.formatHTML(body); ok {
		return res
	}
	if res, ok := f.formatXML(body); ok {
		return res
	}
	return formattedBody{Text: text}
}

func (f *bodyFormatter) formatJSON(body []byte) (formattedBody, bool) {
	if !f.cfg.JSON || !looksLikeJSON(body) {
		return formattedBody{}, false
	}
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return formattedBody{}, false
	}
	if f.cfg.MaxIndentBytes > 0 && len(trimmed) > f.cfg.MaxIndentBytes {
		notice := fmt.Sprintf(f.t(keyJSONIndentSkipped), humanize.Bytes(uint64(f.cfg.MaxIndentBytes)))
		return formattedBody{Text: string(body), Notices: []string{notice}}, true
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		f.logger.Debug("json indent failed", "error", err)
		return formattedBody{}, false
	}
	return formattedBody{Text: buf.String()}, true
}

func (f *bodyFormatter) formatXML(body []byte) (formattedBody, bool) {
	if !f.cfg.XML || !looksLikeXML(body) {
		return formattedBody{}, false
	}
	formatted, err := prettyXML(stripControlBytes(bytes.TrimSpace(body)))
	if err != nil {
		f.logger.Debug("xml pretty failed", "error", err)
		return formattedBody{}, false
	}
	return formattedBody{Text: formatted}, true
}

func (f *bodyFormatter) formatHTML(body []byte) (formattedBody, bool) {
	if !f.cfg.HTML || !looksLikeHTML(body) {
		return formattedBody{}, false
	}
	formatted, err := prettyHTML(stripControlBytes(body))
	if err != nil {
		f.logger.Debug("html pretty failed", "error", err)
		return formattedBody{}, false
	}
	return formattedBody{Text: formatted}, true
}

func looksLikeJSON(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) < 2 {
		return false
	}
	first := trimmed[0]
	last := trimmed[len(trimmed)-1]
	return (first == '{' && last == '}') || (first == '[' && last == ']')
}

func looksLikeXML(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 1 && trimmed[0] == '<' && trimmed[len(trimmed)-1] == '>'
}

func looksLikeHTML(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) < 5 {
		return false
	}
	lower := strings.ToLower(string(trimmed[:5]))
	return strings.HasPrefix(lower, "<html") || strings.HasPrefix(lower, "<!doc")
}

func stripControlBytes(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	buf := make([]byte, 0, len(b))
	for _, ch := range b {
		if ch < 0x20 && ch != '\n' && ch != '\r' && ch != '\t' {
			continue
		}
		buf = append(buf, ch)
	}
	return buf
}

func prettyXML(data []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	var buf bytes.Buffer
	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "  ")
	for {
		token, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", err
		}
		// Whitespace between elements is re-created by the encoder.
		if cd, ok := token.(xml.CharData); ok && len(bytes.TrimSpace(cd)) == 0 {
			continue
		}
		if err := encoder.EncodeToken(token); err != nil {
			return "", err
		}
	}
	if err := encoder.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func prettyHTML(data []byte) (string, error) {
	node, err := nethtml.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	var builder strings.Builder
	renderHTMLNode(&builder, node, 0)
	return builder.String(), nil
}

func renderHTMLNode(builder *strings.Builder, node *nethtml.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch node.Type {
	case nethtml.DocumentNode:
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			renderHTMLNode(builder, child, depth)
		}
	case nethtml.DoctypeNode:
		builder.WriteString("<!DOCTYPE " + node.Data + ">\n")
	case nethtml.ElementNode:
		builder.WriteString(indent + "<" + node.Data)
		for _, attr := range node.Attr {
			fmt.Fprintf(builder, " %s=\"%s\"", attr.Key, html.EscapeString(attr.Val))
		}
		if isVoidElement(node.Data) {
			builder.WriteString(" />\n")
			return
		}
		builder.WriteString(">\n")
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			renderHTMLNode(builder, child, depth+1)
		}
		builder.WriteString(indent + "</" + node.Data + ">\n")
	case nethtml.TextNode:
		text := strings.TrimSpace(node.Data)
		if text == "" {
			return
		}
		builder.WriteString(indent + text + "\n")
	case nethtml.CommentNode:
		builder.WriteString(indent + "<!--" + strings.TrimSpace(node.Data) + "-->\n")
	}
}

func isVoidElement(tag string) bool {
	switch strings.ToLower(tag) {
	case "area", "base", "br", "col", "embed", "hr", "img", "input", "keygen", "link", "meta", "param", "source", "track", "wbr":
		return true
	default:
		return false
	}
}
