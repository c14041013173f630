package curlparse

import (
	"strings"

	"github.com/funnyzak/reqloop/pkg/curl"
)

// ContentConverter is the default Converter. A body declared as JSON is
// decoded; anything else, url-encoded forms included, is returned as text
// so a form sent with --data-raw is never re-encoded as JSON.
type ContentConverter struct{}

// Convert implements Converter.
func (ContentConverter) Convert(command string) (*curl.Conversion, error) {
	inv, err := scan(command)
	if err != nil {
		return nil, err
	}

	headers := inv.requestHeaders()
	conv := &curl.Conversion{Headers: headers}
	if inv.get || len(inv.data) == 0 {
		return conv, nil
	}

	body := inv.body()
	conv.Data = body
	contentType := strings.ToLower(headerValue(headers, "Content-Type"))
	if strings.Contains(contentType, "json") {
		if v, err := curl.ParseJSON(strings.TrimSpace(body)); err == nil {
			conv.Data = v
		}
	}
	return conv, nil
}

func headerValue(headers []curl.Param, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
