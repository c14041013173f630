package curl

import (
	"net/url"
	"strings"
)

// Route keys accepted by route loops.
const (
	RouteScheme    = "scheme"
	RouteSubdomain = "subdomain"
	RouteDomain    = "domain"
	RoutePort      = "port"
	RoutePath      = "path"
)

// RouteParts decomposes a URL for field level edits. A nil field means
// "keep the current value"; an empty one means "clear it".
type RouteParts struct {
	Scheme    *string `json:"scheme,omitempty"`
	Subdomain *string `json:"subdomain,omitempty"`
	Domain    *string `json:"domain,omitempty"`
	Port      *string `json:"port,omitempty"`
	Path      *string `json:"path,omitempty"`
}

// Set assigns the part named key. Unknown keys are ignored.
func (r *RouteParts) Set(key, value string) {
	v := value
	switch key {
	case RouteScheme:
		r.Scheme = &v
	case RouteSubdomain:
		r.Subdomain = &v
	case RouteDomain:
		r.Domain = &v
	case RoutePort:
		r.Port = &v
	case RoutePath:
		r.Path = &v
	}
}

// IsEmpty reports whether no part is set.
func (r RouteParts) IsEmpty() bool {
	return r.Scheme == nil && r.Subdomain == nil && r.Domain == nil && r.Port == nil && r.Path == nil
}

// NormalizeRouteKey lower-cases key and reports whether it names a route part.
func NormalizeRouteKey(key string) (string, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	switch k {
	case RouteScheme, RouteSubdomain, RouteDomain, RoutePort, RoutePath:
		return k, true
	}
	return "", false
}

// SanitizeRouteValue trims value and applies per-key normalization.
func SanitizeRouteValue(key, value string) string {
	trimmed := strings.TrimSpace(value)
	switch key {
	case RouteScheme:
		return strings.ToLower(trimmed)
	case RoutePath:
		return strings.TrimSuffix(normalizePath(trimmed), "/")
	default:
		return trimmed
	}
}

// normalizePath drops leading slashes and collapses slash runs.
func normalizePath(p string) string {
	p = strings.TrimLeft(p, "/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
	"ftp":   "21",
}

type parsedURL struct {
	scheme string
	host   string
	port   string
	path   string
}

// parseAbsolute parses raw as an absolute URL, retrying with an https://
// prefix when raw has no usable scheme or host.
func parseAbsolute(raw string) (parsedURL, bool) {
	if raw == "" {
		return parsedURL{}, false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		u, err = url.Parse("https://" + strings.TrimLeft(raw, "/"))
		if err != nil || u.Host == "" {
			return parsedURL{}, false
		}
	}
	scheme := strings.ToLower(u.Scheme)
	port := u.Port()
	if defaultPorts[scheme] == port {
		port = ""
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return parsedURL{
		scheme: scheme,
		host:   strings.ToLower(u.Hostname()),
		port:   port,
		path:   path,
	}, true
}

// splitHost returns (subdomain, domain). Hosts with at most two labels
// have no subdomain.
func splitHost(host string) (string, string) {
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return "", host
	}
	return labels[0], strings.Join(labels[1:], ".")
}

func hostForURL(host string) string {
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		return "[" + host + "]"
	}
	return host
}

// ToRoute splits rawURL into route parts. Unparsable input yields an
// empty RouteParts.
func ToRoute(rawURL string) RouteParts {
	parsed, ok := parseAbsolute(rawURL)
	if !ok {
		return RouteParts{}
	}
	var route RouteParts
	sub, domain := splitHost(parsed.host)
	route.Set(RouteScheme, parsed.scheme)
	route.Set(RouteSubdomain, sub)
	route.Set(RouteDomain, domain)
	route.Set(RoutePort, parsed.port)
	route.Set(RoutePath, strings.TrimSuffix(normalizePath(parsed.path), "/"))
	return route
}

// FromRoute rebuilds a URL from route, taking every unset part from
// fallbackURL. Setting Domain replaces the whole host; setting only
// Subdomain rewrites or removes the leading host label. When no host can
// be resolved the fallback is returned unchanged, or "<scheme>://" when
// the fallback is empty.
func FromRoute(route RouteParts, fallbackURL string) string {
	fallback, ok := parseAbsolute(fallbackURL)
	fallbackScheme := "https"
	if ok && fallback.scheme != "" {
		fallbackScheme = fallback.scheme
	}

	scheme := ""
	if route.Scheme != nil {
		scheme = strings.ToLower(strings.TrimSpace(*route.Scheme))
	}
	if scheme == "" {
		scheme = fallbackScheme
	}

	host := fallback.host
	domain := ""
	if route.Domain != nil {
		domain = strings.TrimSpace(*route.Domain)
	}
	switch {
	case domain != "":
		host = domain
		if route.Subdomain != nil {
			if sub := strings.TrimSpace(*route.Subdomain); sub != "" {
				host = sub + "." + domain
			}
		}
	case route.Subdomain != nil:
		_, base := splitHost(fallback.host)
		if sub := strings.TrimSpace(*route.Subdomain); sub != "" {
			host = sub + "." + base
		} else {
			host = base
		}
	}

	if host == "" {
		if fallbackURL != "" {
			return fallbackURL
		}
		return scheme + "://"
	}

	port := fallback.port
	if route.Port != nil {
		port = strings.TrimSpace(*route.Port)
	}
	portSuffix := ""
	if port != "" {
		portSuffix = ":" + port
	}

	path := normalizePath(fallback.path)
	if route.Path != nil {
		path = *route.Path
	}
	path = normalizePath(strings.TrimSpace(path))
	if path != "" {
		path = "/" + path
	}

	return scheme + "://" + hostForURL(host) + portSuffix + path
}
