package cache

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every Redis key written by this package.
const KeyPrefix = "assessments:page"

// CacheKey identifies one page response: the resource plus its query.
type CacheKey struct {
	// Host is the API host (e.g., "data.winnipeg.ca")
	Host string

	// Path is the resource path (e.g., "/resource/d4mq-wa44.json")
	Path string

	// Query holds the SoQL parameters ($limit, $offset, $select, ...)
	Query url.Values
}

// KeyForRequest builds the key for an outgoing request.
func KeyForRequest(req *http.Request) CacheKey {
	return CacheKey{
		Host:  req.URL.Host,
		Path:  req.URL.Path,
		Query: req.URL.Query(),
	}
}

// String generates a deterministic key string.
// Format: assessments:page:host/path:param1=val1:param2=val2
//
// Example:
//
//	assessments:page:data.winnipeg.ca/resource/d4mq-wa44.json:$limit=50000:$offset=100000
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	resource := strings.Trim(k.Host+"/"+strings.Trim(k.Path, "/"), "/")
	if resource != "" {
		parts = append(parts, resource)
	}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			values := append([]string(nil), k.Query[name]...)
			sort.Strings(values)
			parts = append(parts, name+"="+strings.Join(values, ","))
		}
	}

	return strings.Join(parts, ":")
}
