package http

import (
	"net/url"
	"strings"
)

var queryRewriter = strings.NewReplacer("?", "&", "5+", "5%2B", ";", "%3B")

// query is the decoded request query. For repeated keys the last value wins.
type query struct {
	values url.Values
}

func parseQuery(raw string) query {
	// malformed pairs are dropped; the rest still decode
	values, _ := url.ParseQuery(queryRewriter.Replace(raw))
	return query{values: values}
}

func (q query) has(key string) bool {
	_, ok := q.values[key]
	return ok
}

func (q query) get(key string) string {
	vs := q.values[key]
	if len(vs) == 0 {
		return ""
	}
	return vs[len(vs)-1]
}
