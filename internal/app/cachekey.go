package app

import (
	"strconv"
	"strings"

	gateway "github.com/eugener/newsgate/internal"
)

// absentParam renders a recognized parameter that was not supplied. Present
// values are always quoted, so it cannot collide with any real value.
const absentParam = "-"

// cacheKey derives the cache key for a normalized query:
//
//	<endpoint>:<param1>:<param2>...
//
// in the endpoint's fixed parameter order. Values are passed through verbatim
// (no case folding or trimming), so "US" and "us" are different keys.
func cacheKey(q gateway.Query) string {
	var b strings.Builder
	b.WriteString(string(q.Endpoint()))
	for _, p := range q.Params() {
		b.WriteByte(':')
		if !p.Valid {
			b.WriteString(absentParam)
			continue
		}
		b.WriteString(strconv.Quote(p.Value))
	}
	return b.String()
}
