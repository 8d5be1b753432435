// KEYS commands filter the stored key names with Redis-style glob patterns; the following module implements glob
// matching over key streams.

package scan

import (
	"iter"

	"v.io/v23/glob"
)

// MatchGlob yields the `keys` matching the given glob `pattern`. An invalid pattern matches nothing.
func MatchGlob(pattern string, keys iter.Seq[string]) iter.Seq[string] {
	parsedPattern, err := glob.Parse(pattern)
	if err != nil {
		return func(yield func(string) bool) {}
	}
	return func(yield func(string) bool) {
		for key := range keys {
			if parsedPattern.Head().Match(key) {
				if !yield(key) {
					return
				}
			}
		}
	}
}
