// Package tags implements the composite tag codec used by the semantic
// search store. A tag mapping {key: [values]} is flattened to a list of
// `"key"."value"` strings so Postgres array-overlap operators can match
// them; decoding recovers the mapping.
package tags

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var compositePattern = regexp.MustCompile(`"(.*)"\."(.*)"`)

// MalformedTagError reports a single composite string that does not
// match the `"key"."value"` pattern. Callers decoding a result set are
// expected to drop the offending row and keep going.
type MalformedTagError struct {
	Raw string
}

func (e *MalformedTagError) Error() string {
	return fmt.Sprintf("malformed composite tag: %q", e.Raw)
}

// Encode flattens a tag mapping into composite strings. Keys are
// emitted in sorted order so output (and any SQL built from it) is
// deterministic; values keep their given order. No dedup is performed.
func Encode(tags map[string][]string) []string {
	if len(tags) == 0 {
		return []string{}
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(tags))
	for _, k := range keys {
		for _, v := range tags[k] {
			out = append(out, `"`+k+`"."`+v+`"`)
		}
	}
	return out
}

// DecodeOne extracts the key/value of a single composite string.
func DecodeOne(raw string) (string, string, error) {
	m := compositePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", "", &MalformedTagError{Raw: raw}
	}
	return cleanStr(m[1]), cleanStr(m[2]), nil
}

// Decode parses a list of composite strings back into a mapping. A nil
// or empty input yields an empty map. The first malformed entry aborts
// with a MalformedTagError; per-row recovery belongs to the caller,
// which decodes one document's tags at a time.
func Decode(raw []string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, s := range raw {
		k, v, err := DecodeOne(s)
		if err != nil {
			return nil, err
		}
		out[k] = append(out[k], v)
	}
	return out, nil
}

func cleanStr(s string) string {
	return strings.Trim(s, `"`)
}
