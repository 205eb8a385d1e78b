package inline

import (
	"regexp"
	"strings"
)

// conjunctions join several requests in one inline query, e.g. "звіт та заміри Олена"
var conjunctions = map[string]struct{}{
	"и":   {},
	"та":  {},
	"and": {},
	"+":   {},
	"&":   {},
	"|":   {},
}

// Query is a parsed inline query. The last segment carries the trigger word
// and the optional user name filter.
type Query struct {
	Raw      string
	Requests []string
	Name     string
}

// ParseQuery splits raw on whole-word conjunctions. Segments are reversed so
// the trigger typed last is checked first.
func ParseQuery(raw string) Query {
	raw = strings.TrimSpace(raw)

	var segments [][]string
	current := []string{}
	for _, token := range strings.Fields(raw) {
		if _, ok := conjunctions[strings.ToLower(token)]; ok {
			segments = append(segments, current)
			current = []string{}
			continue
		}
		current = append(current, token)
	}
	segments = append(segments, current)

	q := Query{Raw: raw}
	for i := len(segments) - 1; i >= 0; i-- {
		words := segments[i]
		if i == len(segments)-1 {
			trigger := ""
			if len(words) > 0 {
				trigger = words[0]
				q.Name = strings.Join(words[1:], " ")
			}
			q.Requests = append(q.Requests, trigger)
			continue
		}
		q.Requests = append(q.Requests, strings.Join(words, " "))
	}
	return q
}

func requestPattern(request string) *regexp.Regexp {
	re, err := regexp.Compile("(?i)" + request)
	if err != nil {
		return regexp.MustCompile("(?i)" + regexp.QuoteMeta(request))
	}
	return re
}

// Matches reports whether any request is found in any of the search words.
// An empty request matches every word.
func (q Query) Matches(searchWords []string) bool {
	for _, request := range q.Requests {
		re := requestPattern(request)
		for _, word := range searchWords {
			if re.MatchString(word) {
				return true
			}
		}
	}
	return false
}
