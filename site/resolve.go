package site

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// rewrite is one thumbnail-to-full-size URL rule.
type rewrite func(string) string

func replace(pattern, repl string) rewrite {
	re := regexp.MustCompile(pattern)
	return func(s string) string { return re.ReplaceAllString(s, repl) }
}

// resolve applies rules until the URL stops changing, which makes the
// result a fixed point of the rule set. Each pass either removes a small
// size token or shortens the URL, so the loop terminates.
func resolve(raw string, rules []rewrite) string {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return raw
	}
	cur := raw
	for {
		next := cur
		for _, r := range rules {
			next = r(next)
		}
		if next == cur {
			return cur
		}
		cur = next
	}
}

var sizeParams = []string{"w", "width", "h", "height", "size"}

// stripSizeParams drops numeric size hints from the query string. The URL is
// re-encoded only when something was removed.
func stripSizeParams(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	removed := false
	for _, k := range sizeParams {
		vals, ok := q[k]
		if !ok || !allNumeric(vals) {
			continue
		}
		q.Del(k)
		removed = true
	}
	if !removed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func allNumeric(vals []string) bool {
	for _, v := range vals {
		if _, err := strconv.Atoi(strings.TrimSuffix(v, "px")); err != nil {
			return false
		}
	}
	return true
}
