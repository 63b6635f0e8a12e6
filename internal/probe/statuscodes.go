package probe

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultStatusCodes is used when a monitor leaves expected_status_codes empty.
const DefaultStatusCodes = "200"

type codeRange struct{ lo, hi int }

// StatusSet is a set of HTTP status codes built from single codes and
// inclusive ranges.
type StatusSet struct {
	expr   string
	ranges []codeRange
}

// ParseStatusCodes parses expressions like "200-299,304". An empty
// expression yields {200}.
func ParseStatusCodes(expr string) (StatusSet, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		expr = DefaultStatusCodes
	}
	set := StatusSet{expr: expr}
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return StatusSet{}, fmt.Errorf("empty element in %q", expr)
		}
		lo, hi := part, part
		if i := strings.Index(part, "-"); i >= 0 {
			lo, hi = strings.TrimSpace(part[:i]), strings.TrimSpace(part[i+1:])
		}
		a, err := parseCode(lo)
		if err != nil {
			return StatusSet{}, err
		}
		b, err := parseCode(hi)
		if err != nil {
			return StatusSet{}, err
		}
		if a > b {
			return StatusSet{}, fmt.Errorf("reversed range %q", part)
		}
		set.ranges = append(set.ranges, codeRange{a, b})
	}
	sort.Slice(set.ranges, func(i, j int) bool { return set.ranges[i].lo < set.ranges[j].lo })
	return set, nil
}

func parseCode(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad status code %q", s)
	}
	if n < 100 || n > 599 {
		return 0, fmt.Errorf("status code %d out of range", n)
	}
	return n, nil
}

func (s StatusSet) Contains(code int) bool {
	for _, r := range s.ranges {
		if code >= r.lo && code <= r.hi {
			return true
		}
	}
	return false
}

// String returns the normalized source expression.
func (s StatusSet) String() string { return s.expr }
