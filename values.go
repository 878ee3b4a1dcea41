package instrulink

import (
	"fmt"
	"strconv"
	"strings"
)

// parseValues splits reply on sep and parses every token as a float.
// strconv.ParseFloat accepts "nan", "inf", "-inf" and friends, which
// instruments legitimately emit for open inputs and over-range
// readings; a stricter structured parse would reject valid replies.
// One bad token fails the whole reply, no partial results.
func parseValues(reply, sep string) ([]float64, error) {
	tokens := strings.Split(reply, sep)
	values := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
		if err != nil {
			return nil, fmt.Errorf("token %d %q: %w", i, tok, ErrReplyMismatch)
		}
		values[i] = v
	}
	return values, nil
}

// MatchValues accepts replies that parse as a sep-separated list of
// floating-point numbers. This is the implicit shape check behind
// QueryValues; exported so adapters can combine it with others.
func MatchValues(sep string) Matcher {
	return valuesMatcher{sep: sep, count: -1}
}

// MatchValuesN additionally requires exactly n numeric fields, for
// exchanges where a skewed reply shows up as the wrong field count.
func MatchValuesN(sep string, n int) Matcher {
	return valuesMatcher{sep: sep, count: n}
}

type valuesMatcher struct {
	sep   string
	count int
}

func (m valuesMatcher) Match(reply string) bool {
	values, err := parseValues(reply, m.sep)
	if err != nil {
		return false
	}
	return m.count < 0 || len(values) == m.count
}

func (m valuesMatcher) String() string {
	if m.count < 0 {
		return fmt.Sprintf("numeric values separated by %q", m.sep)
	}
	return fmt.Sprintf("%d numeric values separated by %q", m.count, m.sep)
}
