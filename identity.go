package instrulink

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher decides whether an instrument reply is acceptable. Matchers
// drive the identity handshake during discovery and the optional
// per-exchange shape checks that trigger resync. Implementations must
// be pure functions of the reply so discovery stays reproducible.
type Matcher interface {
	Match(reply string) bool
	String() string
}

// MatchExact accepts a reply equal to lit.
func MatchExact(lit string) Matcher {
	return exactMatcher(lit)
}

type exactMatcher string

func (m exactMatcher) Match(reply string) bool { return reply == string(m) }
func (m exactMatcher) String() string          { return fmt.Sprintf("exactly %q", string(m)) }

// MatchPrefix accepts a reply starting with prefix. The usual choice
// for identity strings that carry a model name followed by a serial
// number or firmware revision.
func MatchPrefix(prefix string) Matcher {
	return prefixMatcher(prefix)
}

type prefixMatcher string

func (m prefixMatcher) Match(reply string) bool { return strings.HasPrefix(reply, string(m)) }
func (m prefixMatcher) String() string          { return fmt.Sprintf("prefix %q", string(m)) }

// MatchContains accepts a reply containing sub anywhere.
func MatchContains(sub string) Matcher {
	return containsMatcher(sub)
}

type containsMatcher string

func (m containsMatcher) Match(reply string) bool { return strings.Contains(reply, string(m)) }
func (m containsMatcher) String() string          { return fmt.Sprintf("contains %q", string(m)) }

// MatchPattern accepts a reply matching the regular expression.
func MatchPattern(re *regexp.Regexp) Matcher {
	return patternMatcher{re}
}

type patternMatcher struct {
	re *regexp.Regexp
}

func (m patternMatcher) Match(reply string) bool { return m.re.MatchString(reply) }
func (m patternMatcher) String() string          { return fmt.Sprintf("pattern %q", m.re.String()) }

// MatchFunc wraps an arbitrary predicate. desc is the human-readable
// description used in logs.
func MatchFunc(desc string, fn func(reply string) bool) Matcher {
	return funcMatcher{desc: desc, fn: fn}
}

type funcMatcher struct {
	desc string
	fn   func(string) bool
}

func (m funcMatcher) Match(reply string) bool { return m.fn(reply) }
func (m funcMatcher) String() string          { return m.desc }

// MatchAll accepts a reply that every given matcher accepts. Use it
// to combine a broad family check with a specific unit check, e.g.
// MatchAll(MatchPrefix("Arduino"), MatchContains(serialNo)) to pick
// one board out of several identical ones.
func MatchAll(ms ...Matcher) Matcher {
	return allMatcher(ms)
}

type allMatcher []Matcher

func (m allMatcher) Match(reply string) bool {
	for _, sub := range m {
		if !sub.Match(reply) {
			return false
		}
	}
	return true
}

func (m allMatcher) String() string {
	return joinDescriptions([]Matcher(m), " and ")
}

// MatchAny accepts a reply that at least one given matcher accepts.
func MatchAny(ms ...Matcher) Matcher {
	return anyMatcher(ms)
}

type anyMatcher []Matcher

func (m anyMatcher) Match(reply string) bool {
	for _, sub := range m {
		if sub.Match(reply) {
			return true
		}
	}
	return false
}

func (m anyMatcher) String() string {
	return joinDescriptions([]Matcher(m), " or ")
}

func joinDescriptions(ms []Matcher, sep string) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = m.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// Identity describes the handshake that verifies which instrument is
// on the other end of a freshly opened port: send Probe, read one
// reply line, test it against Expect. A zero Identity disables the
// handshake and any port that opens is accepted. A Probe with a nil
// Expect acts as a liveness check: any reply within the timeout
// passes.
type Identity struct {
	Probe  string
	Expect Matcher
}

// Validate reports whether reply satisfies the expected identity.
func (id Identity) Validate(reply string) bool {
	if id.Expect == nil {
		return true
	}
	return id.Expect.Match(reply)
}

// configured reports whether a handshake should run at all.
func (id Identity) configured() bool {
	return id.Probe != ""
}

func (id Identity) String() string {
	if !id.configured() {
		return "none"
	}
	if id.Expect == nil {
		return fmt.Sprintf("probe %q, any reply", id.Probe)
	}
	return fmt.Sprintf("probe %q, expect %s", id.Probe, id.Expect)
}
