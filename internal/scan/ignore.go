package scan

import (
	"fmt"
	"regexp"
)

// Matcher reports whether a directory name should be skipped.
type Matcher interface {
	Match(name string) bool
}

type RegexMatcher struct {
	re *regexp.Regexp
}

func NewRegexMatcher(pattern string) (*RegexMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &RegexMatcher{re: re}, nil
}

func (m *RegexMatcher) Match(name string) bool {
	return m.re.MatchString(name)
}

// Ignore is a set of matchers; a name matching any of them is ignored.
type Ignore []Matcher

func CompileIgnore(patterns []string) (Ignore, error) {
	out := make(Ignore, 0, len(patterns))
	for i, pattern := range patterns {
		m, err := NewRegexMatcher(pattern)
		if err != nil {
			return nil, fmt.Errorf("ignore pattern %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (ig Ignore) Match(name string) bool {
	for _, m := range ig {
		if m.Match(name) {
			return true
		}
	}
	return false
}
