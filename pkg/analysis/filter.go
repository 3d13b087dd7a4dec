/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: filter.go
Description: Strategy selection by name patterns.
*/

package analysis

import (
	"fmt"
	"regexp"

	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/strategies"
)

// Filter selects strategies whose names match any of its patterns. Patterns match the
// whole name, ignoring case. A nil Filter selects every strategy.
type Filter struct {
	patterns []*regexp.Regexp
}

// NewFilter compiles the patterns. An empty list selects every strategy.
func NewFilter(patterns ...string) (*Filter, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pat := range patterns {
		re, err := regexp.Compile("^(?i:" + pat + ")$")
		if err != nil {
			return nil, fmt.Errorf("%w: strategy pattern %q: %v", ircore.ErrInvalidArgument, pat, err)
		}
		compiled = append(compiled, re)
	}
	return &Filter{patterns: compiled}, nil
}

// Match reports whether the strategy is selected.
func (f *Filter) Match(kind strategies.Kind) bool {
	if f == nil || len(f.patterns) == 0 {
		return true
	}
	for _, re := range f.patterns {
		if re.MatchString(kind.Name()) {
			return true
		}
	}
	return false
}

// Kinds returns the selected strategies in tie break order.
func (f *Filter) Kinds() []strategies.Kind {
	var kinds []strategies.Kind
	for _, k := range strategies.Kinds() {
		if f.Match(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
