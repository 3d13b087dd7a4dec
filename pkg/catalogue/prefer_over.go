/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: prefer_over.go
Description: Prefer-over relation between catalogue protocols.
*/

package catalogue

import (
	"fmt"
	"strings"

	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/irp"
)

// PreferOver names a protocol whose decode is dropped in favour of the declaring one.
// A nil Predicate always applies.
type PreferOver struct {
	Predicate irp.Expr
	Protocol  string
}

// ParsePreferOver reads "Name" or "cond;Name".
func ParsePreferOver(s string) (PreferOver, error) {
	cond, name, found := strings.Cut(s, ";")
	if !found {
		name, cond = cond, ""
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return PreferOver{}, fmt.Errorf("%w: prefer-over %q names no protocol", ircore.ErrInvalidArgument, s)
	}
	po := PreferOver{Protocol: name}
	if found {
		e, err := irp.ParseExpression(cond)
		if err != nil {
			return PreferOver{}, fmt.Errorf("prefer-over %q: %w", s, err)
		}
		po.Predicate = e
	}
	return po, nil
}

// Applies evaluates the predicate over the parameters of the preferred decode. A
// predicate that cannot be evaluated does not apply.
func (p PreferOver) Applies(params map[string]int64) bool {
	if p.Predicate == nil {
		return true
	}
	v, err := p.Predicate.Eval(irp.Env(params))
	return err == nil && v != 0
}

func (p PreferOver) String() string {
	if p.Predicate == nil {
		return p.Protocol
	}
	return p.Predicate.String() + ";" + p.Protocol
}
