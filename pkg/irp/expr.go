/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: expr.go
Description: Integer expressions used by bitfields, definitions, parameter defaults and
prefer-over conditions.
*/

package irp

import (
	"fmt"
	"strconv"
)

// Env maps names to values during evaluation.
type Env map[string]int64

// Clone copies the environment.
func (e Env) Clone() Env {
	out := make(Env, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Expr is an integer valued expression.
type Expr interface {
	Eval(env Env) (int64, error)
	String() string
}

// Number is a literal.
type Number int64

func (n Number) Eval(Env) (int64, error) { return int64(n), nil }
func (n Number) String() string         { return strconv.FormatInt(int64(n), 10) }

// Name refers to a parameter or a definition.
type Name string

func (n Name) Eval(env Env) (int64, error) {
	v, ok := env[string(n)]
	if !ok {
		return 0, &NameUnassignedError{Name: string(n)}
	}
	return v, nil
}

func (n Name) String() string { return string(n) }

// UnaryExpr applies ~, - or !.
type UnaryExpr struct {
	Op string
	X  Expr
}

func (u *UnaryExpr) Eval(env Env) (int64, error) {
	x, err := u.X.Eval(env)
	if err != nil {
		return 0, err
	}
	switch u.Op {
	case "~":
		return ^x, nil
	case "-":
		return -x, nil
	case "!":
		return boolValue(x == 0), nil
	}
	return 0, fmt.Errorf("%w: unknown unary operator %q", ErrParse, u.Op)
}

func (u *UnaryExpr) String() string {
	if _, ok := u.X.(*BinaryExpr); ok {
		return u.Op + "(" + u.X.String() + ")"
	}
	return u.Op + u.X.String()
}

// BinaryExpr applies an infix operator.
type BinaryExpr struct {
	Op   string
	X, Y Expr
}

var precedence = map[string]int{
	"||": 1, "&&": 2, "|": 3, "^": 4, "&": 5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

func (b *BinaryExpr) Eval(env Env) (int64, error) {
	x, err := b.X.Eval(env)
	if err != nil {
		return 0, err
	}
	y, err := b.Y.Eval(env)
	if err != nil {
		return 0, err
	}
	switch b.Op {
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/", "%":
		if y == 0 {
			return 0, fmt.Errorf("division by zero in %s", b)
		}
		if b.Op == "/" {
			return x / y, nil
		}
		return x % y, nil
	case "&":
		return x & y, nil
	case "|":
		return x | y, nil
	case "^":
		return x ^ y, nil
	case "<<":
		return x << uint64(y&63), nil
	case ">>":
		return x >> uint64(y&63), nil
	case "==":
		return boolValue(x == y), nil
	case "!=":
		return boolValue(x != y), nil
	case "<":
		return boolValue(x < y), nil
	case ">":
		return boolValue(x > y), nil
	case "<=":
		return boolValue(x <= y), nil
	case ">=":
		return boolValue(x >= y), nil
	case "&&":
		return boolValue(x != 0 && y != 0), nil
	case "||":
		return boolValue(x != 0 || y != 0), nil
	}
	return 0, fmt.Errorf("%w: unknown operator %q", ErrParse, b.Op)
}

func (b *BinaryExpr) String() string {
	p := precedence[b.Op]
	return operand(b.X, p, false) + b.Op + operand(b.Y, p, true)
}

func operand(e Expr, parent int, right bool) string {
	if bin, ok := e.(*BinaryExpr); ok {
		p := precedence[bin.Op]
		if p < parent || (right && p == parent) {
			return "(" + bin.String() + ")"
		}
	}
	return e.String()
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
