package mainydb

import "strings"

// Expr is a compiled aggregation expression (§4.7): field reference, literal,
// or operator application. Evaluation against an absent reference propagates
// the absent marker; arithmetic on absent is BadExpression, comparison on
// absent is false, matching the spec's expression error rules.
type Expr func(d *Document) (Value, error)

// errBadExpression is raised by arithmetic operators when an operand
// resolves to absent.
var errBadExpression = badPipelinef("expression operand is absent")

// CompileExpr compiles an expression value from $project/$addFields/$group.
func CompileExpr(v Value) (Expr, error) {
	if s, ok := v.AsString(); ok && strings.HasPrefix(s, "$") {
		path := ParsePath(s[1:])
		return func(d *Document) (Value, error) {
			return ResolvePath(Doc(d), path), nil
		}, nil
	}
	if doc, ok := v.AsDocument(); ok && doc.Len() == 1 {
		var opName string
		var opArg Value
		doc.Range(func(k string, val Value) bool {
			opName, opArg = k, val
			return false
		})
		if strings.HasPrefix(opName, "$") {
			return compileExprOp(opName, opArg)
		}
	}
	lit := v.Clone()
	return func(d *Document) (Value, error) { return lit, nil }, nil
}

func compileExprArgs(v Value) ([]Expr, error) {
	arr, ok := v.AsArray()
	if !ok {
		arr = []Value{v}
	}
	out := make([]Expr, len(arr))
	for i, a := range arr {
		e, err := CompileExpr(a)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func compileExprOp(op string, arg Value) (Expr, error) {
	switch op {
	case "$add", "$subtract", "$multiply", "$divide", "$mod":
		args, err := compileExprArgs(arg)
		if err != nil {
			return nil, err
		}
		if len(args) < 2 {
			return nil, badPipelinef("%s requires at least 2 arguments", op)
		}
		return arithExpr(op, args), nil
	case "$concat":
		args, err := compileExprArgs(arg)
		if err != nil {
			return nil, err
		}
		return func(d *Document) (Value, error) {
			var sb strings.Builder
			for _, a := range args {
				v, err := a(d)
				if err != nil {
					return Value{}, err
				}
				s, ok := v.AsString()
				if !ok {
					return Value{}, errBadExpression
				}
				sb.WriteString(s)
			}
			return String(sb.String()), nil
		}, nil
	case "$size":
		args, err := compileExprArgs(arg)
		if err != nil {
			return nil, err
		}
		if len(args) != 1 {
			return nil, badPipelinef("$size requires exactly 1 argument")
		}
		return func(d *Document) (Value, error) {
			v, err := args[0](d)
			if err != nil {
				return Value{}, err
			}
			arr, ok := v.AsArray()
			if !ok {
				return Value{}, errBadExpression
			}
			return Int(int64(len(arr))), nil
		}, nil
	case "$cond":
		return compileCond(arg)
	case "$eq", "$gt", "$gte", "$lt", "$lte", "$ne":
		args, err := compileExprArgs(arg)
		if err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, badPipelinef("%s requires exactly 2 arguments", op)
		}
		return cmpExpr(op, args[0], args[1]), nil
	default:
		return nil, badPipelinef("unknown expression operator %q", op)
	}
}

func arithExpr(op string, args []Expr) Expr {
	return func(d *Document) (Value, error) {
		first, err := args[0](d)
		if err != nil {
			return Value{}, err
		}
		if first.IsAbsent() || !first.IsNumeric() {
			return Value{}, errBadExpression
		}
		acc := first.Numeric()
		allInt := first.Kind() == KindInt
		for _, a := range args[1:] {
			v, err := a(d)
			if err != nil {
				return Value{}, err
			}
			if v.IsAbsent() || !v.IsNumeric() {
				return Value{}, errBadExpression
			}
			if v.Kind() != KindInt {
				allInt = false
			}
			switch op {
			case "$add":
				acc += v.Numeric()
			case "$subtract":
				acc -= v.Numeric()
			case "$multiply":
				acc *= v.Numeric()
			case "$divide":
				if v.Numeric() == 0 {
					return Value{}, badPipelinef("division by zero")
				}
				acc /= v.Numeric()
				allInt = false
			case "$mod":
				bi, _ := v.AsInt()
				ai := int64(acc)
				if bi == 0 {
					return Value{}, badPipelinef("modulo by zero")
				}
				acc = float64(ai % bi)
			}
		}
		if allInt && op != "$divide" {
			return Int(int64(acc)), nil
		}
		return Float(acc), nil
	}
}

func cmpExpr(op string, a, b Expr) Expr {
	return func(d *Document) (Value, error) {
		av, err := a(d)
		if err != nil {
			return Value{}, err
		}
		bv, err := b(d)
		if err != nil {
			return Value{}, err
		}
		if av.IsAbsent() || bv.IsAbsent() {
			return Bool(false), nil
		}
		var result bool
		switch op {
		case "$eq":
			result = valueQueryEqual(av, bv)
		case "$ne":
			result = !valueQueryEqual(av, bv)
		case "$gt":
			result = Compare(av, bv) > 0
		case "$gte":
			result = Compare(av, bv) >= 0
		case "$lt":
			result = Compare(av, bv) < 0
		case "$lte":
			result = Compare(av, bv) <= 0
		}
		return Bool(result), nil
	}
}

func compileCond(arg Value) (Expr, error) {
	arr, ok := arg.AsArray()
	if !ok || len(arr) != 3 {
		return nil, badPipelinef("$cond requires an array of 3 arguments")
	}
	ifE, err := CompileExpr(arr[0])
	if err != nil {
		return nil, err
	}
	thenE, err := CompileExpr(arr[1])
	if err != nil {
		return nil, err
	}
	elseE, err := CompileExpr(arr[2])
	if err != nil {
		return nil, err
	}
	return func(d *Document) (Value, error) {
		cv, err := ifE(d)
		if err != nil {
			return Value{}, err
		}
		b, _ := cv.AsBool()
		if b {
			return thenE(d)
		}
		return elseE(d)
	}, nil
}
