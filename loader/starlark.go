package loader

import (
	"fmt"
	"strconv"
	"strings"

	"go.starlark.net/syntax"
)

// The Starlark dialect is a typed subset: a file holds only def statements,
// every def becomes an extern function, and types are inferred from literals.
// A parameter is int unless its default value says otherwise. Locals are
// declared at the top of the function with the type of their first
// assignment, and the result type is that of the first return value.
// throw(n) raises n.

type variable struct {
	name string
	typ  string
}

type signature struct {
	params []variable
	locals []variable
	scope  map[string]string
	result string
}

type translator struct {
	sigs  map[string]*signature
	out   strings.Builder
	depth int
}

// Translate parses Starlark source and returns the equivalent CBot source.
// src is anything syntax.FileOptions.Parse accepts.
func Translate(name string, src any) (string, error) {
	opts := syntax.FileOptions{While: true}
	f, err := opts.Parse(name, src, 0)
	if err != nil {
		return "", err
	}

	var defs []*syntax.DefStmt
	for _, s := range f.Stmts {
		d, ok := s.(*syntax.DefStmt)
		if !ok {
			return "", errorf(s, "only def statements are allowed at top level")
		}
		defs = append(defs, d)
	}

	tr := &translator{sigs: make(map[string]*signature)}
	// Second pass picks up result types of functions defined further down.
	for pass := 0; pass < 2; pass++ {
		for _, d := range defs {
			sig, err := tr.signature(d)
			if err != nil {
				return "", err
			}
			tr.sigs[d.Name.Name] = sig
		}
	}
	for i, d := range defs {
		if i > 0 {
			tr.out.WriteString("\n")
		}
		if err := tr.def(d); err != nil {
			return "", err
		}
	}
	return tr.out.String(), nil
}

func errorf(n syntax.Node, format string, args ...any) error {
	start, _ := n.Span()
	return fmt.Errorf("%s: %s", start, fmt.Sprintf(format, args...))
}

func (tr *translator) signature(d *syntax.DefStmt) (*signature, error) {
	sig := &signature{scope: make(map[string]string), result: "void"}
	for _, p := range d.Params {
		var v variable
		switch p := p.(type) {
		case *syntax.Ident:
			v = variable{name: p.Name, typ: "int"}
		case *syntax.BinaryExpr:
			id, ok := p.X.(*syntax.Ident)
			if !ok || p.Op != syntax.EQ {
				return nil, errorf(p, "unsupported parameter")
			}
			v = variable{name: id.Name, typ: tr.typeOf(p.Y, sig.scope)}
		default:
			return nil, errorf(p, "unsupported parameter")
		}
		sig.params = append(sig.params, v)
		sig.scope[v.name] = v.typ
	}
	tr.collect(d.Body, sig)
	return sig, nil
}

// collect finds the locals of a function body and its result type.
func (tr *translator) collect(stmts []syntax.Stmt, sig *signature) {
	declare := func(name, typ string) {
		if _, ok := sig.scope[name]; ok {
			return
		}
		sig.scope[name] = typ
		sig.locals = append(sig.locals, variable{name: name, typ: typ})
	}
	for _, s := range stmts {
		switch v := s.(type) {
		case *syntax.AssignStmt:
			if id, ok := v.LHS.(*syntax.Ident); ok && v.Op == syntax.EQ {
				declare(id.Name, tr.typeOf(v.RHS, sig.scope))
			}
		case *syntax.ForStmt:
			if id, ok := v.Vars.(*syntax.Ident); ok {
				declare(id.Name, "int")
			}
			tr.collect(v.Body, sig)
		case *syntax.WhileStmt:
			tr.collect(v.Body, sig)
		case *syntax.IfStmt:
			tr.collect(v.True, sig)
			tr.collect(v.False, sig)
		case *syntax.ReturnStmt:
			if v.Result != nil && sig.result == "void" {
				sig.result = tr.typeOf(v.Result, sig.scope)
			}
		}
	}
}

func (tr *translator) typeOf(e syntax.Expr, scope map[string]string) string {
	switch v := e.(type) {
	case *syntax.Literal:
		switch v.Token {
		case syntax.FLOAT:
			return "float"
		case syntax.STRING:
			return "string"
		}
	case *syntax.Ident:
		if v.Name == "True" || v.Name == "False" {
			return "bool"
		}
		if t, ok := scope[v.Name]; ok {
			return t
		}
	case *syntax.ParenExpr:
		return tr.typeOf(v.X, scope)
	case *syntax.UnaryExpr:
		if v.Op == syntax.NOT {
			return "bool"
		}
		return tr.typeOf(v.X, scope)
	case *syntax.BinaryExpr:
		switch v.Op {
		case syntax.EQL, syntax.NEQ, syntax.LT, syntax.GT, syntax.LE, syntax.GE, syntax.AND, syntax.OR:
			return "bool"
		}
		l, r := tr.typeOf(v.X, scope), tr.typeOf(v.Y, scope)
		switch {
		case l == "string" || r == "string":
			return "string"
		case l == "float" || r == "float":
			return "float"
		}
		return l
	case *syntax.CondExpr:
		return tr.typeOf(v.True, scope)
	case *syntax.CallExpr:
		if id, ok := v.Fn.(*syntax.Ident); ok {
			if sig, ok := tr.sigs[id.Name]; ok {
				return sig.result
			}
		}
	}
	return "int"
}

func (tr *translator) line(format string, args ...any) {
	tr.out.WriteString(strings.Repeat("\t", tr.depth))
	fmt.Fprintf(&tr.out, format, args...)
	tr.out.WriteByte('\n')
}

func (tr *translator) def(d *syntax.DefStmt) error {
	sig := tr.sigs[d.Name.Name]
	params := make([]string, len(sig.params))
	for i, p := range sig.params {
		params[i] = p.typ + " " + p.name
	}
	tr.line("extern %s %s(%s) {", sig.result, d.Name.Name, strings.Join(params, ", "))
	tr.depth++
	for _, l := range sig.locals {
		tr.line("%s %s;", l.typ, l.name)
	}
	if err := tr.block(d.Body); err != nil {
		return err
	}
	tr.depth--
	tr.line("}")
	return nil
}

func (tr *translator) block(stmts []syntax.Stmt) error {
	for _, s := range stmts {
		if err := tr.statement(s); err != nil {
			return err
		}
	}
	return nil
}

func (tr *translator) nested(stmts []syntax.Stmt) error {
	tr.depth++
	defer func() { tr.depth-- }()
	return tr.block(stmts)
}

var compoundOps = map[syntax.Token]string{
	syntax.PLUS_EQ:    "+=",
	syntax.MINUS_EQ:   "-=",
	syntax.STAR_EQ:    "*=",
	syntax.SLASH_EQ:   "/=",
	syntax.PERCENT_EQ: "%=",
}

var expandedOps = map[syntax.Token]syntax.Token{
	syntax.SLASHSLASH_EQ: syntax.SLASHSLASH,
	syntax.AMP_EQ:        syntax.AMP,
	syntax.PIPE_EQ:       syntax.PIPE,
	syntax.CIRCUMFLEX_EQ: syntax.CIRCUMFLEX,
	syntax.LTLT_EQ:       syntax.LTLT,
	syntax.GTGT_EQ:       syntax.GTGT,
}

func (tr *translator) statement(s syntax.Stmt) error {
	switch v := s.(type) {
	case *syntax.AssignStmt:
		id, ok := v.LHS.(*syntax.Ident)
		if !ok {
			return errorf(v.LHS, "only names can be assigned")
		}
		rhs, err := tr.expr(v.RHS)
		if err != nil {
			return err
		}
		if v.Op == syntax.EQ {
			tr.line("%s = %s;", id.Name, rhs)
			return nil
		}
		if op, ok := compoundOps[v.Op]; ok {
			tr.line("%s %s %s;", id.Name, op, rhs)
			return nil
		}
		if op, ok := expandedOps[v.Op]; ok {
			tr.line("%s = (%s %s %s);", id.Name, id.Name, binaryOps[op], rhs)
			return nil
		}
		return errorf(v, "unsupported assignment %s", v.Op)
	case *syntax.ExprStmt:
		if call, ok := v.X.(*syntax.CallExpr); ok && isIdent(call.Fn, "throw") {
			if len(call.Args) != 1 {
				return errorf(call, "throw takes one argument")
			}
			x, err := tr.expr(call.Args[0])
			if err != nil {
				return err
			}
			tr.line("throw %s;", x)
			return nil
		}
		x, err := tr.expr(v.X)
		if err != nil {
			return err
		}
		tr.line("%s;", x)
	case *syntax.BranchStmt:
		switch v.Token {
		case syntax.BREAK:
			tr.line("break;")
		case syntax.CONTINUE:
			tr.line("continue;")
		default:
			tr.line(";")
		}
	case *syntax.ReturnStmt:
		if v.Result == nil {
			tr.line("return;")
			return nil
		}
		x, err := tr.expr(v.Result)
		if err != nil {
			return err
		}
		tr.line("return %s;", x)
	case *syntax.IfStmt:
		cond, err := tr.expr(v.Cond)
		if err != nil {
			return err
		}
		tr.line("if (%s) {", cond)
		if err := tr.nested(v.True); err != nil {
			return err
		}
		if len(v.False) > 0 {
			tr.line("} else {")
			if err := tr.nested(v.False); err != nil {
				return err
			}
		}
		tr.line("}")
	case *syntax.WhileStmt:
		cond, err := tr.expr(v.Cond)
		if err != nil {
			return err
		}
		tr.line("while (%s) {", cond)
		if err := tr.nested(v.Body); err != nil {
			return err
		}
		tr.line("}")
	case *syntax.ForStmt:
		return tr.forRange(v)
	default:
		return errorf(s, "unsupported statement %T", s)
	}
	return nil
}

// forRange handles for x in range(...), the only loop over a sequence.
func (tr *translator) forRange(v *syntax.ForStmt) error {
	id, ok := v.Vars.(*syntax.Ident)
	if !ok {
		return errorf(v.Vars, "loop variable must be a name")
	}
	call, ok := v.X.(*syntax.CallExpr)
	if !ok || !isIdent(call.Fn, "range") || len(call.Args) == 0 || len(call.Args) > 3 {
		return errorf(v.X, "only range(...) can be iterated")
	}
	args := make([]string, len(call.Args))
	for i, a := range call.Args {
		x, err := tr.expr(a)
		if err != nil {
			return err
		}
		args[i] = x
	}
	start, stop, step := "0", args[0], "1"
	if len(args) > 1 {
		start, stop = args[0], args[1]
	}
	cmp := "<"
	if len(args) == 3 {
		step = args[2]
		if u, ok := call.Args[2].(*syntax.UnaryExpr); ok && u.Op == syntax.MINUS {
			cmp = ">"
		}
	}
	tr.line("for (%s = %s; %s %s %s; %s += %s) {", id.Name, start, id.Name, cmp, stop, id.Name, step)
	if err := tr.nested(v.Body); err != nil {
		return err
	}
	tr.line("}")
	return nil
}

func isIdent(e syntax.Expr, name string) bool {
	id, ok := e.(*syntax.Ident)
	return ok && id.Name == name
}

var binaryOps = map[syntax.Token]string{
	syntax.PLUS:       "+",
	syntax.MINUS:      "-",
	syntax.STAR:       "*",
	syntax.SLASH:      "/",
	syntax.SLASHSLASH: "/",
	syntax.PERCENT:    "%",
	syntax.AMP:        "&",
	syntax.PIPE:       "|",
	syntax.CIRCUMFLEX: "^",
	syntax.LTLT:       "<<",
	syntax.GTGT:       ">>",
	syntax.EQL:        "==",
	syntax.NEQ:        "!=",
	syntax.LT:         "<",
	syntax.GT:         ">",
	syntax.LE:         "<=",
	syntax.GE:         ">=",
	syntax.AND:        "&&",
	syntax.OR:         "||",
}

var unaryOps = map[syntax.Token]string{
	syntax.MINUS: "-",
	syntax.PLUS:  "",
	syntax.NOT:   "!",
	syntax.TILDE: "~",
}

func (tr *translator) expr(e syntax.Expr) (string, error) {
	switch v := e.(type) {
	case *syntax.Literal:
		switch v.Token {
		case syntax.INT:
			return fmt.Sprint(v.Value), nil
		case syntax.FLOAT:
			s := strconv.FormatFloat(v.Value.(float64), 'f', -1, 64)
			if !strings.Contains(s, ".") {
				s += ".0"
			}
			return s, nil
		case syntax.STRING:
			return quote(v.Value.(string)), nil
		}
		return "", errorf(v, "unsupported literal %s", v.Raw)
	case *syntax.Ident:
		switch v.Name {
		case "True":
			return "true", nil
		case "False":
			return "false", nil
		case "None":
			return "", errorf(v, "None has no value")
		}
		return v.Name, nil
	case *syntax.ParenExpr:
		return tr.expr(v.X)
	case *syntax.UnaryExpr:
		op, ok := unaryOps[v.Op]
		if !ok {
			return "", errorf(v, "unsupported operator %s", v.Op)
		}
		x, err := tr.expr(v.X)
		if err != nil {
			return "", err
		}
		return "(" + op + x + ")", nil
	case *syntax.BinaryExpr:
		op, ok := binaryOps[v.Op]
		if !ok {
			return "", errorf(v, "unsupported operator %s", v.Op)
		}
		x, err := tr.expr(v.X)
		if err != nil {
			return "", err
		}
		y, err := tr.expr(v.Y)
		if err != nil {
			return "", err
		}
		return "(" + x + " " + op + " " + y + ")", nil
	case *syntax.CondExpr:
		c, err := tr.expr(v.Cond)
		if err != nil {
			return "", err
		}
		a, err := tr.expr(v.True)
		if err != nil {
			return "", err
		}
		b, err := tr.expr(v.False)
		if err != nil {
			return "", err
		}
		return "(" + c + " ? " + a + " : " + b + ")", nil
	case *syntax.CallExpr:
		id, ok := v.Fn.(*syntax.Ident)
		if !ok {
			return "", errorf(v.Fn, "only named functions can be called")
		}
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			if b, ok := a.(*syntax.BinaryExpr); ok && b.Op == syntax.EQ {
				return "", errorf(a, "keyword arguments are not supported")
			}
			x, err := tr.expr(a)
			if err != nil {
				return "", err
			}
			args[i] = x
		}
		return id.Name + "(" + strings.Join(args, ", ") + ")", nil
	}
	return "", errorf(e, "unsupported expression %T", e)
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "\r", `\r`)
	return `"` + r.Replace(s) + `"`
}
