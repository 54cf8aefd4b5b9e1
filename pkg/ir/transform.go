package ir

import (
	"fmt"

	"github.com/dthusian/k2se/pkg/ast"
	"github.com/dthusian/k2se/pkg/builtins"
	"github.com/dthusian/k2se/pkg/diag"
	"github.com/dthusian/k2se/pkg/source"
)

// Transform lowers a parsed Program into one IRModule per declared module.
// Failures here are non-fatal: every diagnostic is accumulated and lowering
// continues, so a single bad module never hides errors in its siblings.
func Transform(prog ast.Program, registry *builtins.Registry) (map[string]*IRModule, []diag.Diagnostic) {
	var diags []diag.Diagnostic

	byName := make(map[string]*ast.Module)
	order := make([]string, 0, len(prog.Modules))

	for i := range prog.Modules {
		m := &prog.Modules[i]

		if _, dup := byName[m.Name]; dup {
			diags = append(diags, diag.New(m.Span, diag.MultipleDeclarations,
				fmt.Sprintf("module %q is already declared", m.Name)))
			continue
		}

		byName[m.Name] = m
		order = append(order, m.Name)
	}

	result := make(map[string]*IRModule, len(order))

	for _, name := range order {
		irm, mdiags := transformModule(byName[name], byName, registry)
		diags = append(diags, mdiags...)
		result[name] = irm
	}

	return result, diags
}

type building struct {
	m        *ast.Module
	byName   map[string]*ast.Module
	registry *builtins.Registry
	irm      *IRModule
	diags    []diag.Diagnostic
	anonCtr  int

	// inTrigger is the name of the enclosing trigger's gate net, or "" at
	// top level. Triggers do not nest.
	inTrigger string

	// wireWrite counts writes to non-mem objects: a wire is combinational
	// and may only ever have one driver.
	wireWrite map[string]int
}

func (b *building) add(d diag.Diagnostic) {
	b.diags = append(b.diags, d)
}

func (b *building) anonName() string {
	b.anonCtr++
	return fmt.Sprintf("$anon_%d", b.anonCtr)
}

func transformModule(m *ast.Module, byName map[string]*ast.Module, registry *builtins.Registry) (*IRModule, []diag.Diagnostic) {
	b := &building{
		m:         m,
		byName:    byName,
		registry:  registry,
		wireWrite: make(map[string]int),
		irm: &IRModule{
			Name:    m.Name,
			Ports:   m.Ports,
			Objects: make(map[string]IRWireMemDecl),
		},
	}

	for i, p := range m.Ports {
		if _, dup := b.irm.Objects[p.Name]; dup {
			b.add(diag.New(p.Span, diag.MultipleDeclarations, fmt.Sprintf("%q is already declared", p.Name)))
			continue
		}

		idx := i
		class := p.Class
		b.irm.Objects[p.Name] = IRWireMemDecl{NetType: p.NetType, PortIndex: &idx, PortClass: &class}
	}

	b.collectDecls(m.Stmts)

	for _, s := range m.Stmts {
		b.lowerStmt(s)
	}

	return b.irm, b.diags
}

// collectDecls walks a module's statement tree (including nested trigger
// bodies) registering every MemDecl/WireDecl up front, so an expression may
// reference a net declared later in program order.
func (b *building) collectDecls(stmts []ast.StmtNode) {
	for _, sn := range stmts {
		switch s := sn.Stmt.(type) {
		case ast.MemDecl:
			b.declare(s.Name, s.NetType, true, sn.Span)
		case ast.WireDecl:
			b.declare(s.Name, s.NetType, false, sn.Span)
		case ast.Trigger:
			b.collectDecls(s.Stmts)
		}
	}
}

func (b *building) declare(name string, netType ast.NetType, isMem bool, span source.Span) {
	if _, dup := b.irm.Objects[name]; dup {
		b.add(diag.New(span, diag.MultipleDeclarations, fmt.Sprintf("%q is already declared", name)))
		return
	}

	b.irm.Objects[name] = IRWireMemDecl{NetType: netType, IsMem: isMem}
}

func (b *building) lowerStmt(sn ast.StmtNode) {
	switch s := sn.Stmt.(type) {
	case ast.MemDecl:
		// already registered by collectDecls; nothing to lower.
	case ast.WireDecl:
		if s.Expr != nil {
			b.lowerAssign(s.Name, ast.AssignEq, s.Expr, sn.Span)
		}
	case ast.Set:
		b.lowerAssign(s.Name, s.AssignOp, s.Expr, sn.Span)
	case ast.ModuleInst:
		b.lowerModuleInst(s, sn.Span)
	case ast.Trigger:
		b.lowerTrigger(s, sn.Span)
	}
}

// lowerAssign implements both WireDecl initializers and Set statements: the
// common shape `name <op>= expr`.
func (b *building) lowerAssign(name string, op ast.AssignOp, expr ast.Expr, span source.Span) {
	obj, ok := b.irm.Objects[name]
	if !ok {
		b.add(diag.New(span, diag.NotDeclared, fmt.Sprintf("%q is not declared", name)))
		return
	}

	if obj.PortClass != nil && *obj.PortClass == ast.In {
		b.add(diag.New(span, diag.WriteToInput, fmt.Sprintf("cannot write to input port %q", name)))
		return
	}

	if obj.IsMem {
		if b.inTrigger == "" {
			b.add(diag.New(span, diag.MemAssignOutsideOfTrigger,
				fmt.Sprintf("mem %q can only be assigned inside a trigger block", name)))
			return
		}

		b.lowerMemAssignInTrigger(name, op, expr, span)

		return
	}

	if b.wireWrite[name] > 0 {
		b.add(diag.New(span, diag.MultipleExclusiveWrites, fmt.Sprintf("%q is written more than once", name)))
		return
	}

	b.wireWrite[name]++

	val := b.lowerExpr(expr)

	if op == ast.AssignAdd {
		val = b.emitCall("$op_add", []IRValue{Net{Name: name}, val}, obj.NetType, ast.ExprSpan(expr))
	}

	b.bindTo(name, val)
}

// lowerMemAssignInTrigger desugars `set x = expr` and `set x += expr` on a
// mem x inside a trigger block into one IRTriggerStmt. Both forms reduce to "add a delta
// to x's feedback when the gate fires": for += the delta is exactly expr;
// for = the delta is `expr - x`, so that when the gate fires x becomes
// x + (expr - x) == expr, and when it does not fire the delta contributes
// nothing extra beyond x's own self-loop.
func (b *building) lowerMemAssignInTrigger(name string, op ast.AssignOp, expr ast.Expr, span source.Span) {
	val := b.lowerExpr(expr)

	obj := b.irm.Objects[name]

	var delta IRValue = val

	if op == ast.AssignEq {
		delta = b.emitCall("$op_sub", []IRValue{val, Net{Name: name}}, obj.NetType, span)
	}

	deltaName := b.materialize(delta, obj.NetType)

	b.irm.TriggerStmts = append(b.irm.TriggerStmts, IRTriggerStmt{
		Dest: name,
		Src:  deltaName,
		On:   b.inTrigger,
	})
}

// bindTo finalizes an assignment to a named net. If val is the net most
// recently produced by an anonymous IRStmt, that statement's Dest is renamed
// in place rather than emitting a redundant copy.
func (b *building) bindTo(name string, val IRValue) {
	if net, ok := val.(Net); ok {
		if len(b.irm.Stmts) > 0 {
			last := &b.irm.Stmts[len(b.irm.Stmts)-1]
			if last.Dest == net.Name && isAnonName(net.Name) {
				last.Dest = name
				delete(b.irm.Objects, net.Name)

				return
			}
		}

		if net.Name == name {
			return
		}
	}

	b.irm.Stmts = append(b.irm.Stmts, IRStmt{Dest: name, OpName: "$passthrough", Args: []IRValue{val}})
}

// materialize ensures val is addressable by name, emitting a $passthrough
// copy for literal/string values, which otherwise have no net identity.
func (b *building) materialize(val IRValue, netType ast.NetType) string {
	if net, ok := val.(Net); ok {
		return net.Name
	}

	name := b.anonName()
	b.irm.Objects[name] = IRWireMemDecl{NetType: netType}
	b.irm.Stmts = append(b.irm.Stmts, IRStmt{Dest: name, OpName: "$passthrough", Args: []IRValue{val}})

	return name
}

func (b *building) lowerModuleInst(s ast.ModuleInst, span source.Span) {
	target, ok := b.byName[s.ModuleName]
	if !ok {
		b.add(diag.New(span, diag.NotDeclared, fmt.Sprintf("module %q is not declared", s.ModuleName)))
		return
	}

	if len(s.Args) != len(target.Ports) {
		b.add(diag.New(span, diag.WrongNumberOfModuleArgs,
			fmt.Sprintf("module %q expects %d argument(s), got %d", s.ModuleName, len(target.Ports), len(s.Args))))

		return
	}

	argNames := make([]string, len(s.Args))

	for i, arg := range s.Args {
		port := target.Ports[i]

		if port.Class == ast.Out || port.Class == ast.InOut {
			ident, ok := arg.(ast.Identifier)
			if !ok {
				b.add(diag.New(ast.ExprSpan(arg), diag.ExprForOutInoutPort,
					fmt.Sprintf("argument %d binds an out/inout port and must be a bare net name", i+1)))

				continue
			}

			if _, declared := b.irm.Objects[ident.Name]; !declared {
				b.add(diag.New(ident.Span, diag.NotDeclared, fmt.Sprintf("%q is not declared", ident.Name)))
			}

			argNames[i] = ident.Name

			continue
		}

		val := b.lowerExpr(arg)
		argNames[i] = b.materialize(val, port.NetType)
	}

	b.irm.ModuleInsts = append(b.irm.ModuleInsts, IRModuleInst{Name: s.ModuleName, Args: argNames})
}

func (b *building) lowerTrigger(s ast.Trigger, span source.Span) {
	if b.inTrigger != "" {
		b.add(diag.New(span, diag.NestedTriggerBlocks, "trigger blocks cannot be nested"))
		return
	}

	if _, ok := b.irm.Objects[s.WatchingName]; !ok {
		b.add(diag.New(span, diag.NotDeclared, fmt.Sprintf("%q is not declared", s.WatchingName)))
		return
	}

	var gate string

	if s.Kind == ast.Raw {
		gate = s.WatchingName
	} else {
		gate = b.anonName()
		b.irm.Objects[gate] = IRWireMemDecl{NetType: ast.Single}

		b.irm.Stmts = append(b.irm.Stmts, IRStmt{
			Dest:   gate,
			OpName: triggerFuncName(s.Kind),
			Args:   []IRValue{Net{Name: s.WatchingName}},
		})
	}

	b.inTrigger = gate

	for _, inner := range s.Stmts {
		b.lowerStmt(inner)
	}

	b.inTrigger = ""
}

// triggerFuncName is only called for the edge-detecting kinds; Raw is
// special-cased in lowerTrigger before this is reached.
func triggerFuncName(k ast.TriggerKind) string {
	switch k {
	case ast.Increasing:
		return "trig_inc"
	case ast.Decreasing:
		return "trig_dec"
	default:
		return "trig_chg"
	}
}

// lowerExpr lowers an expression to an IRValue, emitting whatever IRStmts
// are needed to compute it. Diagnostics are accumulated, never fatal: a
// malformed subexpression still yields a best-effort placeholder value so
// lowering of the enclosing statement can continue.
func (b *building) lowerExpr(e ast.Expr) IRValue {
	switch v := e.(type) {
	case ast.Identifier:
		if _, ok := b.irm.Objects[v.Name]; !ok {
			b.add(diag.New(v.Span, diag.NotDeclared, fmt.Sprintf("%q is not declared", v.Name)))
		}

		return Net{Name: v.Name}

	case ast.IntLiteral:
		return Lit{Value: v.Value}

	case ast.StrLiteral:
		return Str{Value: v.Value}

	case ast.Call:
		return b.lowerCall(v)

	case ast.BinaryOps:
		return b.lowerBinaryOps(v)

	default:
		return Lit{Value: 0}
	}
}

func (b *building) lowerBinaryOps(v ast.BinaryOps) IRValue {
	result := b.lowerExpr(v.Head)

	for _, tail := range v.Tail {
		operand := b.lowerExpr(tail.Operand)

		funcName, ok := builtins.FuncNameForOp(tail.Op)
		if !ok {
			b.add(diag.New(ast.ExprSpan(tail.Operand), diag.InvalidOperator, "operator has no synthesizable implementation"))
			continue
		}

		lt, rt := b.valueNetType(result), b.valueNetType(operand)
		if (lt == ast.Mixed || rt == ast.Mixed) && !builtins.IsArithmetic(funcName) {
			b.add(diag.New(ast.ExprSpan(tail.Operand), diag.InvalidOpOnMixedNets,
				"only + and - may combine a mixed net with another operand"))
		}

		retType := ast.Single
		if lt == ast.Mixed || rt == ast.Mixed {
			retType = ast.Mixed
		}

		result = b.emitCall(funcName, []IRValue{result, operand}, retType, ast.ExprSpan(tail.Operand))
	}

	return result
}

func (b *building) lowerCall(c ast.Call) IRValue {
	desc, ok := b.registry.Lookup(c.Name)
	if !ok {
		b.add(diag.New(c.Span, diag.UnknownFunction, fmt.Sprintf("unknown function %q", c.Name)))
		return Lit{Value: 0}
	}

	if len(c.Args) != len(desc.Args) {
		b.add(diag.New(c.Span, diag.WrongNumberOfFunctionArgs,
			fmt.Sprintf("%q expects %d argument(s), got %d", c.Name, len(desc.Args), len(c.Args))))

		return Lit{Value: 0}
	}

	args := make([]IRValue, len(c.Args))
	argTypes := make([]ast.NetType, len(c.Args))

	for i, a := range c.Args {
		val := b.lowerExpr(a)
		spec := desc.Args[i]

		switch spec.Kind {
		case builtins.ArgNet:
			net, ok := val.(Net)
			if !ok {
				b.add(diag.New(ast.ExprSpan(a), diag.TypeErrArgMismatch, fmt.Sprintf("argument %d of %q must be a net", i+1, c.Name)))
			} else if b.valueNetType(net) != spec.NetType {
				b.add(diag.New(ast.ExprSpan(a), diag.TypeErrArgMismatch, fmt.Sprintf("argument %d of %q has the wrong net type", i+1, c.Name)))
			}
		case builtins.ArgSingleOrLit:
			if b.valueNetType(val) != ast.Single {
				b.add(diag.New(ast.ExprSpan(a), diag.TypeErrArgMismatch, fmt.Sprintf("argument %d of %q must be single-width", i+1, c.Name)))
			}
		case builtins.ArgString:
			if _, ok := val.(Str); !ok {
				b.add(diag.New(ast.ExprSpan(a), diag.ExpectedString, fmt.Sprintf("argument %d of %q must be a string", i+1, c.Name)))
			}
		}

		args[i] = val
		argTypes[i] = b.valueNetType(val)
	}

	retType := ast.Single
	if desc.ReturnType != nil {
		retType = desc.ReturnType(argTypes)
	}

	return b.emitCall(c.Name, args, retType, c.Span)
}

func (b *building) emitCall(opName string, args []IRValue, retType ast.NetType, span source.Span) IRValue {
	dest := b.anonName()
	b.irm.Objects[dest] = IRWireMemDecl{NetType: retType}
	b.irm.Stmts = append(b.irm.Stmts, IRStmt{Dest: dest, OpName: opName, Args: args})

	return Net{Name: dest}
}

func (b *building) valueNetType(v IRValue) ast.NetType {
	switch t := v.(type) {
	case Net:
		if obj, ok := b.irm.Objects[t.Name]; ok {
			return obj.NetType
		}

		return ast.Single
	default:
		return ast.Single
	}
}

func isAnonName(name string) bool {
	return len(name) > 6 && name[:6] == "$anon_"
}
