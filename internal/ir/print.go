package ir

import (
	"fmt"
	"strings"
)

// Print renders a function's blocks in a compact, human-readable textual
// form used by tests and CLI debugging output. It is not a serialization
// format; codegen does not read it back.
func Print(fn *Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "function %s(", fn.Name)
	for i, p := range fn.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
	}
	b.WriteString(") {\n")
	for _, blk := range fn.Blocks {
		printBlock(&b, blk)
	}
	b.WriteString("}\n")
	return b.String()
}

func printBlock(b *strings.Builder, blk *BasicBlock) {
	fmt.Fprintf(b, "  block%d:\n", blk.ID)
	for _, inst := range blk.Instructions {
		fmt.Fprintf(b, "    %s\n", printInstruction(inst))
	}
	fmt.Fprintf(b, "    %s\n", printTerminator(blk.Terminator))
}

func printInstruction(inst Instruction) string {
	switch i := inst.(type) {
	case *Assign:
		return fmt.Sprintf("%s = %s", i.Target, printExpr(i.Value))
	case *Expression:
		return printExpr(i.Value)
	case *Phi:
		parts := make([]string, len(i.Sources))
		for idx, s := range i.Sources {
			parts[idx] = fmt.Sprintf("block%d: %s", s.Pred, s.Name)
		}
		return fmt.Sprintf("%s = phi(%s)", i.Target, strings.Join(parts, ", "))
	default:
		return "<unknown instruction>"
	}
}

func printTerminator(t Terminator) string {
	switch term := t.(type) {
	case *Return:
		if term.Value == nil {
			return "return"
		}
		return "return " + printExpr(term.Value)
	case *Throw:
		return "throw " + printExpr(term.Value)
	case *Jump:
		return fmt.Sprintf("jump block%d", term.Target)
	case *Branch:
		return fmt.Sprintf("branch %s ? block%d : block%d", printExpr(term.Test), term.Cons, term.Alt)
	case *Switch:
		return fmt.Sprintf("switch %s (%d cases)", printExpr(term.Disc), len(term.Cases))
	case *Unreachable:
		return "unreachable"
	case *Break:
		return fmt.Sprintf("break -> block%d", term.Target)
	case *Continue:
		return fmt.Sprintf("continue -> block%d", term.Target)
	case *ForOf:
		return fmt.Sprintf("for_of %s of %s -> block%d else block%d", term.Var, printExpr(term.Iter), term.Body, term.Exit)
	case *ForIn:
		return fmt.Sprintf("for_in %s in %s -> block%d else block%d", term.Var, printExpr(term.Obj), term.Body, term.Exit)
	case *Try:
		return fmt.Sprintf("try block%d catch %d finally %d exit %d", term.TryBlock, term.CatchBlock, term.FinallyBlock, term.Exit)
	default:
		return "<unknown terminator>"
	}
}

func printExpr(e Expr) string {
	if e == nil {
		return "<nil>"
	}
	switch x := e.(type) {
	case *Identifier:
		return x.Name
	case *Literal:
		return x.Raw
	case *Call:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = printExpr(a)
		}
		return fmt.Sprintf("%s(%s)", printExpr(x.Callee), strings.Join(args, ", "))
	case *Member:
		if x.Computed != nil {
			return fmt.Sprintf("%s[%s]", printExpr(x.Object), printExpr(x.Computed))
		}
		return fmt.Sprintf("%s.%s", printExpr(x.Object), x.Property)
	case *OptionalMember:
		return fmt.Sprintf("%s?.%s", printExpr(x.Object), x.Property)
	case *Binary:
		return fmt.Sprintf("(%s %s %s)", printExpr(x.Left), x.Op, printExpr(x.Right))
	case *Unary:
		if x.Prefix {
			return x.Op + printExpr(x.Value)
		}
		return printExpr(x.Value) + x.Op
	case *Logical:
		return fmt.Sprintf("(%s %s %s)", printExpr(x.Left), x.Op, printExpr(x.Right))
	case *Conditional:
		return fmt.Sprintf("(%s ? %s : %s)", printExpr(x.Test), printExpr(x.Cons), printExpr(x.Alt))
	case *AssignmentExpression:
		return fmt.Sprintf("%s %s %s", printExpr(x.Target), x.Op, printExpr(x.Value))
	case *UpdateExpression:
		if x.Prefix {
			return x.Op + printExpr(x.Target)
		}
		return printExpr(x.Target) + x.Op
	case *This:
		return "this"
	default:
		return fmt.Sprintf("<expr %T>", e)
	}
}
