// Package lifter translates decoded Dalvik methods into the typed SSA IR,
// constructing SSA form on the fly with lazily inserted block arguments
// (Braun/Hack, "Simple and Efficient Construction of Static Single Assignment
// Form"). A lift error aborts the current method only.
package lifter

import (
	"fmt"

	"github.com/lookbusy1344/dex-analyzer/dex"
	"github.com/lookbusy1344/dex-analyzer/disasm"
	"github.com/lookbusy1344/dex-analyzer/ir"
)

// Lifter lifts methods of one parsed DEX. A Lifter carries per-method working
// state and is not safe for concurrent use; create one per goroutine to lift
// methods in parallel (the pool itself is immutable and freely shared).
type Lifter struct {
	dex   *dex.DEX
	graph *ir.Graph
	state map[*ir.Block]*blockState
}

// NewLifter creates a lifter resolving pool references against the given DEX
func NewLifter(d *dex.DEX) *Lifter {
	return &Lifter{dex: d}
}

// LiftMethod translates one disassembled method into an IR graph.
// Blocks are visited in reverse post-order from the entry; unreachable blocks
// (present under linear sweep) are lifted afterwards in address order.
func (l *Lifter) LiftMethod(md *disasm.MethodDisassembly) (*ir.Graph, error) {
	if md.Err != nil {
		return nil, NewLiftError(0, "", ErrMalformedGraph, "method failed to decode").
			wrap(md.Err)
	}
	if md.Blocks == nil {
		return nil, NewLiftError(0, "", ErrMalformedGraph, "method has no basic blocks")
	}

	l.graph = ir.NewGraph()
	l.state = make(map[*ir.Block]*blockState)

	// Materialize IR blocks and control-flow edges from the CFG
	for _, bb := range md.Blocks.All() {
		b := l.graph.NewBlock(bb.Start)
		l.state[b] = newBlockState()
	}
	for _, bb := range md.Blocks.All() {
		from := l.graph.BlockAt(bb.Start)
		for _, s := range bb.Successors {
			if to := l.graph.BlockAt(s); to != nil {
				l.graph.AddEdge(from, to)
			}
		}
	}

	order := l.visitOrder()
	lifted := make(map[*ir.Block]bool)

	for _, b := range order {
		if err := l.maybeSeal(b, lifted); err != nil {
			return nil, err
		}
		bb := md.Blocks.BlockAt(b.Index)
		for _, inst := range bb.Instructions {
			if inst.IsPayload() {
				continue
			}
			if err := l.liftInstruction(b, inst); err != nil {
				return nil, err
			}
		}
		lifted[b] = true

		// A block seals once its last predecessor has been lifted
		for _, other := range l.graph.Blocks() {
			if err := l.maybeSeal(other, lifted); err != nil {
				return nil, err
			}
		}
	}

	// Loop headers with back edges from unlifted paths seal last
	for _, b := range l.graph.Blocks() {
		if err := l.sealBlock(b); err != nil {
			return nil, err
		}
	}

	l.fallthroughAnalysis(md)

	return l.graph, nil
}

// maybeSeal seals a block whose predecessors have all been lifted
func (l *Lifter) maybeSeal(b *ir.Block, lifted map[*ir.Block]bool) error {
	if l.state[b].sealed {
		return nil
	}
	for _, p := range b.Preds() {
		if !lifted[p] {
			return nil
		}
	}
	return l.sealBlock(b)
}

// visitOrder returns reverse post-order from the entry, followed by any
// unreachable blocks in ascending address order
func (l *Lifter) visitOrder() []*ir.Block {
	var post []*ir.Block
	seen := make(map[*ir.Block]bool)

	var dfs func(*ir.Block)
	dfs = func(b *ir.Block) {
		seen[b] = true
		for _, s := range b.Succs() {
			if !seen[s] {
				dfs(s)
			}
		}
		post = append(post, b)
	}
	if l.graph.Entry != nil {
		dfs(l.graph.Entry)
	}

	order := make([]*ir.Block, 0, len(l.graph.Blocks()))
	for i := len(post) - 1; i >= 0; i-- {
		order = append(order, post[i])
	}
	for _, b := range l.graph.Blocks() {
		if !seen[b] {
			order = append(order, b)
		}
	}
	return order
}

// liftInstruction dispatches on the instruction format, mirroring the
// per-shape decoder split
func (l *Lifter) liftInstruction(b *ir.Block, inst *disasm.Instruction) error {
	switch inst.Format {
	case disasm.Format23x:
		return l.gen23x(b, inst)
	case disasm.Format12x:
		return l.gen12x(b, inst)
	case disasm.Format11x:
		return l.gen11x(b, inst)
	case disasm.Format10x:
		return l.gen10x(b, inst)
	case disasm.Format22c:
		return l.gen22c(b, inst)
	case disasm.Format22t:
		return l.gen22t(b, inst)
	case disasm.Format10t, disasm.Format20t, disasm.Format30t:
		return l.genGoto(b, inst)
	default:
		return NewLiftError(inst.Address, inst.Opcode.Name(), ErrUnsupportedOpcode,
			fmt.Sprintf("no lifting rule for format %s", inst.Format))
	}
}

// gen23x lifts the three-register binary arithmetic family
func (l *Lifter) gen23x(b *ir.Block, inst *disasm.Instruction) error {
	rule, ok := binaryOps[inst.Opcode]
	if !ok {
		return NewLiftError(inst.Address, inst.Opcode.Name(), ErrUnsupportedOpcode,
			"23x opcode has no lifting rule")
	}
	src1, err := l.readLocal(b, inst.B)
	if err != nil {
		return err
	}
	src2, err := l.readLocal(b, inst.C)
	if err != nil {
		return err
	}
	v := l.graph.NewOp(b, rule.Kind, rule.Type, inst.Address, src1, src2)
	l.writeLocal(b, inst.A, v)
	return nil
}

// gen12x lifts moves and the two-register accumulate arithmetic family
func (l *Lifter) gen12x(b *ir.Block, inst *disasm.Instruction) error {
	switch inst.Opcode {
	case disasm.OpMove, disasm.OpMoveWide, disasm.OpMoveObject:
		src, err := l.readLocal(b, inst.B)
		if err != nil {
			return err
		}
		// A move's result type is the source value's type
		v := l.graph.NewOp(b, ir.OpMove, src.Type, inst.Address, src)
		l.writeLocal(b, inst.A, v)
		return nil
	}

	rule, ok := binaryOps2Addr[inst.Opcode]
	if !ok {
		return NewLiftError(inst.Address, inst.Opcode.Name(), ErrUnsupportedOpcode,
			"12x opcode has no lifting rule")
	}
	src1, err := l.readLocal(b, inst.A)
	if err != nil {
		return err
	}
	src2, err := l.readLocal(b, inst.B)
	if err != nil {
		return err
	}
	v := l.graph.NewOp(b, rule.Kind, rule.Type, inst.Address, src1, src2)
	l.writeLocal(b, inst.A, v)
	return nil
}

// gen11x lifts the single-register returns
func (l *Lifter) gen11x(b *ir.Block, inst *disasm.Instruction) error {
	switch inst.Opcode {
	case disasm.OpReturn, disasm.OpReturnWide, disasm.OpReturnObject:
		v, err := l.readLocal(b, inst.A)
		if err != nil {
			return err
		}
		l.graph.NewOp(b, ir.OpReturn, ir.TypeNone, inst.Address, v)
		return nil
	}
	return NewLiftError(inst.Address, inst.Opcode.Name(), ErrUnsupportedOpcode,
		"11x opcode has no lifting rule")
}

// gen10x lifts nop and return-void
func (l *Lifter) gen10x(b *ir.Block, inst *disasm.Instruction) error {
	switch inst.Opcode {
	case disasm.OpNop:
		return nil
	case disasm.OpReturnVoid:
		l.graph.NewOp(b, ir.OpReturn, ir.TypeNone, inst.Address)
		return nil
	}
	return NewLiftError(inst.Address, inst.Opcode.Name(), ErrUnsupportedOpcode,
		"10x opcode has no lifting rule")
}

// gen22c lifts instance field loads and stores
func (l *Lifter) gen22c(b *ir.Block, inst *disasm.Instruction) error {
	typ, ok := fieldAccess[inst.Opcode]
	if !ok {
		return NewLiftError(inst.Address, inst.Opcode.Name(), ErrUnsupportedOpcode,
			"22c opcode has no lifting rule")
	}
	field, err := l.dex.Fields.GetFieldByID(inst.Index)
	if err != nil {
		return NewLiftError(inst.Address, inst.Opcode.Name(), ErrMalformedGraph,
			"field index does not resolve").wrap(err)
	}

	if inst.Opcode >= disasm.OpIput {
		v, rerr := l.readLocal(b, inst.A)
		if rerr != nil {
			return rerr
		}
		op := l.graph.NewOp(b, ir.OpStoreField, ir.TypeNone, inst.Address, v)
		op.FieldRef = inst.Index
		op.FieldName = field.Name
		op.FieldClass = field.Class.Raw()
		return nil
	}

	op := l.graph.NewOp(b, ir.OpLoadField, typ, inst.Address)
	op.FieldRef = inst.Index
	op.FieldName = field.Name
	op.FieldClass = field.Class.Raw()
	l.writeLocal(b, inst.A, op)
	return nil
}

// gen22t lifts the two-register conditional branches: the comparison matching
// the opcode, then a conditional branch to target and fallthrough blocks
func (l *Lifter) gen22t(b *ir.Block, inst *disasm.Instruction) error {
	cmpKind, ok := comparisons[inst.Opcode]
	if !ok {
		return NewLiftError(inst.Address, inst.Opcode.Name(), ErrUnsupportedOpcode,
			"22t opcode has no lifting rule")
	}
	v1, err := l.readLocal(b, inst.A)
	if err != nil {
		return err
	}
	v2, err := l.readLocal(b, inst.B)
	if err != nil {
		return err
	}
	cmp := l.graph.NewOp(b, cmpKind, ir.TypeBool, inst.Address, v1, v2)

	trueIdx := inst.Address + uint32(inst.Offset)*2
	falseIdx := inst.Address + inst.ByteLength()
	trueBlock := l.graph.BlockAt(trueIdx)
	falseBlock := l.graph.BlockAt(falseIdx)
	if trueBlock == nil || falseBlock == nil {
		return NewLiftError(inst.Address, inst.Opcode.Name(), ErrMalformedGraph,
			fmt.Sprintf("branch targets 0x%04X/0x%04X are not block entries", trueIdx, falseIdx))
	}

	// The branch-site values for both edges live in the graph's jmpParameters
	// mapping, queried per edge when the IR is consumed
	br := l.graph.NewOp(b, ir.OpCondBranch, ir.TypeNone, inst.Address, cmp)
	br.TrueTarget = trueBlock
	br.FalseTarget = falseBlock
	return nil
}

// genGoto lifts the unconditional branches of all three widths
func (l *Lifter) genGoto(b *ir.Block, inst *disasm.Instruction) error {
	switch inst.Opcode {
	case disasm.OpGoto, disasm.OpGoto16, disasm.OpGoto32:
	default:
		return NewLiftError(inst.Address, inst.Opcode.Name(), ErrUnsupportedOpcode,
			"goto format carries a non-goto opcode")
	}

	targetIdx := inst.Address + uint32(inst.Offset)*2
	target := l.graph.BlockAt(targetIdx)
	if target == nil {
		return NewLiftError(inst.Address, inst.Opcode.Name(), ErrMalformedGraph,
			fmt.Sprintf("branch target 0x%04X is not a block entry", targetIdx))
	}

	br := l.graph.NewOp(b, ir.OpBranch, ir.TypeNone, inst.Address)
	br.TrueTarget = target
	return nil
}

// fallthroughAnalysis inserts explicit fallthrough branches for blocks whose
// final operation is not a terminator
func (l *Lifter) fallthroughAnalysis(md *disasm.MethodDisassembly) {
	for _, b := range l.graph.Blocks() {
		if b.Terminated() {
			continue
		}
		bb := md.Blocks.BlockAt(b.Index)
		if bb == nil {
			continue
		}
		target := l.graph.BlockAt(bb.End)
		if target == nil {
			continue
		}
		br := l.graph.NewOp(b, ir.OpBranch, ir.TypeNone, bb.End)
		br.TrueTarget = target
	}
}

// wrap attaches an underlying error to a LiftError
func (e *LiftError) wrap(err error) *LiftError {
	e.Wrapped = err
	return e
}
