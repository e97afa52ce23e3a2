package lifter

import (
	"errors"
	"testing"

	"github.com/lookbusy1344/dex-analyzer/dex"
	"github.com/lookbusy1344/dex-analyzer/disasm"
	"github.com/lookbusy1344/dex-analyzer/ir"
)

// analyzeUnits decodes a synthetic method body and builds its CFG
func analyzeUnits(t *testing.T, units []uint16) *disasm.MethodDisassembly {
	t.Helper()

	d := disasm.NewDisassembler(nil)
	em := &dex.EncodedMethod{
		Method: &dex.MethodID{
			Class: dex.ParseType("LTest;"),
			Proto: &dex.Proto{Shorty: "V", Return: dex.ParseType("V")},
			Name:  "target",
		},
		Code: &dex.CodeItem{RegistersSize: 8, Insns: units},
	}
	md := d.DisassembleMethod(&dex.ClassDef{}, em)
	if md.Err != nil {
		t.Fatalf("disassembly failed: %v", md.Err)
	}
	return md
}

func lastOp(t *testing.T, b *ir.Block) *ir.Value {
	t.Helper()
	if len(b.Ops) == 0 {
		t.Fatalf("block @0x%04X has no operations", b.Index)
	}
	return b.Ops[len(b.Ops)-1]
}

// checkNoTrivialArgs asserts that trivial-argument elimination converged:
// no remaining block argument has all incoming edges equal to a single value
func checkNoTrivialArgs(t *testing.T, g *ir.Graph) {
	t.Helper()
	for _, b := range g.Blocks() {
		for _, arg := range b.Args {
			if len(b.Preds()) == 0 {
				continue // entry parameters have no incoming edges
			}
			var distinct *ir.Value
			trivial := true
			for _, p := range b.Preds() {
				params := g.EdgeArgs(p, b)
				if arg.ArgIndex >= len(params) {
					trivial = false
					break
				}
				v := params[arg.ArgIndex]
				if v == arg || v == distinct {
					continue
				}
				if distinct != nil {
					trivial = false
					break
				}
				distinct = v
			}
			if trivial && distinct != nil {
				t.Errorf("block 0x%04X argument %d is trivial (all edges supply %%%d)",
					b.Index, arg.ArgIndex, distinct.ID())
			}
		}
	}
}

func TestLiftIfEqEmitsCompareAndCondBranch(t *testing.T) {
	// Eight nops, then at address 0x10: if-eq v0, v1, +4.
	// True target 0x18 = 0x10 + 4*2; false target 0x14 = 0x10 + length.
	units := []uint16{
		0x0000, 0x0000, 0x0000, 0x0000, 0x0000, 0x0000, 0x0000, 0x0000,
		0x1032, 0x0004, // 0x10: if-eq v0, v1, +4
		0x000e, // 0x14: return-void
		0x0000, // 0x16: nop
		0x000e, // 0x18: return-void
	}
	md := analyzeUnits(t, units)

	g, err := NewLifter(nil).LiftMethod(md)
	if err != nil {
		t.Fatalf("lift failed: %v", err)
	}

	entry := g.Entry
	br := lastOp(t, entry)
	if br.Kind != ir.OpCondBranch {
		t.Fatalf("entry block ends with %s, want CondBranch", br.Kind)
	}
	if br.TrueTarget.Index != 0x18 {
		t.Errorf("true target = 0x%04X, want 0x18", br.TrueTarget.Index)
	}
	if br.FalseTarget.Index != 0x14 {
		t.Errorf("false target = 0x%04X, want 0x14", br.FalseTarget.Index)
	}

	cmp := br.Operands()[0]
	if cmp.Kind != ir.OpCmpEq {
		t.Fatalf("condition is %s, want CmpEq", cmp.Kind)
	}
	if cmp.Type != ir.TypeBool {
		t.Errorf("comparison type = %s, want bool", cmp.Type)
	}
	if len(cmp.Operands()) != 2 {
		t.Fatalf("comparison has %d operands, want 2", len(cmp.Operands()))
	}
	for _, op := range cmp.Operands() {
		if op.Kind != ir.OpBlockArg || op.Block != entry {
			t.Errorf("comparison operand is not an entry-block argument: %s", op)
		}
	}
	if cmp.Addr != 0x10 {
		t.Errorf("comparison source address = 0x%04X, want 0x10", cmp.Addr)
	}
}

func TestLiftMergeInsertsBlockArgument(t *testing.T) {
	// Two predecessors define v2 to distinct values; the merge block reads it
	units := []uint16{
		0x1032, 0x0004, // 0x00: if-eq v0, v1, +4 -> true 0x08, false 0x04
		0x0201,         // 0x04: move v2, v0
		0x0328,         // 0x06: goto +3 -> 0x0C
		0x1201,         // 0x08: move v2, v1
		0x0128,         // 0x0A: goto +1 -> 0x0C
		0x0390, 0x0202, // 0x0C: add-int v3, v2, v2
		0x030f, // 0x10: return v3
	}
	md := analyzeUnits(t, units)

	g, err := NewLifter(nil).LiftMethod(md)
	if err != nil {
		t.Fatalf("lift failed: %v", err)
	}

	merge := g.BlockAt(0x0C)
	if merge == nil {
		t.Fatal("no block at 0x0C")
	}
	if len(merge.Args) != 1 {
		t.Fatalf("merge block has %d arguments, want 1", len(merge.Args))
	}
	arg := merge.Args[0]

	// The reader sees the block argument
	add := merge.Ops[0]
	if add.Kind != ir.OpAdd {
		t.Fatalf("first merge op is %s, want Add", add.Kind)
	}
	if add.Operands()[0] != arg || add.Operands()[1] != arg {
		t.Errorf("add does not read the block argument")
	}

	// Each predecessor supplies its own move result at the branch site
	supplied := make(map[*ir.Value]bool)
	for _, p := range merge.Preds() {
		params := g.EdgeArgs(p, merge)
		if len(params) != 1 {
			t.Fatalf("edge 0x%04X->0x0C carries %d values, want 1", p.Index, len(params))
		}
		if params[0].Kind != ir.OpMove {
			t.Errorf("edge 0x%04X->0x0C supplies %s, want Move", p.Index, params[0].Kind)
		}
		supplied[params[0]] = true
	}
	if len(supplied) != 2 {
		t.Errorf("predecessors supplied %d distinct values, want 2", len(supplied))
	}

	checkNoTrivialArgs(t, g)
}

func TestTrivialArgumentElimination(t *testing.T) {
	// Both paths reach the merge with the same definition of v2: the
	// argument must be removed and its uses replaced by the single value
	units := []uint16{
		0x0201,         // 0x00: move v2, v0
		0x1032, 0x0004, // 0x02: if-eq v0, v1, +4 -> true 0x0A, false 0x06
		0x0000,         // 0x06: nop
		0x0228,         // 0x08: goto +2 -> 0x0C
		0x0000,         // 0x0A: nop
		0x0390, 0x0202, // 0x0C: add-int v3, v2, v2
		0x030f, // 0x10: return v3
	}
	md := analyzeUnits(t, units)

	g, err := NewLifter(nil).LiftMethod(md)
	if err != nil {
		t.Fatalf("lift failed: %v", err)
	}

	merge := g.BlockAt(0x0C)
	if merge == nil {
		t.Fatal("no block at 0x0C")
	}
	if len(merge.Args) != 0 {
		t.Fatalf("merge block kept %d arguments, want 0 after elimination", len(merge.Args))
	}

	// All uses were replaced by the single incoming definition (the move)
	move := g.Entry.Ops[0]
	if move.Kind != ir.OpMove {
		t.Fatalf("entry first op is %s, want Move", move.Kind)
	}
	add := merge.Ops[0]
	if add.Operands()[0] != move || add.Operands()[1] != move {
		t.Errorf("add reads %s/%s, want the move on both operands",
			add.Operands()[0], add.Operands()[1])
	}

	checkNoTrivialArgs(t, g)
}

func TestLoopHeaderPendingArguments(t *testing.T) {
	// A back edge forces the loop header to stay incomplete during its own
	// lift; its pending arguments resolve when the block seals
	units := []uint16{
		0x0101,         // 0x00: move v1, v0
		0x0190, 0x0101, // 0x02: add-int v1, v1, v1
		0x0132, 0xfffe, // 0x06: if-eq v1, v0, -2 -> true 0x02, false 0x0A
		0x010f, // 0x0A: return v1
	}
	md := analyzeUnits(t, units)

	g, err := NewLifter(nil).LiftMethod(md)
	if err != nil {
		t.Fatalf("lift failed: %v", err)
	}

	header := g.BlockAt(0x02)
	if header == nil {
		t.Fatal("no block at 0x02")
	}

	// v1 genuinely merges (move result vs add result): one argument remains.
	// The pending argument for v0 was trivial (entry parameter on both
	// edges) and must have been eliminated.
	if len(header.Args) != 1 {
		t.Fatalf("loop header has %d arguments, want 1", len(header.Args))
	}

	cmp := header.Ops[1]
	if cmp.Kind != ir.OpCmpEq {
		t.Fatalf("second header op is %s, want CmpEq", cmp.Kind)
	}
	v0 := cmp.Operands()[1]
	if v0.Kind != ir.OpBlockArg || v0.Block != g.Entry {
		t.Errorf("v0 resolves to %s, want the entry parameter argument", v0)
	}

	// The add feeds the header argument along the back edge
	add := header.Ops[0]
	if add.Kind != ir.OpAdd {
		t.Fatalf("first header op is %s, want Add", add.Kind)
	}
	back := g.EdgeArgs(header, header)
	if len(back) != 1 || back[0] != add {
		t.Errorf("back edge supplies %v, want the add result", back)
	}

	checkNoTrivialArgs(t, g)
}

func TestFallthroughBranchesInserted(t *testing.T) {
	units := []uint16{
		0x0201,         // 0x00: move v2, v0
		0x1032, 0x0004, // 0x02: if-eq v0, v1, +4 -> true 0x0A, false 0x06
		0x0000,         // 0x06: nop
		0x0228,         // 0x08: goto +2 -> 0x0C
		0x0000,         // 0x0A: nop (falls through to 0x0C)
		0x0390, 0x0202, // 0x0C: add-int v3, v2, v2
		0x030f, // 0x10: return v3
	}
	md := analyzeUnits(t, units)

	g, err := NewLifter(nil).LiftMethod(md)
	if err != nil {
		t.Fatalf("lift failed: %v", err)
	}

	// Every non-exit block ends in a terminator after fallthrough analysis
	for _, b := range g.Blocks() {
		if len(b.Succs()) > 0 && !b.Terminated() {
			t.Errorf("block 0x%04X has successors but no terminator", b.Index)
		}
	}

	fallthrough0A := g.BlockAt(0x0A)
	if fallthrough0A == nil {
		t.Fatal("no block at 0x0A")
	}
	br := lastOp(t, fallthrough0A)
	if br.Kind != ir.OpBranch || br.TrueTarget.Index != 0x0C {
		t.Errorf("fallthrough block ends with %s, want Branch to 0x0C", br)
	}
}

func TestGotoLift(t *testing.T) {
	units := []uint16{
		0x0228, // 0x00: goto +2 -> 0x04
		0x0000, // 0x02: nop (dead)
		0x000e, // 0x04: return-void
	}
	md := analyzeUnits(t, units)

	g, err := NewLifter(nil).LiftMethod(md)
	if err != nil {
		t.Fatalf("lift failed: %v", err)
	}

	br := lastOp(t, g.Entry)
	if br.Kind != ir.OpBranch {
		t.Fatalf("entry ends with %s, want Branch", br.Kind)
	}
	if br.TrueTarget.Index != 0x04 {
		t.Errorf("branch target = 0x%04X, want 0x04", br.TrueTarget.Index)
	}

	ret := lastOp(t, g.BlockAt(0x04))
	if ret.Kind != ir.OpReturn || len(ret.Operands()) != 0 {
		t.Errorf("return-void lifted as %s with %d operands", ret.Kind, len(ret.Operands()))
	}
}

func TestArithmeticResultTypes(t *testing.T) {
	// The opcode suffix fixes the result type
	units := []uint16{
		0x0290, 0x0100, // 0x00: add-int v2, v0, v1
		0x049b, 0x0200, // 0x04: add-long v4, v0, v2  (register pairs are ids here)
		0x02a6, 0x0100, // 0x08: add-float v2, v0, v1
		0x000e, // 0x0C: return-void
	}
	md := analyzeUnits(t, units)

	g, err := NewLifter(nil).LiftMethod(md)
	if err != nil {
		t.Fatalf("lift failed: %v", err)
	}

	// All arithmetic lands in the entry block
	wantTypes := []ir.DVMType{ir.TypeInt, ir.TypeLong, ir.TypeFloat}
	n := 0
	for _, op := range g.Entry.Ops {
		if op.Kind == ir.OpAdd {
			if n >= len(wantTypes) {
				t.Fatalf("more Add ops than expected")
			}
			if op.Type != wantTypes[n] {
				t.Errorf("Add %d type = %s, want %s", n, op.Type, wantTypes[n])
			}
			n++
		}
	}
	if n != len(wantTypes) {
		t.Errorf("lifted %d Add ops, want %d", n, len(wantTypes))
	}
}

func TestMoveTakesSourceType(t *testing.T) {
	units := []uint16{
		0x0290, 0x0100, // 0x00: add-int v2, v0, v1
		0x2301,         // 0x04: move v3, v2
		0x000e, // 0x06: return-void
	}
	md := analyzeUnits(t, units)

	g, err := NewLifter(nil).LiftMethod(md)
	if err != nil {
		t.Fatalf("lift failed: %v", err)
	}

	var move *ir.Value
	for _, op := range g.Entry.Ops {
		if op.Kind == ir.OpMove {
			move = op
		}
	}
	if move == nil {
		t.Fatal("no Move op lifted")
	}
	if move.Type != ir.TypeInt {
		t.Errorf("Move type = %s, want int (the source type)", move.Type)
	}
}

func TestUnsupportedOpcode(t *testing.T) {
	// const/4 has no lifting rule
	units := []uint16{
		0x0012, // 0x00: const/4 v0, #0
		0x000e, // 0x02: return-void
	}
	md := analyzeUnits(t, units)

	_, err := NewLifter(nil).LiftMethod(md)
	if err == nil {
		t.Fatal("expected lift error for const/4")
	}
	var le *LiftError
	if !errors.As(err, &le) {
		t.Fatalf("expected LiftError, got %T", err)
	}
	if le.Kind != ErrUnsupportedOpcode {
		t.Errorf("error kind = %v, want ErrUnsupportedOpcode", le.Kind)
	}
}

// After lifting, every operand of every operation is either a block argument
// of some block or an operation (def) in the graph; uses never dangle
func TestOperandIntegrity(t *testing.T) {
	units := []uint16{
		0x1032, 0x0004,
		0x0201,
		0x0328,
		0x1201,
		0x0128,
		0x0390, 0x0202,
		0x030f,
	}
	md := analyzeUnits(t, units)

	g, err := NewLifter(nil).LiftMethod(md)
	if err != nil {
		t.Fatalf("lift failed: %v", err)
	}

	known := make(map[*ir.Value]bool)
	for _, b := range g.Blocks() {
		for _, a := range b.Args {
			known[a] = true
		}
		for _, op := range b.Ops {
			known[op] = true
		}
	}
	for _, b := range g.Blocks() {
		for _, op := range b.Ops {
			for _, o := range op.Operands() {
				if !known[o] {
					t.Errorf("operand %%%d of %s is not in the graph", o.ID(), op)
				}
			}
		}
	}
}
