package disasm

import "testing"

func blockStarts(b *Blocks) []uint32 {
	var starts []uint32
	for _, blk := range b.All() {
		starts = append(starts, blk.Start)
	}
	return starts
}

func TestLinearVsRecursiveOnDeadCode(t *testing.T) {
	// return-void followed by further valid instructions: linear sweep
	// decodes everything, recursive traversal stops at the return
	units := []uint16{
		0x000e, // 0x00: return-void
		0x0012, // 0x02: const/4 v0, #0
		0x000e, // 0x04: return-void
	}

	instrs := decode(t, units)
	linear, err := buildLinear(instrs)
	if err != nil {
		t.Fatalf("linear sweep failed: %v", err)
	}

	covered := 0
	for _, b := range linear.All() {
		covered += len(b.Instructions)
	}
	if covered != 3 {
		t.Errorf("Linear sweep covered %d instructions, want all 3", covered)
	}

	recursive, err := buildRecursive(units)
	if err != nil {
		t.Fatalf("recursive traversal failed: %v", err)
	}
	if len(recursive.All()) != 1 {
		t.Fatalf("Recursive traversal built %d blocks, want 1", len(recursive.All()))
	}
	entry := recursive.Entry()
	if entry == nil || len(entry.Instructions) != 1 {
		t.Errorf("Recursive entry block should hold only the return")
	}
	if entry.Last().Opcode != OpReturnVoid {
		t.Errorf("Entry block ends with %s, want return-void", entry.Last().Opcode.Name())
	}
}

func TestConditionalBranchBlocks(t *testing.T) {
	units := []uint16{
		0x1032, 0x0003, // 0x00: if-eq v0, v1, +3 -> true 0x06, false 0x04
		0x0012, // 0x04: const/4 v0, #0
		0x000e, // 0x06: return-void
	}

	instrs := decode(t, units)
	blocks, err := buildLinear(instrs)
	if err != nil {
		t.Fatalf("buildLinear failed: %v", err)
	}

	starts := blockStarts(blocks)
	want := []uint32{0x00, 0x04, 0x06}
	if len(starts) != len(want) {
		t.Fatalf("Got blocks at %v, want %v", starts, want)
	}
	for i := range want {
		if starts[i] != want[i] {
			t.Fatalf("Got blocks at %v, want %v", starts, want)
		}
	}

	// The if block branches to 0x06 (taken) and 0x04 (fallthrough)
	ifBlock := blocks.BlockAt(0)
	if len(ifBlock.Successors) != 2 {
		t.Fatalf("if block has %d successors, want 2", len(ifBlock.Successors))
	}
	if ifBlock.Successors[0] != 0x06 || ifBlock.Successors[1] != 0x04 {
		t.Errorf("if block successors = %v, want [0x06 0x04]", ifBlock.Successors)
	}

	// Every successor address is the start of exactly one block
	for _, b := range blocks.All() {
		for _, s := range b.Successors {
			if blocks.BlockAt(s) == nil {
				t.Errorf("successor 0x%04X of block 0x%04X is not a block entry", s, b.Start)
			}
		}
	}
}

func TestBlockBoundariesAlignWithInstructions(t *testing.T) {
	units := []uint16{
		0x0012,         // 0x00: const/4 v0, #0
		0x1032, 0x0002, // 0x02: if-eq v0, v1, +2 -> true 0x06, false 0x06
		0x000e, // 0x06: return-void
	}

	instrs := decode(t, units)
	blocks, err := buildLinear(instrs)
	if err != nil {
		t.Fatalf("buildLinear failed: %v", err)
	}

	addrs := make(map[uint32]bool)
	for _, inst := range instrs {
		addrs[inst.Address] = true
	}
	for _, b := range blocks.All() {
		if !addrs[b.Start] {
			t.Errorf("block start 0x%04X is not an instruction start", b.Start)
		}
		// No instruction spans a block boundary
		for _, inst := range b.Instructions {
			end := inst.Address + inst.ByteLength()
			if inst.Address < b.Start || end > b.End {
				t.Errorf("instruction at 0x%04X spans block [0x%04X, 0x%04X)",
					inst.Address, b.Start, b.End)
			}
		}
	}
}

func TestRecursiveFollowsBranches(t *testing.T) {
	units := []uint16{
		0x0328, // 0x00: goto +3 -> 0x06
		0x0012, // 0x02: const/4 v0, #0 (dead)
		0x000e, // 0x04: return-void (dead)
		0x000e, // 0x06: return-void
	}

	blocks, err := buildRecursive(units)
	if err != nil {
		t.Fatalf("buildRecursive failed: %v", err)
	}

	starts := blockStarts(blocks)
	if len(starts) != 2 || starts[0] != 0x00 || starts[1] != 0x06 {
		t.Fatalf("Got blocks at %v, want [0x00 0x06]", starts)
	}
	if got := blocks.BlockAt(0).Successors; len(got) != 1 || got[0] != 0x06 {
		t.Errorf("goto block successors = %v, want [0x06]", got)
	}
}

func TestSwitchSuccessors(t *testing.T) {
	units := []uint16{
		0x002b, 0x0004, 0x0000, // 0x00: packed-switch v0, +4 (payload at 0x08)
		0x000e, // 0x06: return-void (fallthrough)
		0x0100, 0x0002, // 0x08: payload, 2 targets
		0x0000, 0x0000, // first key 0
		0x0003, 0x0000, // target +3 -> 0x06
		0x0003, 0x0000, // target +3 -> 0x06
	}

	instrs := decode(t, units)
	blocks, err := buildLinear(instrs)
	if err != nil {
		t.Fatalf("buildLinear failed: %v", err)
	}

	sw := blocks.BlockAt(0)
	if sw == nil {
		t.Fatal("no block at 0x00")
	}
	// Successors: fallthrough 0x06 plus the two case targets (both 0x06)
	for _, s := range sw.Successors {
		if s != 0x06 {
			t.Errorf("unexpected switch successor 0x%04X", s)
		}
	}
	if len(sw.Successors) != 3 {
		t.Errorf("switch has %d successors, want 3", len(sw.Successors))
	}
}
