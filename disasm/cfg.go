package disasm

import (
	"fmt"
	"sort"
)

// BasicBlock is a contiguous instruction range with a single entry.
// Start and End are byte addresses; End is exclusive. Successors holds the
// start addresses of successor blocks, derived from branch semantics.
type BasicBlock struct {
	Start        uint32
	End          uint32
	Instructions []*Instruction
	Successors   []uint32
}

// Last returns the final instruction of the block
func (b *BasicBlock) Last() *Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	return b.Instructions[len(b.Instructions)-1]
}

// Blocks is the basic-block partition of one method, ordered by ascending
// start address
type Blocks struct {
	blocks  []*BasicBlock
	byStart map[uint32]*BasicBlock
}

// All returns the blocks in ascending start-address order
func (b *Blocks) All() []*BasicBlock {
	return b.blocks
}

// BlockAt returns the block starting at the given byte address, or nil
func (b *Blocks) BlockAt(addr uint32) *BasicBlock {
	return b.byStart[addr]
}

// Entry returns the block at address 0
func (b *Blocks) Entry() *BasicBlock {
	return b.byStart[0]
}

// successorAddrs computes the byte addresses control may reach after inst.
// Payloads are data and have no successors. Switch targets come from the
// payload the switch offset points at.
func successorAddrs(inst *Instruction, byAddr map[uint32]*Instruction) []uint32 {
	if inst.IsPayload() {
		return nil
	}

	a := inst.Address
	fallthru := a + inst.ByteLength()

	switch inst.Opcode {
	case OpGoto, OpGoto16, OpGoto32:
		return []uint32{a + uint32(inst.Offset)*2}

	case OpReturnVoid, OpReturn, OpReturnWide, OpReturnObject, OpThrow:
		return nil

	case OpPackedSwitch, OpSparseSwitch:
		succs := []uint32{fallthru}
		if payload := byAddr[a+uint32(inst.Offset)*2]; payload != nil {
			for _, t := range payload.SwitchTargets {
				succs = append(succs, a+uint32(t)*2)
			}
		}
		return succs
	}

	if inst.Opcode >= OpIfEq && inst.Opcode <= OpIfLez {
		return []uint32{a + uint32(inst.Offset)*2, fallthru}
	}

	return []uint32{fallthru}
}

// partition groups an address-ordered instruction list into basic blocks given
// the leader set. byAddr must cover switch payloads so successor targets
// resolve. Non-contiguous instructions (recursive traversal holes) always
// start a new block.
func partition(instrs []*Instruction, leaders map[uint32]bool, byAddr map[uint32]*Instruction) (*Blocks, error) {
	blocks := &Blocks{byStart: make(map[uint32]*BasicBlock)}
	var cur *BasicBlock
	var prevEnd uint32

	flush := func() {
		if cur != nil {
			last := cur.Last()
			cur.End = last.Address + last.ByteLength()
			cur.Successors = successorAddrs(last, byAddr)
			blocks.blocks = append(blocks.blocks, cur)
			blocks.byStart[cur.Start] = cur
			cur = nil
		}
	}

	for _, inst := range instrs {
		if cur != nil && (leaders[inst.Address] || inst.Address != prevEnd) {
			flush()
		}
		if cur == nil {
			cur = &BasicBlock{Start: inst.Address}
		}
		cur.Instructions = append(cur.Instructions, inst)
		prevEnd = inst.Address + inst.ByteLength()

		// A terminator or branch always ends its block
		if inst.IsTerminator() || inst.IsBranch() || inst.IsPayload() {
			flush()
		}
	}
	flush()

	// Every branch target inside the method must be a block entry
	for _, b := range blocks.blocks {
		for _, s := range b.Successors {
			if _, ok := blocks.byStart[s]; !ok {
				if _, decoded := byAddr[s]; decoded {
					return nil, fmt.Errorf("successor 0x%04X of block 0x%04X is not a block entry", s, b.Start)
				}
			}
		}
	}

	return blocks, nil
}

// buildLinear partitions a fully decoded instruction list: blocks split after
// every terminator/branch and at every recognized branch target
func buildLinear(instrs []*Instruction) (*Blocks, error) {
	byAddr := make(map[uint32]*Instruction, len(instrs))
	for _, inst := range instrs {
		byAddr[inst.Address] = inst
	}

	leaders := leaderSet(instrs, byAddr)
	return partition(instrs, leaders, byAddr)
}

// leaderSet marks the entry and every explicit branch target as a block
// leader. Instructions after terminators start blocks through the partition
// walk itself.
func leaderSet(instrs []*Instruction, byAddr map[uint32]*Instruction) map[uint32]bool {
	leaders := map[uint32]bool{0: true}
	for _, inst := range instrs {
		if inst.IsBranch() || inst.IsTerminator() {
			for _, s := range successorAddrs(inst, byAddr) {
				leaders[s] = true
			}
		}
	}
	return leaders
}

// buildRecursive decodes only instructions reachable from the entry address,
// maintaining a work-list of successor addresses, then partitions the
// reachable set. Switch payloads are decoded for their targets but are not
// block members.
func buildRecursive(code []uint16) (*Blocks, error) {
	if len(code) == 0 {
		return &Blocks{byStart: make(map[uint32]*BasicBlock)}, nil
	}

	visited := make(map[uint32]*Instruction)
	payloads := make(map[uint32]*Instruction)
	worklist := []uint32{0}

	for len(worklist) > 0 {
		addr := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if _, ok := visited[addr]; ok {
			continue
		}
		if addr%2 != 0 || addr/2 >= uint32(len(code)) {
			return nil, NewDecodeError(addr, ErrCodeStreamDesync,
				fmt.Sprintf("branch target 0x%04X outside method code", addr))
		}

		inst, err := decodeAt(code, addr/2)
		if err != nil {
			return nil, err
		}
		visited[addr] = inst
		payloads[addr] = inst

		// A switch needs its payload decoded before its successors resolve
		if inst.Opcode == OpPackedSwitch || inst.Opcode == OpSparseSwitch {
			payloadAddr := addr + uint32(inst.Offset)*2
			if _, ok := payloads[payloadAddr]; !ok && payloadAddr%2 == 0 && payloadAddr/2 < uint32(len(code)) {
				p, err := decodeAt(code, payloadAddr/2)
				if err != nil {
					return nil, err
				}
				payloads[payloadAddr] = p
			}
		}

		worklist = append(worklist, successorAddrs(inst, payloads)...)
	}

	instrs := make([]*Instruction, 0, len(visited))
	for _, inst := range visited {
		instrs = append(instrs, inst)
	}
	sort.Slice(instrs, func(i, j int) bool {
		return instrs[i].Address < instrs[j].Address
	})

	leaders := leaderSet(instrs, payloads)
	return partition(instrs, leaders, payloads)
}
