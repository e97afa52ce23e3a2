package lifter

import (
	"fmt"

	"github.com/lookbusy1344/dex-analyzer/ir"
)

// blockState is the lifter's working state for one IR block: the current SSA
// value of each Dalvik register, the sealed bit, and the block arguments
// created while the block was still incomplete.
type blockState struct {
	defs       map[uint32]*ir.Value
	sealed     bool
	incomplete map[uint32]*ir.Value // register -> pending block argument
}

func newBlockState() *blockState {
	return &blockState{
		defs:       make(map[uint32]*ir.Value),
		incomplete: make(map[uint32]*ir.Value),
	}
}

// writeLocal sets the current definition of a register in a block
func (l *Lifter) writeLocal(b *ir.Block, reg uint32, v *ir.Value) {
	l.state[b].defs[reg] = v
}

// readLocal resolves a register to its SSA value in a block, inserting block
// arguments on demand when the definition lives in a predecessor
func (l *Lifter) readLocal(b *ir.Block, reg uint32) (*ir.Value, error) {
	if v, ok := l.state[b].defs[reg]; ok {
		return v, nil
	}
	return l.readLocalRecursive(b, reg)
}

// readLocalRecursive handles the cases where the block itself has no
// definition for the register
func (l *Lifter) readLocalRecursive(b *ir.Block, reg uint32) (*ir.Value, error) {
	st := l.state[b]

	if !st.sealed {
		// Predecessors are not all known yet: publish a pending argument and
		// fill its operands when the block seals
		arg := l.graph.NewBlockArg(b, ir.TypeUnknown)
		st.incomplete[reg] = arg
		st.defs[reg] = arg
		return arg, nil
	}

	preds := b.Preds()
	switch len(preds) {
	case 0:
		// Entry block: an undefined register holds an incoming method
		// parameter, modeled as an entry block argument
		arg := l.graph.NewBlockArg(b, ir.TypeUnknown)
		st.defs[reg] = arg
		return arg, nil

	case 1:
		v, err := l.readLocal(preds[0], reg)
		if err != nil {
			return nil, err
		}
		st.defs[reg] = v
		return v, nil

	default:
		arg := l.graph.NewBlockArg(b, ir.TypeUnknown)
		st.defs[reg] = arg
		return l.addArgOperands(b, reg, arg)
	}
}

// addArgOperands computes the value each predecessor supplies for a block
// argument, records it at the branch site, joins the types and finally
// applies trivial-argument elimination
func (l *Lifter) addArgOperands(b *ir.Block, reg uint32, arg *ir.Value) (*ir.Value, error) {
	for _, p := range b.Preds() {
		v, err := l.readLocal(p, reg)
		if err != nil {
			return nil, err
		}
		joined, ok := ir.Join(arg.Type, v.Type)
		if !ok {
			return nil, NewLiftError(arg.Addr, "", ErrTypeJoinConflict,
				fmt.Sprintf("block 0x%04X argument %d receives %s and %s for register v%d",
					b.Index, arg.ArgIndex, arg.Type, v.Type, reg))
		}
		arg.Type = joined
		l.graph.SetEdgeArg(p, b, arg.ArgIndex, v)
	}
	return l.tryRemoveTrivial(arg)
}

// tryRemoveTrivial removes a block argument whose incoming values are all the
// same value (or the argument itself), replacing its uses and re-examining
// any block argument that used it
func (l *Lifter) tryRemoveTrivial(arg *ir.Value) (*ir.Value, error) {
	b := arg.Block

	var same *ir.Value
	for _, p := range b.Preds() {
		params := l.graph.EdgeArgs(p, b)
		if arg.ArgIndex >= len(params) || params[arg.ArgIndex] == nil {
			// Some branch site has not recorded a value yet; not removable
			return arg, nil
		}
		v := params[arg.ArgIndex]
		if v == arg || v == same {
			continue
		}
		if same != nil {
			return arg, nil
		}
		same = v
	}
	if same == nil {
		// Only self-references: the argument is unreachable merge state; keep it
		return arg, nil
	}

	users := l.graph.ReplaceAllUses(arg, same)
	l.graph.RemoveArg(arg)

	// Register definitions that published the argument now publish the value
	for _, st := range l.state {
		for r, v := range st.defs {
			if v == arg {
				st.defs[r] = same
			}
		}
	}

	// Elimination can cascade into arguments that consumed the removed one
	for _, u := range users {
		if u.Kind == ir.OpBlockArg && u != arg {
			if _, err := l.tryRemoveTrivial(u); err != nil {
				return nil, err
			}
		}
	}

	return same, nil
}

// sealBlock marks a block's predecessor set as final and resolves every
// pending argument created while the block was incomplete
func (l *Lifter) sealBlock(b *ir.Block) error {
	st := l.state[b]
	if st.sealed {
		return nil
	}
	st.sealed = true
	for reg, arg := range st.incomplete {
		if _, err := l.addArgOperands(b, reg, arg); err != nil {
			return err
		}
	}
	st.incomplete = make(map[uint32]*ir.Value)
	return nil
}
