package ir

import (
	"sort"
	"strings"
)

// Edge identifies a branch site: the ordered pair (predecessor, successor)
type Edge struct {
	From *Block
	To   *Block
}

// Graph is the IR of one method. Blocks are addressed by their start byte
// address. The graph also owns the branch-site mapping: which values a
// predecessor passes for the block arguments of a successor.
type Graph struct {
	Entry  *Block
	blocks []*Block

	byIndex   map[uint32]*Block
	jmpParams map[Edge][]*Value
	nextID    int
}

// NewGraph creates an empty IR graph
func NewGraph() *Graph {
	return &Graph{
		byIndex:   make(map[uint32]*Block),
		jmpParams: make(map[Edge][]*Value),
	}
}

// Blocks returns the graph's blocks in ascending index order
func (g *Graph) Blocks() []*Block {
	return g.blocks
}

// NewBlock creates a block at the given start address and registers it
func (g *Graph) NewBlock(index uint32) *Block {
	b := &Block{Index: index}
	g.blocks = append(g.blocks, b)
	g.byIndex[index] = b
	sort.Slice(g.blocks, func(i, j int) bool {
		return g.blocks[i].Index < g.blocks[j].Index
	})
	if index == 0 {
		g.Entry = b
	}
	return b
}

// BlockAt returns the block starting at the given byte address, or nil
func (g *Graph) BlockAt(index uint32) *Block {
	return g.byIndex[index]
}

// AddEdge records a control-flow edge and wires predecessor/successor lists
func (g *Graph) AddEdge(from, to *Block) {
	for _, s := range from.succs {
		if s == to {
			return
		}
	}
	from.succs = append(from.succs, to)
	to.preds = append(to.preds, from)
}

// NewOp creates an operation, appends it to the block and wires use edges
func (g *Graph) NewOp(b *Block, kind OpKind, typ DVMType, addr uint32, operands ...*Value) *Value {
	v := &Value{
		id:       g.nextID,
		Kind:     kind,
		Type:     typ,
		Block:    b,
		Addr:     addr,
		operands: operands,
	}
	g.nextID++
	for _, op := range operands {
		op.addUser(v)
	}
	b.Ops = append(b.Ops, v)
	return v
}

// NewBlockArg creates a fresh block argument at the end of b's argument list
func (g *Graph) NewBlockArg(b *Block, typ DVMType) *Value {
	v := &Value{
		id:       g.nextID,
		Kind:     OpBlockArg,
		Type:     typ,
		Block:    b,
		ArgIndex: len(b.Args),
	}
	g.nextID++
	b.Args = append(b.Args, v)
	return v
}

// RemoveArg deletes a block argument, shifting later arguments down and
// dropping the corresponding entry from every incoming branch site
func (g *Graph) RemoveArg(arg *Value) {
	b := arg.Block
	idx := arg.ArgIndex

	b.Args = append(b.Args[:idx], b.Args[idx+1:]...)
	for i := idx; i < len(b.Args); i++ {
		b.Args[i].ArgIndex = i
	}

	for _, p := range b.preds {
		e := Edge{From: p, To: b}
		params := g.jmpParams[e]
		if idx < len(params) {
			g.jmpParams[e] = append(params[:idx], params[idx+1:]...)
		}
	}
}

// EdgeArgs returns the ordered values the predecessor passes to the successor
// at its branch site, one per successor block argument
func (g *Graph) EdgeArgs(from, to *Block) []*Value {
	return g.jmpParams[Edge{From: from, To: to}]
}

// SetEdgeArg records the value from passes for the successor's argument at
// the given index, growing the branch-site list as needed
func (g *Graph) SetEdgeArg(from, to *Block, index int, v *Value) {
	e := Edge{From: from, To: to}
	params := g.jmpParams[e]
	for len(params) <= index {
		params = append(params, nil)
	}
	params[index] = v
	g.jmpParams[e] = params
}

// ReplaceAllUses rewrites every use of v, including branch-site entries, to
// repl. It returns the operation users so callers can re-examine block
// arguments that consumed v.
func (g *Graph) ReplaceAllUses(v, repl *Value) []*Value {
	users := v.ReplaceAllUsesWith(repl)
	for e, params := range g.jmpParams {
		for i, p := range params {
			if p == v {
				params[i] = repl
				// The successor argument at this position is also a user in
				// the SSA sense
				if i < len(e.To.Args) {
					users = append(users, e.To.Args[i])
				}
			}
		}
	}
	return users
}

// String renders the whole graph block by block
func (g *Graph) String() string {
	var sb strings.Builder
	for _, b := range g.blocks {
		sb.WriteString(b.String())
	}
	return sb.String()
}
