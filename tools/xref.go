// Package tools provides analysis utilities layered on top of the decoded
// instruction streams, independent of the IR.
package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lookbusy1344/dex-analyzer/dex"
	"github.com/lookbusy1344/dex-analyzer/disasm"
)

// XRef is a cross-reference index over a DEX: for each string, field and
// method pool id, the methods whose code references it
type XRef struct {
	dex *dex.DEX

	// pool id -> referencing method names (sorted, unique)
	Strings map[uint32][]string
	Fields  map[uint32][]string
	Methods map[uint32][]string
}

// BuildXRef scans every disassembled method and records constant-pool
// references: const-string loads, instance and static field accesses, and
// invoke targets
func BuildXRef(d *dex.DEX, methods []*disasm.MethodDisassembly) *XRef {
	x := &XRef{
		dex:     d,
		Strings: make(map[uint32][]string),
		Fields:  make(map[uint32][]string),
		Methods: make(map[uint32][]string),
	}

	for _, md := range methods {
		if md.Err != nil {
			continue
		}
		name := md.Method.String()
		for _, inst := range md.Instructions {
			switch {
			case inst.Opcode == disasm.OpConstString,
				inst.Opcode == disasm.OpConstString+1: // const-string/jumbo
				x.Strings[inst.Index] = append(x.Strings[inst.Index], name)

			case inst.Opcode >= disasm.OpIget && inst.Opcode <= disasm.OpIputShort:
				x.Fields[inst.Index] = append(x.Fields[inst.Index], name)

			case inst.Opcode >= disasm.OpSget && inst.Opcode <= disasm.OpSputShort:
				x.Fields[inst.Index] = append(x.Fields[inst.Index], name)

			case inst.Opcode >= disasm.OpInvokeVirtual && inst.Opcode <= disasm.OpInvokeInterface,
				inst.Opcode >= disasm.OpInvokeRangeLo && inst.Opcode <= disasm.OpInvokeRangeHi:
				x.Methods[inst.Index] = append(x.Methods[inst.Index], name)
			}
		}
	}

	dedupe(x.Strings)
	dedupe(x.Fields)
	dedupe(x.Methods)
	return x
}

// dedupe sorts each reference list and removes duplicates
func dedupe(m map[uint32][]string) {
	for id, refs := range m {
		sort.Strings(refs)
		out := refs[:0]
		for i, r := range refs {
			if i == 0 || refs[i-1] != r {
				out = append(out, r)
			}
		}
		m[id] = out
	}
}

// StringRefs returns the methods referencing a string id
func (x *XRef) StringRefs(id uint32) []string {
	return x.Strings[id]
}

// FieldRefs returns the methods referencing a field id
func (x *XRef) FieldRefs(id uint32) []string {
	return x.Fields[id]
}

// MethodRefs returns the methods invoking a method id
func (x *XRef) MethodRefs(id uint32) []string {
	return x.Methods[id]
}

// String renders the index as a readable report
func (x *XRef) String() string {
	var sb strings.Builder

	section := func(title string, m map[uint32][]string, describe func(uint32) string) {
		fmt.Fprintf(&sb, "%s\n%s\n", title, strings.Repeat("=", len(title)))
		ids := make([]uint32, 0, len(m))
		for id := range m {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			fmt.Fprintf(&sb, "%s\n", describe(id))
			for _, ref := range m[id] {
				fmt.Fprintf(&sb, "    <- %s\n", ref)
			}
		}
		sb.WriteString("\n")
	}

	section("String references", x.Strings, func(id uint32) string {
		s, err := x.dex.Strings.GetStringByID(id)
		if err != nil {
			return fmt.Sprintf("string@%d (unresolved)", id)
		}
		return fmt.Sprintf("string@%d %q", id, s)
	})
	section("Field references", x.Fields, func(id uint32) string {
		f, err := x.dex.Fields.GetFieldByID(id)
		if err != nil {
			return fmt.Sprintf("field@%d (unresolved)", id)
		}
		return fmt.Sprintf("field@%d %s", id, f)
	})
	section("Method references", x.Methods, func(id uint32) string {
		m, err := x.dex.Methods.GetMethodByID(id)
		if err != nil {
			return fmt.Sprintf("method@%d (unresolved)", id)
		}
		return fmt.Sprintf("method@%d %s", id, m)
	})

	return sb.String()
}
