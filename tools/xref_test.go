package tools

import (
	"testing"

	"github.com/lookbusy1344/dex-analyzer/dex"
	"github.com/lookbusy1344/dex-analyzer/disasm"
)

// disassembled builds a MethodDisassembly around a synthetic code body
func disassembled(t *testing.T, name string, code []byte) *disasm.MethodDisassembly {
	t.Helper()

	d := disasm.NewDisassembler(nil)
	instrs, err := d.DisassembleBuffer(code)
	if err != nil {
		t.Fatalf("disassembly of %s failed: %v", name, err)
	}
	return &disasm.MethodDisassembly{
		Method: &dex.MethodID{
			Class: dex.ParseType("LTest;"),
			Proto: &dex.Proto{Shorty: "V", Return: dex.ParseType("V")},
			Name:  name,
		},
		Instructions: instrs,
	}
}

func TestBuildXRef(t *testing.T) {
	// alpha: const-string string@5, iget field@2, return-void
	alpha := disassembled(t, "alpha", []byte{
		0x1a, 0x00, 0x05, 0x00,
		0x52, 0x10, 0x02, 0x00,
		0x0e, 0x00,
	})
	// beta: invoke-virtual meth@7, iput field@2, return-void
	beta := disassembled(t, "beta", []byte{
		0x6e, 0x10, 0x07, 0x00, 0x00, 0x00,
		0x59, 0x10, 0x02, 0x00,
		0x0e, 0x00,
	})

	x := BuildXRef(nil, []*disasm.MethodDisassembly{alpha, beta})

	if refs := x.StringRefs(5); len(refs) != 1 || refs[0] != "LTest;->alpha()V" {
		t.Errorf("string@5 refs = %v", refs)
	}
	if refs := x.FieldRefs(2); len(refs) != 2 {
		t.Errorf("field@2 refs = %v, want both methods", refs)
	} else if refs[0] != "LTest;->alpha()V" || refs[1] != "LTest;->beta()V" {
		t.Errorf("field@2 refs not sorted: %v", refs)
	}
	if refs := x.MethodRefs(7); len(refs) != 1 || refs[0] != "LTest;->beta()V" {
		t.Errorf("method@7 refs = %v", refs)
	}
	if refs := x.StringRefs(99); len(refs) != 0 {
		t.Errorf("unexpected refs for unused string id: %v", refs)
	}
}

func TestXRefDeduplicates(t *testing.T) {
	// The same field twice in one method appears once in the index
	m := disassembled(t, "gamma", []byte{
		0x52, 0x10, 0x02, 0x00,
		0x52, 0x20, 0x02, 0x00,
		0x0e, 0x00,
	})

	x := BuildXRef(nil, []*disasm.MethodDisassembly{m})

	if refs := x.FieldRefs(2); len(refs) != 1 {
		t.Errorf("field@2 refs = %v, want a single entry", refs)
	}
}

func TestXRefSkipsFailedMethods(t *testing.T) {
	broken := &disasm.MethodDisassembly{
		Method: &dex.MethodID{
			Class: dex.ParseType("LTest;"),
			Proto: &dex.Proto{Shorty: "V", Return: dex.ParseType("V")},
			Name:  "broken",
		},
		Err: disasm.NewDecodeError(0, disasm.ErrUnknownOpcode, "test"),
	}

	x := BuildXRef(nil, []*disasm.MethodDisassembly{broken})
	if len(x.Strings)+len(x.Fields)+len(x.Methods) != 0 {
		t.Error("failed method contributed references")
	}
}
