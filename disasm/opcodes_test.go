package disasm

import "testing"

func TestOpcodeTableFormats(t *testing.T) {
	// Every defined opcode has a format with a fixed nonzero length
	defined := 0
	for op := 0; op < 256; op++ {
		o := Opcode(op)
		if !o.Defined() {
			continue
		}
		defined++
		if o.InstructionFormat().Length() == 0 {
			t.Errorf("opcode %s (0x%02X) has zero-length format %s",
				o.Name(), op, o.InstructionFormat())
		}
	}
	// 0x3e-0x43, 0x73, 0x79-0x7a and 0xe3-0xf9 are unused
	if defined != 256-6-1-2-23 {
		t.Errorf("table defines %d opcodes, want %d", defined, 256-6-1-2-23)
	}
}

func TestFormatLengths(t *testing.T) {
	tests := []struct {
		format Format
		want   uint32
	}{
		{Format10x, 1},
		{Format12x, 1},
		{Format11x, 1},
		{Format10t, 1},
		{Format20t, 2},
		{Format22t, 2},
		{Format22c, 2},
		{Format23x, 2},
		{Format30t, 3},
		{Format35c, 3},
		{Format45cc, 4},
		{Format51l, 5},
	}
	for _, tt := range tests {
		if got := tt.format.Length(); got != tt.want {
			t.Errorf("Length(%s) = %d, want %d", tt.format, got, tt.want)
		}
	}
}

func TestOpcodeNames(t *testing.T) {
	tests := []struct {
		op   Opcode
		name string
	}{
		{OpNop, "nop"},
		{OpMove, "move"},
		{OpReturnVoid, "return-void"},
		{OpGoto, "goto"},
		{OpIfEq, "if-eq"},
		{OpIget, "iget"},
		{OpAddInt, "add-int"},
		{OpUshrLong2Addr, "ushr-long/2addr"},
		{0xff, "const-method-type"},
	}
	for _, tt := range tests {
		if got := tt.op.Name(); got != tt.name {
			t.Errorf("Name(0x%02X) = %q, want %q", uint8(tt.op), got, tt.name)
		}
	}

	for _, op := range []Opcode{0x3e, 0x43, 0x73, 0x79, 0xe3, 0xf9} {
		if op.Defined() {
			t.Errorf("opcode 0x%02X should be undefined", uint8(op))
		}
	}
}
