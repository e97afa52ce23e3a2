package disasm

// Format identifies the encoding shape of a Dalvik instruction. The tag fixes
// how many code units the instruction occupies and how its operand bits are
// partitioned.
type Format int

const (
	Format10x Format = iota // op
	Format12x               // op vA, vB (two 4-bit registers)
	Format11n               // op vA, #+B (4-bit register, 4-bit literal)
	Format11x               // op vAA (one 8-bit register)
	Format10t               // op +AA (signed 8-bit branch offset)
	Format20t               // op +AAAA (signed 16-bit branch offset)
	Format22x               // op vAA, vBBBB
	Format21t               // op vAA, +BBBB
	Format21s               // op vAA, #+BBBB
	Format21h               // op vAA, #+BBBB0000(00000000)
	Format21c               // op vAA, pool@BBBB
	Format23x               // op vAA, vBB, vCC (three 8-bit registers)
	Format22b               // op vAA, vBB, #+CC
	Format22t               // op vA, vB, +CCCC
	Format22s               // op vA, vB, #+CCCC
	Format22c               // op vA, vB, pool@CCCC
	Format30t               // op +AAAAAAAA (signed 32-bit branch offset)
	Format32x               // op vAAAA, vBBBB
	Format31i               // op vAA, #+BBBBBBBB
	Format31t               // op vAA, +BBBBBBBB
	Format31c               // op vAA, string@BBBBBBBB
	Format35c               // op {vC..vG}, pool@BBBB
	Format3rc               // op {vCCCC..vNNNN}, pool@BBBB
	Format45cc              // op {vC..vG}, meth@BBBB, proto@HHHH
	Format4rcc              // op {vCCCC..vNNNN}, meth@BBBB, proto@HHHH
	Format51l               // op vAA, #+BBBBBBBBBBBBBBBB
	FormatPackedSwitch      // packed-switch-payload pseudo-instruction
	FormatSparseSwitch      // sparse-switch-payload pseudo-instruction
	FormatFillArrayData     // fill-array-data-payload pseudo-instruction
)

// Length returns the fixed size of the format in 16-bit code units.
// Payload pseudo-formats are variable length and return 0.
func (f Format) Length() uint32 {
	switch f {
	case Format10x, Format12x, Format11n, Format11x, Format10t:
		return 1
	case Format20t, Format22x, Format21t, Format21s, Format21h, Format21c,
		Format23x, Format22b, Format22t, Format22s, Format22c:
		return 2
	case Format30t, Format32x, Format31i, Format31t, Format31c, Format35c, Format3rc:
		return 3
	case Format45cc, Format4rcc:
		return 4
	case Format51l:
		return 5
	default:
		return 0
	}
}

func (f Format) String() string {
	switch f {
	case Format10x:
		return "10x"
	case Format12x:
		return "12x"
	case Format11n:
		return "11n"
	case Format11x:
		return "11x"
	case Format10t:
		return "10t"
	case Format20t:
		return "20t"
	case Format22x:
		return "22x"
	case Format21t:
		return "21t"
	case Format21s:
		return "21s"
	case Format21h:
		return "21h"
	case Format21c:
		return "21c"
	case Format23x:
		return "23x"
	case Format22b:
		return "22b"
	case Format22t:
		return "22t"
	case Format22s:
		return "22s"
	case Format22c:
		return "22c"
	case Format30t:
		return "30t"
	case Format32x:
		return "32x"
	case Format31i:
		return "31i"
	case Format31t:
		return "31t"
	case Format31c:
		return "31c"
	case Format35c:
		return "35c"
	case Format3rc:
		return "3rc"
	case Format45cc:
		return "45cc"
	case Format4rcc:
		return "4rcc"
	case Format51l:
		return "51l"
	case FormatPackedSwitch:
		return "packed-switch-payload"
	case FormatSparseSwitch:
		return "sparse-switch-payload"
	case FormatFillArrayData:
		return "fill-array-data-payload"
	default:
		return "unknown"
	}
}

// Opcode is a Dalvik opcode byte
type Opcode uint8

// Opcodes referenced elsewhere in the analyzer. The full decode table below
// covers every defined opcode; these names exist for dispatch and tests.
const (
	OpNop             Opcode = 0x00
	OpMove            Opcode = 0x01
	OpMoveFrom16      Opcode = 0x02
	OpMove16          Opcode = 0x03
	OpMoveWide        Opcode = 0x04
	OpMoveObject      Opcode = 0x07
	OpMoveResult      Opcode = 0x0a
	OpReturnVoid      Opcode = 0x0e
	OpReturn          Opcode = 0x0f
	OpReturnWide      Opcode = 0x10
	OpReturnObject    Opcode = 0x11
	OpConst4          Opcode = 0x12
	OpConst16         Opcode = 0x13
	OpConst           Opcode = 0x14
	OpConstWide       Opcode = 0x18
	OpConstWideHigh16 Opcode = 0x19
	OpConstString     Opcode = 0x1a
	OpConstClass      Opcode = 0x1c
	OpNewInstance     Opcode = 0x22
	OpThrow           Opcode = 0x27
	OpGoto            Opcode = 0x28
	OpGoto16          Opcode = 0x29
	OpGoto32          Opcode = 0x2a
	OpPackedSwitch    Opcode = 0x2b
	OpSparseSwitch    Opcode = 0x2c

	OpIfEq Opcode = 0x32
	OpIfNe Opcode = 0x33
	OpIfLt Opcode = 0x34
	OpIfGe Opcode = 0x35
	OpIfGt Opcode = 0x36
	OpIfLe Opcode = 0x37

	OpIfEqz Opcode = 0x38
	OpIfLez Opcode = 0x3d

	OpIget        Opcode = 0x52
	OpIgetWide    Opcode = 0x53
	OpIgetObject  Opcode = 0x54
	OpIgetBoolean Opcode = 0x55
	OpIgetByte    Opcode = 0x56
	OpIgetChar    Opcode = 0x57
	OpIgetShort   Opcode = 0x58
	OpIput        Opcode = 0x59
	OpIputWide    Opcode = 0x5a
	OpIputObject  Opcode = 0x5b
	OpIputBoolean Opcode = 0x5c
	OpIputByte    Opcode = 0x5d
	OpIputChar    Opcode = 0x5e
	OpIputShort   Opcode = 0x5f
	OpSget        Opcode = 0x60
	OpSputShort   Opcode = 0x6d

	OpInvokeVirtual   Opcode = 0x6e
	OpInvokeInterface Opcode = 0x72
	OpInvokeRangeLo   Opcode = 0x74
	OpInvokeRangeHi   Opcode = 0x78

	OpAddInt   Opcode = 0x90
	OpSubInt   Opcode = 0x91
	OpMulInt   Opcode = 0x92
	OpDivInt   Opcode = 0x93
	OpRemInt   Opcode = 0x94
	OpAndInt   Opcode = 0x95
	OpOrInt    Opcode = 0x96
	OpXorInt   Opcode = 0x97
	OpShlInt   Opcode = 0x98
	OpShrInt   Opcode = 0x99
	OpUshrInt  Opcode = 0x9a
	OpAddLong  Opcode = 0x9b
	OpSubLong  Opcode = 0x9c
	OpMulLong  Opcode = 0x9d
	OpDivLong  Opcode = 0x9e
	OpRemLong  Opcode = 0x9f
	OpAndLong  Opcode = 0xa0
	OpOrLong   Opcode = 0xa1
	OpXorLong  Opcode = 0xa2
	OpShlLong  Opcode = 0xa3
	OpShrLong  Opcode = 0xa4
	OpUshrLong Opcode = 0xa5

	OpAddFloat  Opcode = 0xa6
	OpSubFloat  Opcode = 0xa7
	OpMulFloat  Opcode = 0xa8
	OpDivFloat  Opcode = 0xa9
	OpRemFloat  Opcode = 0xaa
	OpAddDouble Opcode = 0xab
	OpSubDouble Opcode = 0xac
	OpMulDouble Opcode = 0xad
	OpDivDouble Opcode = 0xae
	OpRemDouble Opcode = 0xaf

	OpAddInt2Addr   Opcode = 0xb0
	OpSubInt2Addr   Opcode = 0xb1
	OpMulInt2Addr   Opcode = 0xb2
	OpDivInt2Addr   Opcode = 0xb3
	OpRemInt2Addr   Opcode = 0xb4
	OpAndInt2Addr   Opcode = 0xb5
	OpOrInt2Addr    Opcode = 0xb6
	OpXorInt2Addr   Opcode = 0xb7
	OpShlInt2Addr   Opcode = 0xb8
	OpShrInt2Addr   Opcode = 0xb9
	OpUshrInt2Addr  Opcode = 0xba
	OpAddLong2Addr  Opcode = 0xbb
	OpSubLong2Addr  Opcode = 0xbc
	OpMulLong2Addr  Opcode = 0xbd
	OpDivLong2Addr  Opcode = 0xbe
	OpRemLong2Addr  Opcode = 0xbf
	OpAndLong2Addr  Opcode = 0xc0
	OpOrLong2Addr   Opcode = 0xc1
	OpXorLong2Addr  Opcode = 0xc2
	OpShlLong2Addr  Opcode = 0xc3
	OpShrLong2Addr  Opcode = 0xc4
	OpUshrLong2Addr Opcode = 0xc5

	OpAddFloat2Addr  Opcode = 0xc6
	OpSubFloat2Addr  Opcode = 0xc7
	OpMulFloat2Addr  Opcode = 0xc8
	OpDivFloat2Addr  Opcode = 0xc9
	OpRemFloat2Addr  Opcode = 0xca
	OpAddDouble2Addr Opcode = 0xcb
	OpSubDouble2Addr Opcode = 0xcc
	OpMulDouble2Addr Opcode = 0xcd
	OpDivDouble2Addr Opcode = 0xce
	OpRemDouble2Addr Opcode = 0xcf
)

// Pseudo-instruction payload idents: the full first code unit of a payload,
// distinguished from a plain nop by the nonzero high byte
const (
	PackedSwitchIdent  uint16 = 0x0100
	SparseSwitchIdent  uint16 = 0x0200
	FillArrayDataIdent uint16 = 0x0300
)

type opcodeInfo struct {
	Name   string
	Format Format
}

// opcodeTable maps every opcode byte to its mnemonic and format.
// Entries with an empty name are unused opcode values.
var opcodeTable = [256]opcodeInfo{
	0x00: {"nop", Format10x},
	0x01: {"move", Format12x},
	0x02: {"move/from16", Format22x},
	0x03: {"move/16", Format32x},
	0x04: {"move-wide", Format12x},
	0x05: {"move-wide/from16", Format22x},
	0x06: {"move-wide/16", Format32x},
	0x07: {"move-object", Format12x},
	0x08: {"move-object/from16", Format22x},
	0x09: {"move-object/16", Format32x},
	0x0a: {"move-result", Format11x},
	0x0b: {"move-result-wide", Format11x},
	0x0c: {"move-result-object", Format11x},
	0x0d: {"move-exception", Format11x},
	0x0e: {"return-void", Format10x},
	0x0f: {"return", Format11x},
	0x10: {"return-wide", Format11x},
	0x11: {"return-object", Format11x},
	0x12: {"const/4", Format11n},
	0x13: {"const/16", Format21s},
	0x14: {"const", Format31i},
	0x15: {"const/high16", Format21h},
	0x16: {"const-wide/16", Format21s},
	0x17: {"const-wide/32", Format31i},
	0x18: {"const-wide", Format51l},
	0x19: {"const-wide/high16", Format21h},
	0x1a: {"const-string", Format21c},
	0x1b: {"const-string/jumbo", Format31c},
	0x1c: {"const-class", Format21c},
	0x1d: {"monitor-enter", Format11x},
	0x1e: {"monitor-exit", Format11x},
	0x1f: {"check-cast", Format21c},
	0x20: {"instance-of", Format22c},
	0x21: {"array-length", Format12x},
	0x22: {"new-instance", Format21c},
	0x23: {"new-array", Format22c},
	0x24: {"filled-new-array", Format35c},
	0x25: {"filled-new-array/range", Format3rc},
	0x26: {"fill-array-data", Format31t},
	0x27: {"throw", Format11x},
	0x28: {"goto", Format10t},
	0x29: {"goto/16", Format20t},
	0x2a: {"goto/32", Format30t},
	0x2b: {"packed-switch", Format31t},
	0x2c: {"sparse-switch", Format31t},
	0x2d: {"cmpl-float", Format23x},
	0x2e: {"cmpg-float", Format23x},
	0x2f: {"cmpl-double", Format23x},
	0x30: {"cmpg-double", Format23x},
	0x31: {"cmp-long", Format23x},
	0x32: {"if-eq", Format22t},
	0x33: {"if-ne", Format22t},
	0x34: {"if-lt", Format22t},
	0x35: {"if-ge", Format22t},
	0x36: {"if-gt", Format22t},
	0x37: {"if-le", Format22t},
	0x38: {"if-eqz", Format21t},
	0x39: {"if-nez", Format21t},
	0x3a: {"if-ltz", Format21t},
	0x3b: {"if-gez", Format21t},
	0x3c: {"if-gtz", Format21t},
	0x3d: {"if-lez", Format21t},
	0x44: {"aget", Format23x},
	0x45: {"aget-wide", Format23x},
	0x46: {"aget-object", Format23x},
	0x47: {"aget-boolean", Format23x},
	0x48: {"aget-byte", Format23x},
	0x49: {"aget-char", Format23x},
	0x4a: {"aget-short", Format23x},
	0x4b: {"aput", Format23x},
	0x4c: {"aput-wide", Format23x},
	0x4d: {"aput-object", Format23x},
	0x4e: {"aput-boolean", Format23x},
	0x4f: {"aput-byte", Format23x},
	0x50: {"aput-char", Format23x},
	0x51: {"aput-short", Format23x},
	0x52: {"iget", Format22c},
	0x53: {"iget-wide", Format22c},
	0x54: {"iget-object", Format22c},
	0x55: {"iget-boolean", Format22c},
	0x56: {"iget-byte", Format22c},
	0x57: {"iget-char", Format22c},
	0x58: {"iget-short", Format22c},
	0x59: {"iput", Format22c},
	0x5a: {"iput-wide", Format22c},
	0x5b: {"iput-object", Format22c},
	0x5c: {"iput-boolean", Format22c},
	0x5d: {"iput-byte", Format22c},
	0x5e: {"iput-char", Format22c},
	0x5f: {"iput-short", Format22c},
	0x60: {"sget", Format21c},
	0x61: {"sget-wide", Format21c},
	0x62: {"sget-object", Format21c},
	0x63: {"sget-boolean", Format21c},
	0x64: {"sget-byte", Format21c},
	0x65: {"sget-char", Format21c},
	0x66: {"sget-short", Format21c},
	0x67: {"sput", Format21c},
	0x68: {"sput-wide", Format21c},
	0x69: {"sput-object", Format21c},
	0x6a: {"sput-boolean", Format21c},
	0x6b: {"sput-byte", Format21c},
	0x6c: {"sput-char", Format21c},
	0x6d: {"sput-short", Format21c},
	0x6e: {"invoke-virtual", Format35c},
	0x6f: {"invoke-super", Format35c},
	0x70: {"invoke-direct", Format35c},
	0x71: {"invoke-static", Format35c},
	0x72: {"invoke-interface", Format35c},
	0x74: {"invoke-virtual/range", Format3rc},
	0x75: {"invoke-super/range", Format3rc},
	0x76: {"invoke-direct/range", Format3rc},
	0x77: {"invoke-static/range", Format3rc},
	0x78: {"invoke-interface/range", Format3rc},
	0x7b: {"neg-int", Format12x},
	0x7c: {"not-int", Format12x},
	0x7d: {"neg-long", Format12x},
	0x7e: {"not-long", Format12x},
	0x7f: {"neg-float", Format12x},
	0x80: {"neg-double", Format12x},
	0x81: {"int-to-long", Format12x},
	0x82: {"int-to-float", Format12x},
	0x83: {"int-to-double", Format12x},
	0x84: {"long-to-int", Format12x},
	0x85: {"long-to-float", Format12x},
	0x86: {"long-to-double", Format12x},
	0x87: {"float-to-int", Format12x},
	0x88: {"float-to-long", Format12x},
	0x89: {"float-to-double", Format12x},
	0x8a: {"double-to-int", Format12x},
	0x8b: {"double-to-long", Format12x},
	0x8c: {"double-to-float", Format12x},
	0x8d: {"int-to-byte", Format12x},
	0x8e: {"int-to-char", Format12x},
	0x8f: {"int-to-short", Format12x},
	0x90: {"add-int", Format23x},
	0x91: {"sub-int", Format23x},
	0x92: {"mul-int", Format23x},
	0x93: {"div-int", Format23x},
	0x94: {"rem-int", Format23x},
	0x95: {"and-int", Format23x},
	0x96: {"or-int", Format23x},
	0x97: {"xor-int", Format23x},
	0x98: {"shl-int", Format23x},
	0x99: {"shr-int", Format23x},
	0x9a: {"ushr-int", Format23x},
	0x9b: {"add-long", Format23x},
	0x9c: {"sub-long", Format23x},
	0x9d: {"mul-long", Format23x},
	0x9e: {"div-long", Format23x},
	0x9f: {"rem-long", Format23x},
	0xa0: {"and-long", Format23x},
	0xa1: {"or-long", Format23x},
	0xa2: {"xor-long", Format23x},
	0xa3: {"shl-long", Format23x},
	0xa4: {"shr-long", Format23x},
	0xa5: {"ushr-long", Format23x},
	0xa6: {"add-float", Format23x},
	0xa7: {"sub-float", Format23x},
	0xa8: {"mul-float", Format23x},
	0xa9: {"div-float", Format23x},
	0xaa: {"rem-float", Format23x},
	0xab: {"add-double", Format23x},
	0xac: {"sub-double", Format23x},
	0xad: {"mul-double", Format23x},
	0xae: {"div-double", Format23x},
	0xaf: {"rem-double", Format23x},
	0xb0: {"add-int/2addr", Format12x},
	0xb1: {"sub-int/2addr", Format12x},
	0xb2: {"mul-int/2addr", Format12x},
	0xb3: {"div-int/2addr", Format12x},
	0xb4: {"rem-int/2addr", Format12x},
	0xb5: {"and-int/2addr", Format12x},
	0xb6: {"or-int/2addr", Format12x},
	0xb7: {"xor-int/2addr", Format12x},
	0xb8: {"shl-int/2addr", Format12x},
	0xb9: {"shr-int/2addr", Format12x},
	0xba: {"ushr-int/2addr", Format12x},
	0xbb: {"add-long/2addr", Format12x},
	0xbc: {"sub-long/2addr", Format12x},
	0xbd: {"mul-long/2addr", Format12x},
	0xbe: {"div-long/2addr", Format12x},
	0xbf: {"rem-long/2addr", Format12x},
	0xc0: {"and-long/2addr", Format12x},
	0xc1: {"or-long/2addr", Format12x},
	0xc2: {"xor-long/2addr", Format12x},
	0xc3: {"shl-long/2addr", Format12x},
	0xc4: {"shr-long/2addr", Format12x},
	0xc5: {"ushr-long/2addr", Format12x},
	0xc6: {"add-float/2addr", Format12x},
	0xc7: {"sub-float/2addr", Format12x},
	0xc8: {"mul-float/2addr", Format12x},
	0xc9: {"div-float/2addr", Format12x},
	0xca: {"rem-float/2addr", Format12x},
	0xcb: {"add-double/2addr", Format12x},
	0xcc: {"sub-double/2addr", Format12x},
	0xcd: {"mul-double/2addr", Format12x},
	0xce: {"div-double/2addr", Format12x},
	0xcf: {"rem-double/2addr", Format12x},
	0xd0: {"add-int/lit16", Format22s},
	0xd1: {"rsub-int", Format22s},
	0xd2: {"mul-int/lit16", Format22s},
	0xd3: {"div-int/lit16", Format22s},
	0xd4: {"rem-int/lit16", Format22s},
	0xd5: {"and-int/lit16", Format22s},
	0xd6: {"or-int/lit16", Format22s},
	0xd7: {"xor-int/lit16", Format22s},
	0xd8: {"add-int/lit8", Format22b},
	0xd9: {"rsub-int/lit8", Format22b},
	0xda: {"mul-int/lit8", Format22b},
	0xdb: {"div-int/lit8", Format22b},
	0xdc: {"rem-int/lit8", Format22b},
	0xdd: {"and-int/lit8", Format22b},
	0xde: {"or-int/lit8", Format22b},
	0xdf: {"xor-int/lit8", Format22b},
	0xe0: {"shl-int/lit8", Format22b},
	0xe1: {"shr-int/lit8", Format22b},
	0xe2: {"ushr-int/lit8", Format22b},
	0xfa: {"invoke-polymorphic", Format45cc},
	0xfb: {"invoke-polymorphic/range", Format4rcc},
	0xfc: {"invoke-custom", Format35c},
	0xfd: {"invoke-custom/range", Format3rc},
	0xfe: {"const-method-handle", Format21c},
	0xff: {"const-method-type", Format21c},
}

// Name returns the Dalvik mnemonic, or empty for unused opcode values
func (op Opcode) Name() string {
	return opcodeTable[op].Name
}

// Defined reports whether the opcode byte maps to a real Dalvik instruction
func (op Opcode) Defined() bool {
	return opcodeTable[op].Name != ""
}

// InstructionFormat returns the encoding shape of a defined opcode
func (op Opcode) InstructionFormat() Format {
	return opcodeTable[op].Format
}
