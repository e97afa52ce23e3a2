package lifter

import (
	"github.com/lookbusy1344/dex-analyzer/disasm"
	"github.com/lookbusy1344/dex-analyzer/ir"
)

// opRule maps an opcode to its IR operation and result type. Arithmetic
// result types are fixed by the opcode suffix; a single table lookup replaces
// per-opcode branching.
type opRule struct {
	Kind ir.OpKind
	Type ir.DVMType
}

// binaryOps covers the three-register binop family (format 23x)
var binaryOps = map[disasm.Opcode]opRule{
	disasm.OpAddInt:    {ir.OpAdd, ir.TypeInt},
	disasm.OpAddLong:   {ir.OpAdd, ir.TypeLong},
	disasm.OpAddFloat:  {ir.OpAdd, ir.TypeFloat},
	disasm.OpAddDouble: {ir.OpAdd, ir.TypeDouble},

	disasm.OpSubInt:    {ir.OpSub, ir.TypeInt},
	disasm.OpSubLong:   {ir.OpSub, ir.TypeLong},
	disasm.OpSubFloat:  {ir.OpSub, ir.TypeFloat},
	disasm.OpSubDouble: {ir.OpSub, ir.TypeDouble},

	disasm.OpMulInt:    {ir.OpMul, ir.TypeInt},
	disasm.OpMulLong:   {ir.OpMul, ir.TypeLong},
	disasm.OpMulFloat:  {ir.OpMul, ir.TypeFloat},
	disasm.OpMulDouble: {ir.OpMul, ir.TypeDouble},

	disasm.OpDivInt:    {ir.OpDiv, ir.TypeInt},
	disasm.OpDivLong:   {ir.OpDiv, ir.TypeLong},
	disasm.OpDivFloat:  {ir.OpDiv, ir.TypeFloat},
	disasm.OpDivDouble: {ir.OpDiv, ir.TypeDouble},

	disasm.OpRemInt:    {ir.OpRem, ir.TypeInt},
	disasm.OpRemLong:   {ir.OpRem, ir.TypeLong},
	disasm.OpRemFloat:  {ir.OpRem, ir.TypeFloat},
	disasm.OpRemDouble: {ir.OpRem, ir.TypeDouble},

	disasm.OpAndInt:  {ir.OpAnd, ir.TypeInt},
	disasm.OpAndLong: {ir.OpAnd, ir.TypeLong},
	disasm.OpOrInt:   {ir.OpOr, ir.TypeInt},
	disasm.OpOrLong:  {ir.OpOr, ir.TypeLong},
	disasm.OpXorInt:  {ir.OpXor, ir.TypeInt},
	disasm.OpXorLong: {ir.OpXor, ir.TypeLong},

	disasm.OpShlInt:   {ir.OpShl, ir.TypeInt},
	disasm.OpShlLong:  {ir.OpShl, ir.TypeLong},
	disasm.OpShrInt:   {ir.OpShr, ir.TypeInt},
	disasm.OpShrLong:  {ir.OpShr, ir.TypeLong},
	disasm.OpUshrInt:  {ir.OpUShr, ir.TypeInt},
	disasm.OpUshrLong: {ir.OpUShr, ir.TypeLong},
}

// binaryOps2Addr covers the two-register accumulate family (format 12x)
var binaryOps2Addr = map[disasm.Opcode]opRule{
	disasm.OpAddInt2Addr:    {ir.OpAdd, ir.TypeInt},
	disasm.OpAddLong2Addr:   {ir.OpAdd, ir.TypeLong},
	disasm.OpAddFloat2Addr:  {ir.OpAdd, ir.TypeFloat},
	disasm.OpAddDouble2Addr: {ir.OpAdd, ir.TypeDouble},

	disasm.OpSubInt2Addr:    {ir.OpSub, ir.TypeInt},
	disasm.OpSubLong2Addr:   {ir.OpSub, ir.TypeLong},
	disasm.OpSubFloat2Addr:  {ir.OpSub, ir.TypeFloat},
	disasm.OpSubDouble2Addr: {ir.OpSub, ir.TypeDouble},

	disasm.OpMulInt2Addr:    {ir.OpMul, ir.TypeInt},
	disasm.OpMulLong2Addr:   {ir.OpMul, ir.TypeLong},
	disasm.OpMulFloat2Addr:  {ir.OpMul, ir.TypeFloat},
	disasm.OpMulDouble2Addr: {ir.OpMul, ir.TypeDouble},

	disasm.OpDivInt2Addr:    {ir.OpDiv, ir.TypeInt},
	disasm.OpDivLong2Addr:   {ir.OpDiv, ir.TypeLong},
	disasm.OpDivFloat2Addr:  {ir.OpDiv, ir.TypeFloat},
	disasm.OpDivDouble2Addr: {ir.OpDiv, ir.TypeDouble},

	disasm.OpRemInt2Addr:    {ir.OpRem, ir.TypeInt},
	disasm.OpRemLong2Addr:   {ir.OpRem, ir.TypeLong},
	disasm.OpRemFloat2Addr:  {ir.OpRem, ir.TypeFloat},
	disasm.OpRemDouble2Addr: {ir.OpRem, ir.TypeDouble},

	disasm.OpAndInt2Addr:  {ir.OpAnd, ir.TypeInt},
	disasm.OpAndLong2Addr: {ir.OpAnd, ir.TypeLong},
	disasm.OpOrInt2Addr:   {ir.OpOr, ir.TypeInt},
	disasm.OpOrLong2Addr:  {ir.OpOr, ir.TypeLong},
	disasm.OpXorInt2Addr:  {ir.OpXor, ir.TypeInt},
	disasm.OpXorLong2Addr: {ir.OpXor, ir.TypeLong},

	disasm.OpShlInt2Addr:   {ir.OpShl, ir.TypeInt},
	disasm.OpShlLong2Addr:  {ir.OpShl, ir.TypeLong},
	disasm.OpShrInt2Addr:   {ir.OpShr, ir.TypeInt},
	disasm.OpShrLong2Addr:  {ir.OpShr, ir.TypeLong},
	disasm.OpUshrInt2Addr:  {ir.OpUShr, ir.TypeInt},
	disasm.OpUshrLong2Addr: {ir.OpUShr, ir.TypeLong},
}

// comparisons maps each two-register conditional branch to its comparison op.
// Each opcode emits exactly its own comparison; the branch emission that
// follows is shared.
var comparisons = map[disasm.Opcode]ir.OpKind{
	disasm.OpIfEq: ir.OpCmpEq,
	disasm.OpIfNe: ir.OpCmpNEq,
	disasm.OpIfLt: ir.OpCmpLt,
	disasm.OpIfGe: ir.OpCmpGe,
	disasm.OpIfGt: ir.OpCmpGt,
	disasm.OpIfLe: ir.OpCmpLe,
}

// fieldAccess maps instance field opcodes to the accessed field type
var fieldAccess = map[disasm.Opcode]ir.DVMType{
	disasm.OpIget:        ir.TypeInt,
	disasm.OpIgetWide:    ir.TypeLong,
	disasm.OpIgetObject:  ir.TypeObject,
	disasm.OpIgetBoolean: ir.TypeBool,
	disasm.OpIgetByte:    ir.TypeByte,
	disasm.OpIgetChar:    ir.TypeChar,
	disasm.OpIgetShort:   ir.TypeShort,
	disasm.OpIput:        ir.TypeInt,
	disasm.OpIputWide:    ir.TypeLong,
	disasm.OpIputObject:  ir.TypeObject,
	disasm.OpIputBoolean: ir.TypeBool,
	disasm.OpIputByte:    ir.TypeByte,
	disasm.OpIputChar:    ir.TypeChar,
	disasm.OpIputShort:   ir.TypeShort,
}
