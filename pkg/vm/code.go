package vm

import "fmt"

// Cell is the raw type stored in a memory or stack slot.
type Cell int32

// AddrMode selects how a MemAddr operand is interpreted.
type AddrMode uint8

const (
	Direct   AddrMode = iota // absolute index into memory (globals)
	Indirect                 // pd + offset (locals and parameters)
	Value                    // immediate literal, not storable
)

// MemAddr is the operand of Push and Pop.
type MemAddr struct {
	Mode AddrMode
	N    int
}

// DirectAddr, IndirectAddr and ValueAddr build the three Push/Pop operand
// forms: [off], fp[off] and #v.
func DirectAddr(off int) MemAddr   { return MemAddr{Mode: Direct, N: off} }
func IndirectAddr(off int) MemAddr { return MemAddr{Mode: Indirect, N: off} }
func ValueAddr(v Cell) MemAddr     { return MemAddr{Mode: Value, N: int(v)} }

func (a MemAddr) String() string {
	switch a.Mode {
	case Direct:
		return fmt.Sprintf("[%d]", a.N)
	case Indirect:
		return fmt.Sprintf("fp[%d]", a.N)
	}
	return fmt.Sprintf("#%d", a.N)
}

// TargetKind distinguishes concrete code addresses from symbolic ones that
// still await linking.
type TargetKind uint8

const (
	Abs   TargetKind = iota // instruction index
	Start                   // first instruction of region N
	End                     // one past the last instruction of region N
)

// CodeAddr is the operand of Call, Jump and CondJump.
type CodeAddr struct {
	Kind TargetKind
	N    int
}

// AbsAddr is a linked instruction index. StartOf and EndOf name the bounds
// of region id and are resolved by the compiler's link pass. Linked reports
// whether a is already an instruction index.
func AbsAddr(pc int) CodeAddr   { return CodeAddr{Kind: Abs, N: pc} }
func StartOf(id int) CodeAddr   { return CodeAddr{Kind: Start, N: id} }
func EndOf(id int) CodeAddr     { return CodeAddr{Kind: End, N: id} }
func (a CodeAddr) Linked() bool { return a.Kind == Abs }

func (a CodeAddr) String() string {
	switch a.Kind {
	case Start:
		return fmt.Sprintf("start(%d)", a.N)
	case End:
		return fmt.Sprintf("end(%d)", a.N)
	}
	return fmt.Sprintf("@%d", a.N)
}

// Opcode identifies an instruction.
type Opcode uint8

const (
	OpPush Opcode = iota
	OpPop
	OpPopN
	OpCalc
	OpCall
	OpJump
	OpCondJump
	OpPrint
	OpRet
	OpExit
)

var opcodeNames = [...]string{
	OpPush:     "push",
	OpPop:      "pop",
	OpPopN:     "popn",
	OpCalc:     "op",
	OpCall:     "call",
	OpJump:     "jmp",
	OpCondJump: "jz",
	OpPrint:    "print",
	OpRet:      "ret",
	OpExit:     "exit",
}

func (o Opcode) String() string {
	if int(o) < len(opcodeNames) {
		return opcodeNames[o]
	}
	return fmt.Sprintf("Opcode(%d)", int(o))
}

// LookupOpcode maps a mnemonic to its opcode.
func LookupOpcode(name string) (Opcode, bool) {
	for i, n := range opcodeNames {
		if n == name {
			return Opcode(i), true
		}
	}
	return 0, false
}

// Code is a single instruction. Only the fields relevant to Opcode are set:
//
//	push/pop   Mem
//	popn       N (words to discard)
//	op         Op
//	call       Target, N (parameter count)
//	jmp/jz     Target
//	ret        N (result words)
type Code struct {
	Opcode Opcode
	Mem    MemAddr
	Target CodeAddr
	Op     Op
	N      int
}

// Instruction constructors, one per opcode.
func Push(a MemAddr) Code               { return Code{Opcode: OpPush, Mem: a} }
func Pop(a MemAddr) Code                { return Code{Opcode: OpPop, Mem: a} }
func PopN(n int) Code                   { return Code{Opcode: OpPopN, N: n} }
func Calc(op Op) Code                   { return Code{Opcode: OpCalc, Op: op} }
func Call(t CodeAddr, nparams int) Code { return Code{Opcode: OpCall, Target: t, N: nparams} }
func Jump(t CodeAddr) Code              { return Code{Opcode: OpJump, Target: t} }
func CondJump(t CodeAddr) Code          { return Code{Opcode: OpCondJump, Target: t} }
func Print() Code                       { return Code{Opcode: OpPrint} }
func Ret(n int) Code                    { return Code{Opcode: OpRet, N: n} }
func Exit() Code                        { return Code{Opcode: OpExit} }

// HasTarget reports whether the instruction carries a code address.
func (c Code) HasTarget() bool {
	return c.Opcode == OpCall || c.Opcode == OpJump || c.Opcode == OpCondJump
}

func (c Code) String() string {
	switch c.Opcode {
	case OpPush, OpPop:
		return fmt.Sprintf("%s %s", c.Opcode, c.Mem)
	case OpPopN, OpRet:
		return fmt.Sprintf("%s %d", c.Opcode, c.N)
	case OpCalc:
		return fmt.Sprintf("%s %s", c.Opcode, c.Op)
	case OpCall:
		return fmt.Sprintf("%s %s, %d", c.Opcode, c.Target, c.N)
	case OpJump, OpCondJump:
		return fmt.Sprintf("%s %s", c.Opcode, c.Target)
	}
	return c.Opcode.String()
}

// Program is a linked instruction sequence plus the initial image of global
// memory and the entry point.
type Program struct {
	Codes  []Code
	Memory []Cell
	Entry  int

	// Symbols maps function names to their entry pc. Informational only.
	Symbols map[string]int
}
