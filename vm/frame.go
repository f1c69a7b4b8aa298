package vm

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/evmlab/evmsim/memory"
	"github.com/evmlab/evmsim/stack"
	"github.com/evmlab/evmsim/word"
)

// Frame is the execution context of one call, the scope a running
// instruction sees. Grounded on the teacher's ScopeContext
// (vm.ScopeContext wrapping Memory/Stack/Contract), reduced to the
// fields this interpreter actually needs since gas and a real
// vm.Contract are out of scope.
type Frame struct {
	Address  common.Address // the account whose code is executing
	Caller   common.Address // immediate caller
	Origin   common.Address // transaction-equivalent origin, fixed for the whole call tree
	Value    word.Word      // value passed with this call
	Input    []byte         // calldata
	Code     []byte         // running code
	Static   bool           // true inside a STATICCALL subtree
	Depth    int            // 0 for the outermost frame

	Stack  *stack.Stack
	Memory *memory.Memory

	PC         uint64
	ReturnData []byte // output of the most recently completed sub-call

	validJumpdest bitset
}

// NewFrame builds a fresh frame for code running at address, called by
// caller with the given value and input. validJumpdest is computed from
// code once for each new frame.
func NewFrame(address, caller, origin common.Address, value word.Word, input, code []byte, static bool, depth int) *Frame {
	return &Frame{
		Address:       address,
		Caller:        caller,
		Origin:        origin,
		Value:         value,
		Input:         input,
		Code:          code,
		Static:        static,
		Depth:         depth,
		Stack:         stack.New(),
		Memory:        memory.New(),
		validJumpdest: computeJumpdests(code),
	}
}

// bitset is a packed set of valid JUMPDEST positions within a code slice.
type bitset []uint64

func computeJumpdests(code []byte) bitset {
	bs := make(bitset, (len(code)/64)+1)
	for pc := 0; pc < len(code); {
		op := OpCode(code[pc])
		if op == JUMPDEST {
			bs[pc/64] |= 1 << uint(pc%64)
			pc++
			continue
		}
		if op.IsPush() {
			pc += 1 + op.PushSize()
			continue
		}
		pc++
	}
	return bs
}

func (b bitset) isSet(pc uint64) bool {
	idx := pc / 64
	if int(idx) >= len(b) {
		return false
	}
	return b[idx]&(1<<uint(pc%64)) != 0
}

// ValidJumpDest reports whether pc lands on a JUMPDEST in this frame's
// code, and is not the immediate byte of a PUSH instruction.
func (f *Frame) ValidJumpDest(pc uint64) bool {
	if pc >= uint64(len(f.Code)) {
		return false
	}
	if OpCode(f.Code[pc]) != JUMPDEST {
		return false
	}
	return f.validJumpdest.isSet(pc)
}
