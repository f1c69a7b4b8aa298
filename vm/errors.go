package vm

import "errors"

// Sentinel errors the interpreter can return. These are the "ordinary"
// halts spec.md §7 distinguishes from fork.Error: they end a frame
// without indicating a bug in the interpreter itself.
var (
	ErrExecutionReverted  = errors.New("execution reverted")
	ErrInvalidOpcode      = errors.New("invalid opcode")
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrStackOverflow      = errors.New("stack overflow")
	ErrInvalidJump        = errors.New("invalid jump destination")
	ErrWriteProtection    = errors.New("write protection: state-modifying op in static call")
	ErrInvalidMemoryAccess = errors.New("invalid memory access")
	ErrDepthLimit         = errors.New("max call depth exceeded")
	ErrInsufficientBalance = errors.New("insufficient balance for call value")
	ErrStepLimit          = errors.New("step limit exceeded")
	ErrReturnDataOutOfBounds = errors.New("return data out of bounds")
)

// errStop is the internal sentinel a STOP/RETURN/SELFDESTRUCT handler
// returns to signal a normal (non-revert) halt; Step translates it to a
// nil error before returning to the caller.
var errStop = errors.New("stop")

// MaxCallDepth mirrors the real protocol's 1024 limit; it bounds
// recursion in CALL/CREATE family handlers regardless of gas, which
// this interpreter does not meter.
const MaxCallDepth = 1024
