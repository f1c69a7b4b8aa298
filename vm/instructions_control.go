package vm

import "github.com/evmlab/evmsim/word"

func opPop(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	_, err := f.Stack.Pop()
	return nil, err
}

func opMload(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	offset, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	off, overflow := offset.Uint64WithOverflow()
	if overflow {
		return nil, ErrInvalidMemoryAccess
	}
	return nil, f.Stack.Push(f.Memory.Load32(off))
}

func opMstore(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	offset, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	val, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	off, overflow := offset.Uint64WithOverflow()
	if overflow {
		return nil, ErrInvalidMemoryAccess
	}
	f.Memory.Store32(off, val)
	return nil, nil
}

func opMstore8(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	offset, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	val, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	off, overflow := offset.Uint64WithOverflow()
	if overflow {
		return nil, ErrInvalidMemoryAccess
	}
	b := val.Bytes32()
	f.Memory.Store1(off, b[31])
	return nil, nil
}

func opMsize(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	return nil, f.Stack.Push(word.FromUint64(f.Memory.Size()))
}

func opPc(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	return nil, f.Stack.Push(word.FromUint64(*pc))
}

func opGas(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	// Gas accounting is out of scope; expose the sentinel "unmetered"
	// value of all-ones so code that branches on GAS still behaves
	// deterministically rather than reading zero.
	var max word.Word
	return nil, f.Stack.Push(word.Not(max))
}

func opJumpdest(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	return nil, nil
}

func opJump(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	dest, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	d, overflow := dest.Uint64WithOverflow()
	if overflow || !f.ValidJumpDest(d) {
		return nil, ErrInvalidJump
	}
	*pc = d
	return nil, nil
}

func opJumpi(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	dest, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	cond, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	if cond.IsZeroVal() {
		*pc++
		return nil, nil
	}
	d, overflow := dest.Uint64WithOverflow()
	if overflow || !f.ValidJumpDest(d) {
		return nil, ErrInvalidJump
	}
	*pc = d
	return nil, nil
}

func makePush(size int) executionFunc {
	return func(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
		start := *pc + 1
		end := start + uint64(size)
		var buf [32]byte
		codeLen := uint64(len(f.Code))
		for i := uint64(0); i < uint64(size); i++ {
			srcIdx := start + i
			if srcIdx < codeLen {
				buf[32-uint64(size)+i] = f.Code[srcIdx]
			}
		}
		if err := f.Stack.Push(word.FromBytes(buf[32-size:])); err != nil {
			return nil, err
		}
		*pc = end - 1
		return nil, nil
	}
}

func makeDup(n int) executionFunc {
	return func(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
		return nil, f.Stack.Dup(n)
	}
}

func makeSwap(n int) executionFunc {
	return func(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
		return nil, f.Stack.Swap(n)
	}
}

func opPush0(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	return nil, f.Stack.Push(word.Zero())
}

func opStop(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	return nil, errStop
}

func opReturn(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	offset, size, err := pop2(f)
	if err != nil {
		return nil, err
	}
	off, off64 := offset.Uint64WithOverflow()
	sz, sz64 := size.Uint64WithOverflow()
	if off64 || sz64 {
		return nil, ErrInvalidMemoryAccess
	}
	return f.Memory.Read(off, sz), errStop
}

func opRevert(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	offset, size, err := pop2(f)
	if err != nil {
		return nil, err
	}
	off, off64 := offset.Uint64WithOverflow()
	sz, sz64 := size.Uint64WithOverflow()
	if off64 || sz64 {
		return nil, ErrInvalidMemoryAccess
	}
	return f.Memory.Read(off, sz), ErrExecutionReverted
}

func opInvalidInstr(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	return nil, ErrInvalidOpcode
}
