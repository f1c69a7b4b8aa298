package vm

import "github.com/evmlab/evmsim/word"

// Arithmetic, comparison, and bitwise handlers all share the same shape:
// pop operands, push a word.Word result. Grounded on the operand
// conventions in other_examples' artela-network vm/instructions.go
// (x, y := pop two, compute into y, push y), adapted to this module's
// own word package instead of holiman/uint256 directly.

// pop2 pops the top two stack elements, returning the topmost as the
// first result and the one beneath it as the second, the order every
// caller names its results by (e.g. offset, size or shift, value).
func pop2(f *Frame) (word.Word, word.Word, error) {
	top, err := f.Stack.Pop()
	if err != nil {
		return word.Word{}, word.Word{}, err
	}
	second, err := f.Stack.Pop()
	if err != nil {
		return word.Word{}, word.Word{}, err
	}
	return top, second, nil
}

// pop3 pops the top three stack elements, topmost first, third-popped
// (the original bottom of the three) last.
func pop3(f *Frame) (word.Word, word.Word, word.Word, error) {
	top, err := f.Stack.Pop()
	if err != nil {
		return word.Word{}, word.Word{}, word.Word{}, err
	}
	second, err := f.Stack.Pop()
	if err != nil {
		return word.Word{}, word.Word{}, word.Word{}, err
	}
	third, err := f.Stack.Pop()
	if err != nil {
		return word.Word{}, word.Word{}, word.Word{}, err
	}
	return top, second, third, nil
}

func opAdd(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, b, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Add(a, b))
}

func opMul(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, b, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Mul(a, b))
}

func opSub(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, b, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Sub(a, b))
}

func opDiv(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, b, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Div(a, b))
}

func opSdiv(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, b, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.SDiv(a, b))
}

func opMod(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, b, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Mod(a, b))
}

func opSmod(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, b, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.SMod(a, b))
}

func opAddmod(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, b, m, err := pop3(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.AddMod(a, b, m))
}

func opMulmod(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, b, m, err := pop3(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.MulMod(a, b, m))
}

func opExp(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	base, exp, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Exp(base, exp))
}

func opSignExtend(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	k, x, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.SignExtend(k, x))
}

func opLt(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, b, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Lt(a, b))
}

func opGt(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, b, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Gt(a, b))
}

func opSlt(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, b, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Slt(a, b))
}

func opSgt(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, b, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Sgt(a, b))
}

func opEq(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, b, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Eq(a, b))
}

func opIszero(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.IsZero(a))
}

func opAnd(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, b, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.And(a, b))
}

func opOr(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, b, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Or(a, b))
}

func opXor(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, b, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Xor(a, b))
}

func opNot(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Not(a))
}

func opByte(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	i, x, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Byte(i, x))
}

func opShl(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	shift, value, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Shl(shift, value))
}

func opShr(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	shift, value, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Shr(shift, value))
}

func opSar(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	shift, value, err := pop2(f)
	if err != nil {
		return nil, err
	}
	return nil, f.Stack.Push(word.Sar(shift, value))
}
