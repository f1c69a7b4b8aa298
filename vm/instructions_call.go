package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/evmlab/evmsim/word"
)

// callKind distinguishes the four call-family opcodes, which share
// almost all of their sub-frame plumbing and differ only in how the
// new frame's Address/Caller/Value/Static are derived from the
// current one. Grounded on artela-network's opCall/opCallCode/
// opDelegateCall/opStaticCall, which share this same structure.
type callKind int

const (
	kindCall callKind = iota
	kindCallCode
	kindDelegateCall
	kindStaticCall
)

func runCall(kind callKind) executionFunc {
	return func(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
		_, err := f.Stack.Pop() // gas, ignored: this interpreter does not meter gas
		if err != nil {
			return nil, err
		}
		addrW, err := f.Stack.Pop()
		if err != nil {
			return nil, err
		}

		var value word.Word
		if kind == kindCall || kind == kindCallCode {
			value, err = f.Stack.Pop()
			if err != nil {
				return nil, err
			}
		}

		inOffset, inSize, outOffset, outSize, err := popCallMemArgs(f)
		if err != nil {
			return nil, err
		}

		if f.Static && kind == kindCall && !value.IsZeroVal() {
			return nil, ErrWriteProtection
		}

		ib, o1 := inOffset.Uint64WithOverflow()
		isz, o2 := inSize.Uint64WithOverflow()
		ob, o3 := outOffset.Uint64WithOverflow()
		osz, o4 := outSize.Uint64WithOverflow()
		if o1 || o2 || o3 || o4 {
			return nil, ErrInvalidMemoryAccess
		}

		addrBytes := addrW.Bytes20()
		target := common.BytesToAddress(addrBytes[:])
		input := f.Memory.Read(ib, isz)

		var newAddress, newCaller common.Address
		var newValue word.Word
		var static bool

		switch kind {
		case kindCall:
			newAddress, newCaller, newValue, static = target, f.Address, value, f.Static
		case kindCallCode:
			newAddress, newCaller, newValue, static = f.Address, f.Address, value, f.Static
		case kindDelegateCall:
			newAddress, newCaller, newValue, static = f.Address, f.Caller, f.Value, f.Static
		case kindStaticCall:
			newAddress, newCaller, newValue, static = target, f.Address, word.Zero(), true
		}

		code := in.State.GetCode(target)

		snap := in.State.Snapshot()
		if (kind == kindCall || kind == kindCallCode) && !newValue.IsZeroVal() {
			bal := newValue.Bytes32()
			amount := new(big.Int).SetBytes(bal[:])
			switch kind {
			case kindCall:
				if !in.State.Transfer(f.Address, target, amount) {
					in.State.Revert(snap)
					f.ReturnData = nil
					return nil, f.Stack.Push(word.Zero())
				}
			case kindCallCode:
				// CALLCODE runs target's code in the caller's own context
				// (newAddress == f.Address), so value never actually leaves
				// the caller; only the balance sufficiency check applies.
				if in.State.GetBalance(f.Address).Cmp(amount) < 0 {
					in.State.Revert(snap)
					f.ReturnData = nil
					return nil, f.Stack.Push(word.Zero())
				}
			}
		}

		sub := NewFrame(newAddress, newCaller, f.Origin, newValue, input, code, static, f.Depth+1)
		output, runErr := in.Run(sub)

		f.ReturnData = output
		if runErr != nil && runErr != ErrExecutionReverted {
			in.State.Revert(snap)
			return nil, f.Stack.Push(word.Zero())
		}
		if runErr == ErrExecutionReverted {
			in.State.Revert(snap)
		} else {
			in.State.Commit()
		}

		writeCallOutput(f, ob, osz, output)

		if runErr == ErrExecutionReverted {
			return nil, f.Stack.Push(word.Zero())
		}
		return nil, f.Stack.Push(word.One())
	}
}

func popCallMemArgs(f *Frame) (inOffset, inSize, outOffset, outSize word.Word, err error) {
	if inOffset, err = f.Stack.Pop(); err != nil {
		return
	}
	if inSize, err = f.Stack.Pop(); err != nil {
		return
	}
	if outOffset, err = f.Stack.Pop(); err != nil {
		return
	}
	if outSize, err = f.Stack.Pop(); err != nil {
		return
	}
	return
}

func writeCallOutput(f *Frame, outOffset, outSize uint64, output []byte) {
	if outSize == 0 {
		return
	}
	n := outSize
	if uint64(len(output)) < n {
		n = uint64(len(output))
	}
	buf := make([]byte, outSize)
	copy(buf, output[:n])
	f.Memory.Write(outOffset, buf)
}

var opCall = runCall(kindCall)
var opCallCode = runCall(kindCallCode)
var opDelegateCall = runCall(kindDelegateCall)
var opStaticCall = runCall(kindStaticCall)

// createKind distinguishes CREATE from CREATE2, which differ only in
// how the child address is derived.
type createKind int

const (
	kindCreate createKind = iota
	kindCreate2
)

func runCreate(kind createKind) executionFunc {
	return func(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
		value, err := f.Stack.Pop()
		if err != nil {
			return nil, err
		}
		offset, err := f.Stack.Pop()
		if err != nil {
			return nil, err
		}
		size, err := f.Stack.Pop()
		if err != nil {
			return nil, err
		}

		var salt word.Word
		if kind == kindCreate2 {
			salt, err = f.Stack.Pop()
			if err != nil {
				return nil, err
			}
		}

		off, o1 := offset.Uint64WithOverflow()
		sz, o2 := size.Uint64WithOverflow()
		if o1 || o2 {
			return nil, ErrInvalidMemoryAccess
		}
		initCode := f.Memory.Read(off, sz)

		valBytes := value.Bytes32()
		amount := new(big.Int).SetBytes(valBytes[:])
		if in.State.GetBalance(f.Address).Cmp(amount) < 0 {
			return nil, f.Stack.Push(word.Zero())
		}

		// The creating account's nonce is bumped for both CREATE and
		// CREATE2; only CREATE's address derivation actually uses it.
		nonce := in.State.GetNonce(f.Address)
		in.State.SetNonce(f.Address, nonce+1)

		var childAddr common.Address
		if kind == kindCreate {
			childAddr = crypto.CreateAddress(f.Address, nonce)
		} else {
			saltBytes := salt.Bytes32()
			childAddr = crypto.CreateAddress2(f.Address, saltBytes, crypto.Keccak256(initCode))
		}

		snap := in.State.Snapshot()
		if amount.Sign() > 0 {
			if !in.State.Transfer(f.Address, childAddr, amount) {
				in.State.Revert(snap)
				f.ReturnData = nil
				return nil, f.Stack.Push(word.Zero())
			}
		}

		sub := NewFrame(childAddr, f.Address, f.Origin, value, nil, initCode, f.Static, f.Depth+1)
		runtimeCode, runErr := in.Run(sub)

		f.ReturnData = nil
		if runErr != nil {
			in.State.Revert(snap)
			if runErr == ErrExecutionReverted {
				f.ReturnData = runtimeCode
			}
			return nil, f.Stack.Push(word.Zero())
		}

		in.State.SetCode(childAddr, runtimeCode)
		in.State.Commit()
		return nil, pushAddress(f, childAddr)
	}
}

var opCreate = runCreate(kindCreate)
var opCreate2 = runCreate(kindCreate2)

func opSelfdestruct(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	beneficiaryW, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	b := beneficiaryW.Bytes20()
	beneficiary := common.BytesToAddress(b[:])

	balance := in.State.GetBalance(f.Address)
	if balance.Sign() > 0 {
		in.State.Transfer(f.Address, beneficiary, balance)
	}
	in.State.Selfdestruct(f.Address)
	return nil, errStop
}
