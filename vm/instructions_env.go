package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/evmlab/evmsim/word"
)

func pushAddress(f *Frame, addr common.Address) error {
	var buf [32]byte
	copy(buf[12:], addr.Bytes())
	return f.Stack.Push(word.FromBytes(buf[:]))
}

func opAddress(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	return nil, pushAddress(f, f.Address)
}

func opBalance(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	b := a.Bytes20()
	bal := in.State.GetBalance(common.BytesToAddress(b[:]))
	return nil, f.Stack.Push(word.FromBytes(bal.Bytes()))
}

func opOrigin(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	return nil, pushAddress(f, f.Origin)
}

func opCaller(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	return nil, pushAddress(f, f.Caller)
}

func opCallValue(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	return nil, f.Stack.Push(f.Value)
}

func opCallDataLoad(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	offset, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	off, overflow := offset.Uint64WithOverflow()
	var buf [32]byte
	if !overflow {
		for i := 0; i < 32; i++ {
			idx := off + uint64(i)
			if idx < uint64(len(f.Input)) {
				buf[i] = f.Input[idx]
			}
		}
	}
	return nil, f.Stack.Push(word.FromBytes(buf[:]))
}

func opCallDataSize(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	return nil, f.Stack.Push(word.FromUint64(uint64(len(f.Input))))
}

func copyToMemory(f *Frame, src []byte, memOffset, srcOffset, size Word64) error {
	if size == 0 {
		return nil
	}
	buf := make([]byte, size)
	for i := Word64(0); i < size; i++ {
		idx := srcOffset + i
		if idx < Word64(len(src)) {
			buf[i] = src[idx]
		}
	}
	f.Memory.Write(uint64(memOffset), buf)
	return nil
}

// Word64 names the uint64 offsets/lengths these copy opcodes work with.
type Word64 = uint64

func opCallDataCopy(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	memOffset, dataOffset, size, err := pop3(f)
	if err != nil {
		return nil, err
	}
	mo, o1 := memOffset.Uint64WithOverflow()
	do, o2 := dataOffset.Uint64WithOverflow()
	sz, o3 := size.Uint64WithOverflow()
	if o1 || o2 || o3 {
		return nil, ErrInvalidMemoryAccess
	}
	return nil, copyToMemory(f, f.Input, mo, do, sz)
}

func opCodeSize(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	return nil, f.Stack.Push(word.FromUint64(uint64(len(f.Code))))
}

func opCodeCopy(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	memOffset, codeOffset, size, err := pop3(f)
	if err != nil {
		return nil, err
	}
	mo, o1 := memOffset.Uint64WithOverflow()
	co, o2 := codeOffset.Uint64WithOverflow()
	sz, o3 := size.Uint64WithOverflow()
	if o1 || o2 || o3 {
		return nil, ErrInvalidMemoryAccess
	}
	return nil, copyToMemory(f, f.Code, mo, co, sz)
}

func opGasPrice(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	return nil, f.Stack.Push(in.GasPrice)
}

func opExtCodeSize(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	b := a.Bytes20()
	code := in.State.GetCode(common.BytesToAddress(b[:]))
	return nil, f.Stack.Push(word.FromUint64(uint64(len(code))))
}

func opExtCodeCopy(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	addrW, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	memOffset, codeOffset, size, err := pop3(f)
	if err != nil {
		return nil, err
	}
	mo, o1 := memOffset.Uint64WithOverflow()
	co, o2 := codeOffset.Uint64WithOverflow()
	sz, o3 := size.Uint64WithOverflow()
	if o1 || o2 || o3 {
		return nil, ErrInvalidMemoryAccess
	}
	b := addrW.Bytes20()
	code := in.State.GetCode(common.BytesToAddress(b[:]))
	return nil, copyToMemory(f, code, mo, co, sz)
}

func opReturnDataSize(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	return nil, f.Stack.Push(word.FromUint64(uint64(len(f.ReturnData))))
}

func opReturnDataCopy(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	memOffset, dataOffset, size, err := pop3(f)
	if err != nil {
		return nil, err
	}
	mo, o1 := memOffset.Uint64WithOverflow()
	do, o2 := dataOffset.Uint64WithOverflow()
	sz, o3 := size.Uint64WithOverflow()
	if o1 || o2 || o3 {
		return nil, ErrInvalidMemoryAccess
	}
	if do+sz > uint64(len(f.ReturnData)) {
		return nil, ErrReturnDataOutOfBounds
	}
	return nil, copyToMemory(f, f.ReturnData, mo, do, sz)
}

func opExtCodeHash(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	a, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	b := a.Bytes20()
	addr := common.BytesToAddress(b[:])
	if !in.State.Exists(addr) {
		return nil, f.Stack.Push(word.Zero())
	}
	code := in.State.GetCode(addr)
	h := crypto.Keccak256Hash(code)
	return nil, f.Stack.Push(word.FromBytes(h.Bytes()))
}

func opBlockHash(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	num, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	// A fork.Provider exposes only the latest header, so any historical
	// block hash this interpreter cannot itself derive comes back zero,
	// matching the real protocol's behavior outside the last 256 blocks.
	_ = num
	return nil, f.Stack.Push(word.Zero())
}

func opCoinbase(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	if in.Block == nil {
		return nil, pushAddress(f, common.Address{})
	}
	return nil, pushAddress(f, in.Block.Coinbase)
}

func opTimestamp(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	if in.Block == nil {
		return nil, f.Stack.Push(word.Zero())
	}
	return nil, f.Stack.Push(word.FromUint64(in.Block.Timestamp))
}

func opNumber(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	if in.Block == nil || in.Block.Number == nil {
		return nil, f.Stack.Push(word.Zero())
	}
	return nil, f.Stack.Push(word.FromBytes(in.Block.Number.Bytes()))
}

func opPrevRandao(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	if in.Block == nil {
		return nil, f.Stack.Push(word.Zero())
	}
	return nil, f.Stack.Push(word.FromBytes(in.Block.PrevRandao.Bytes()))
}

func opGasLimit(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	if in.Block == nil {
		return nil, f.Stack.Push(word.Zero())
	}
	return nil, f.Stack.Push(word.FromUint64(in.Block.GasLimit))
}

func opChainID(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	id := in.ChainID
	if id == 0 {
		id = 1
	}
	return nil, f.Stack.Push(word.FromUint64(id))
}

func opSelfBalance(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	bal := in.State.GetBalance(f.Address)
	return nil, f.Stack.Push(word.FromBytes(bal.Bytes()))
}

func opBaseFee(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	if in.Block == nil || in.Block.BaseFee == nil {
		return nil, f.Stack.Push(word.Zero())
	}
	return nil, f.Stack.Push(word.FromBytes(in.Block.BaseFee.Bytes()))
}

func opSha3(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	offset, size, err := pop2(f)
	if err != nil {
		return nil, err
	}
	off, o1 := offset.Uint64WithOverflow()
	sz, o2 := size.Uint64WithOverflow()
	if o1 || o2 {
		return nil, ErrInvalidMemoryAccess
	}
	data := f.Memory.Read(off, sz)
	h := crypto.Keccak256Hash(data)
	return nil, f.Stack.Push(word.FromBytes(h.Bytes()))
}

func opSload(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	key, err := f.Stack.Pop()
	if err != nil {
		return nil, err
	}
	b := key.Bytes32()
	val := in.State.GetStorage(f.Address, common.BytesToHash(b[:]))
	return nil, f.Stack.Push(word.FromBytes(val.Bytes()))
}

func opSstore(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
	key, val, err := pop2(f)
	if err != nil {
		return nil, err
	}
	kb := key.Bytes32()
	vb := val.Bytes32()
	in.State.SetStorage(f.Address, common.BytesToHash(kb[:]), common.BytesToHash(vb[:]))
	return nil, nil
}

func makeLog(topicCount int) executionFunc {
	return func(pc *uint64, in *Interpreter, f *Frame) ([]byte, error) {
		offset, size, err := pop2(f)
		if err != nil {
			return nil, err
		}
		off, o1 := offset.Uint64WithOverflow()
		sz, o2 := size.Uint64WithOverflow()
		if o1 || o2 {
			return nil, ErrInvalidMemoryAccess
		}
		topics := make([]common.Hash, topicCount)
		for i := 0; i < topicCount; i++ {
			t, err := f.Stack.Pop()
			if err != nil {
				return nil, err
			}
			b := t.Bytes32()
			topics[i] = common.BytesToHash(b[:])
		}
		data := f.Memory.Read(off, sz)
		in.Logs = append(in.Logs, LogRecord{Address: f.Address, Topics: topics, Data: data})
		log.Trace("evmsim: log emitted", "address", f.Address, "topics", topics, "size", len(data))
		return nil, nil
	}
}
