package vm

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/evmlab/evmsim/state"
	"github.com/evmlab/evmsim/word"
)

func run(t *testing.T, code []byte, static bool) (*Frame, []byte, error) {
	t.Helper()
	s := state.New(nil)
	in := NewInterpreter(s, nil)
	frame := NewFrame(common.HexToAddress("0xaa"), common.HexToAddress("0xbb"), common.HexToAddress("0xbb"), word.Zero(), nil, code, static, 0)
	out, err := in.Run(frame)
	return frame, out, err
}

func TestAddThenStop(t *testing.T) {
	code := []byte{byte(PUSH1), 1, byte(PUSH1), 2, byte(ADD), byte(STOP)}
	frame, out, err := run(t, code, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %x", out)
	}
	top, _ := frame.Stack.Peek(0)
	if top != word.FromUint64(3) {
		t.Fatalf("top got %s want 3", top)
	}
}

func TestMstoreThenReturnZeroBytes(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0x00, byte(PUSH1), 0x00, byte(MSTORE),
		byte(PUSH1), 0x20, byte(PUSH1), 0x00, byte(RETURN),
	}
	frame, out, err := run(t, code, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 32 || !bytes.Equal(out, make([]byte, 32)) {
		t.Fatalf("expected 32 zero bytes, got %x", out)
	}
	if frame.Memory.Size() != 32 {
		t.Fatalf("memory size got %d want 32", frame.Memory.Size())
	}
}

func TestCodeExhaustionIsImplicitStop(t *testing.T) {
	code := []byte{byte(PUSH1), 0xff, byte(PUSH1), 0xff}
	frame, out, err := run(t, code, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty output")
	}
	if frame.Stack.Len() != 2 {
		t.Fatalf("stack len got %d want 2", frame.Stack.Len())
	}
	top, _ := frame.Stack.Peek(0)
	bottom, _ := frame.Stack.Peek(1)
	if top != word.FromUint64(0xff) || bottom != word.FromUint64(0xff) {
		t.Fatalf("stack contents wrong")
	}
}

func TestRevertHaltsWithoutOutputLoss(t *testing.T) {
	code := []byte{byte(PUSH1), 1, byte(PUSH1), 0, byte(REVERT)}
	_, out, err := run(t, code, false)
	if err != ErrExecutionReverted {
		t.Fatalf("expected ErrExecutionReverted, got %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("revert output got %x want 1 byte", out)
	}
}

func TestSstoreUnderStaticIsWriteProtection(t *testing.T) {
	code := []byte{byte(PUSH1), 1, byte(PUSH1), 0, byte(SSTORE)}
	_, _, err := run(t, code, true)
	if err != ErrWriteProtection {
		t.Fatalf("expected ErrWriteProtection, got %v", err)
	}
}

func TestUndefinedOpcodeIsInvalid(t *testing.T) {
	code := []byte{byte(INVALID)}
	_, _, err := run(t, code, false)
	if err != ErrInvalidOpcode {
		t.Fatalf("expected ErrInvalidOpcode, got %v", err)
	}
}

func TestJumpToNonJumpdestIsInvalidJump(t *testing.T) {
	code := []byte{byte(PUSH1), 0x05, byte(JUMP), byte(STOP), byte(STOP), byte(ADD)}
	_, _, err := run(t, code, false)
	if err != ErrInvalidJump {
		t.Fatalf("expected ErrInvalidJump, got %v", err)
	}
}

func TestJumpIntoPushImmediateIsInvalidJump(t *testing.T) {
	// PUSH1 0x5b, then a JUMPDEST byte appears only as push data at
	// position 1, not as a real instruction.
	code := []byte{byte(PUSH1), byte(JUMPDEST), byte(PUSH1), 0x01, byte(JUMP)}
	_, _, err := run(t, code, false)
	if err != ErrInvalidJump {
		t.Fatalf("expected ErrInvalidJump, got %v", err)
	}
}

func TestValidJumpSkipsToJumpdest(t *testing.T) {
	// PUSH1 4; JUMP; (skipped STOP); JUMPDEST; PUSH1 7; STOP
	code := []byte{
		byte(PUSH1), 0x04, byte(JUMP), byte(STOP),
		byte(JUMPDEST), byte(PUSH1), 0x07, byte(STOP),
	}
	frame, _, err := run(t, code, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	top, _ := frame.Stack.Peek(0)
	if top != word.FromUint64(7) {
		t.Fatalf("expected 7 on stack, got %s", top)
	}
}

func TestStackUnderflow(t *testing.T) {
	code := []byte{byte(ADD)}
	_, _, err := run(t, code, false)
	if err != ErrStackUnderflow {
		t.Fatalf("expected ErrStackUnderflow, got %v", err)
	}
}

func TestSubIsTopMinusSecond(t *testing.T) {
	// PUSH1 3 (pushed first, ends up second-from-top); PUSH1 10 (top).
	// SUB computes top - second = 10 - 3 = 7.
	code := []byte{byte(PUSH1), 3, byte(PUSH1), 10, byte(SUB), byte(STOP)}
	frame, _, err := run(t, code, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	top, _ := frame.Stack.Peek(0)
	if top != word.FromUint64(7) {
		t.Fatalf("SUB got %s want 7", top)
	}
}

func TestAddmodUsesThirdPoppedAsModulus(t *testing.T) {
	// Stack bottom->top: 7, 3, 2. ADDMOD pops x=2, y=3, z=7 (modulus) and
	// computes (2+3) mod 7 = 5.
	code := []byte{
		byte(PUSH1), 7, byte(PUSH1), 3, byte(PUSH1), 2,
		byte(ADDMOD), byte(STOP),
	}
	frame, _, err := run(t, code, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	top, _ := frame.Stack.Peek(0)
	if top != word.FromUint64(5) {
		t.Fatalf("ADDMOD got %s want 5", top)
	}
}

func TestCallCodeInsufficientBalanceReturnsZeroWithoutTransfer(t *testing.T) {
	s := state.New(nil)
	callee := common.HexToAddress("0xcc")
	s.SetCode(callee, []byte{byte(STOP)})
	caller := common.HexToAddress("0xaa")
	s.SetBalance(caller, big.NewInt(5))

	in := NewInterpreter(s, nil)
	code := []byte{
		byte(PUSH1), 0, // retSize
		byte(PUSH1), 0, // retOffset
		byte(PUSH1), 0, // argsSize
		byte(PUSH1), 0, // argsOffset
		byte(PUSH1), 10, // value, exceeds caller's balance of 5
		byte(PUSH1) + 19, // PUSH20
	}
	code = append(code, callee.Bytes()...)
	code = append(code, byte(PUSH1), 0, byte(CALLCODE), byte(STOP))

	frame := NewFrame(caller, common.Address{}, common.Address{}, word.Zero(), nil, code, false, 0)
	_, err := in.Run(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	top, _ := frame.Stack.Peek(0)
	if top != word.Zero() {
		t.Fatalf("CALLCODE over insufficient balance should report failure, got %s", top)
	}
	if s.GetBalance(caller).Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("caller balance should be untouched, got %s", s.GetBalance(caller))
	}
}

func TestDelegateCallRunsCalleeCodeInCallerContext(t *testing.T) {
	s := state.New(nil)
	callee := common.HexToAddress("0xcc")
	// SLOAD key 0, RETURN it: lets the test observe which address's
	// storage DELEGATECALL actually reads.
	calleeCode := []byte{
		byte(PUSH1), 0, byte(SLOAD),
		byte(PUSH1), 0, byte(MSTORE),
		byte(PUSH1), 0x20, byte(PUSH1), 0, byte(RETURN),
	}
	s.SetCode(callee, calleeCode)
	caller := common.HexToAddress("0xaa")
	s.SetStorage(caller, common.Hash{}, common.BytesToHash([]byte{42}))

	in := NewInterpreter(s, nil)
	code := []byte{
		byte(PUSH1), 0, // retSize
		byte(PUSH1), 0, // retOffset
		byte(PUSH1), 0, // argsSize
		byte(PUSH1), 0, // argsOffset
		byte(PUSH1) + 19, // PUSH20
	}
	code = append(code, callee.Bytes()...)
	code = append(code, byte(PUSH1), 0, byte(DELEGATECALL), byte(STOP))

	frame := NewFrame(caller, common.Address{}, common.Address{}, word.Zero(), nil, code, false, 0)
	_, err := in.Run(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	top, _ := frame.Stack.Peek(0)
	if top != word.One() {
		t.Fatalf("DELEGATECALL should report success, got %s", top)
	}
	want := common.BytesToHash([]byte{42})
	if !bytes.Equal(frame.ReturnData, want.Bytes()) {
		t.Fatalf("DELEGATECALL should read the caller's storage, got return data %x", frame.ReturnData)
	}
}

func TestStaticCallSstoreViolationReportsFailureToCaller(t *testing.T) {
	// End-to-end scenario 5: under STATICCALL, SSTORE triggers a write
	// violation inside the sub-frame and the parent's CALL-family op
	// sees that as failure (pushes 0), not a propagated error.
	s := state.New(nil)
	callee := common.HexToAddress("0xcc")
	s.SetCode(callee, []byte{byte(PUSH1), 1, byte(PUSH1), 0, byte(SSTORE)})

	in := NewInterpreter(s, nil)
	code := []byte{
		byte(PUSH1), 0, // retSize
		byte(PUSH1), 0, // retOffset
		byte(PUSH1), 0, // argsSize
		byte(PUSH1), 0, // argsOffset
		byte(PUSH1) + 19, // PUSH20
	}
	code = append(code, callee.Bytes()...)
	code = append(code, byte(PUSH1), 0, byte(STATICCALL), byte(STOP))

	frame := NewFrame(common.HexToAddress("0xaa"), common.Address{}, common.Address{}, word.Zero(), nil, code, false, 0)
	_, err := in.Run(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	top, _ := frame.Stack.Peek(0)
	if top != word.Zero() {
		t.Fatalf("STATICCALL over a write violation should report failure, got %s", top)
	}
}

// buildCreateCaller returns bytecode that CODECOPYs initCode into memory
// at offset 0 and runs the given createOp (CREATE or CREATE2, the latter
// with a zero salt) over it. CREATE/CREATE2 pop value first (top), then
// offset, then size, then (CREATE2 only) salt last (bottom), so operands
// are pushed size-first, value-last to land in that order.
func buildCreateCaller(createOp OpCode, initCode []byte) []byte {
	// Instructions before the embedded initCode bytes: three PUSH1s and
	// a CODECOPY (2+2+2+1 = 7 bytes), then [PUSH1 salt for CREATE2],
	// PUSH1 size, PUSH1 offset, PUSH1 value, createOp, STOP.
	codeOffset := 7
	codeOffset += 6 // size, offset, value pushes
	if createOp == CREATE2 {
		codeOffset += 2 // salt push
	}
	codeOffset += 2 // createOp + STOP

	code := []byte{
		byte(PUSH1), byte(len(initCode)), // size for CODECOPY
		byte(PUSH1), byte(codeOffset), // codeOffset
		byte(PUSH1), 0, // memOffset
		byte(CODECOPY),
	}
	if createOp == CREATE2 {
		code = append(code, byte(PUSH1), 0) // salt
	}
	code = append(code,
		byte(PUSH1), byte(len(initCode)), // size
		byte(PUSH1), 0, // offset
		byte(PUSH1), 0, // value
	)
	code = append(code, byte(createOp), byte(STOP))
	code = append(code, initCode...)
	return code
}

func TestCreateDeploysCodeAndIncrementsNonce(t *testing.T) {
	s := state.New(nil)
	creator := common.HexToAddress("0xaa")
	s.SetBalance(creator, big.NewInt(100))

	// Init code: PUSH1 1; PUSH1 0; MSTORE8; PUSH1 1; PUSH1 0; RETURN
	// (deploys a single-byte runtime of 0x01).
	initCode := []byte{
		byte(PUSH1), 1, byte(PUSH1), 0, byte(MSTORE8),
		byte(PUSH1), 1, byte(PUSH1), 0, byte(RETURN),
	}
	code := buildCreateCaller(CREATE, initCode)

	in := NewInterpreter(s, nil)
	frame := NewFrame(creator, common.Address{}, common.Address{}, word.Zero(), nil, code, false, 0)
	nonceBefore := s.GetNonce(creator)
	_, err := in.Run(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.GetNonce(creator) != nonceBefore+1 {
		t.Fatalf("CREATE should increment creator nonce, got %d want %d", s.GetNonce(creator), nonceBefore+1)
	}
	top, _ := frame.Stack.Peek(0)
	addrBytes := top.Bytes20()
	deployed := common.BytesToAddress(addrBytes[:])
	if deployed == (common.Address{}) {
		t.Fatalf("CREATE should push a non-zero child address")
	}
	if !bytes.Equal(s.GetCode(deployed), []byte{0x01}) {
		t.Fatalf("deployed code got %x want 01", s.GetCode(deployed))
	}
}

func TestCreate2IncrementsNonceTooWithoutUsingItForAddress(t *testing.T) {
	s := state.New(nil)
	creator := common.HexToAddress("0xaa")

	initCode := []byte{byte(PUSH1), 0, byte(PUSH1), 0, byte(RETURN)}
	code := buildCreateCaller(CREATE2, initCode)

	in := NewInterpreter(s, nil)
	frame := NewFrame(creator, common.Address{}, common.Address{}, word.Zero(), nil, code, false, 0)
	nonceBefore := s.GetNonce(creator)
	_, err := in.Run(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.GetNonce(creator) != nonceBefore+1 {
		t.Fatalf("CREATE2 should increment creator nonce, got %d want %d", s.GetNonce(creator), nonceBefore+1)
	}
	top, _ := frame.Stack.Peek(0)
	addrBytes := top.Bytes20()
	want := crypto.CreateAddress2(creator, [32]byte{}, crypto.Keccak256(initCode))
	if got := common.BytesToAddress(addrBytes[:]); got != want {
		t.Fatalf("CREATE2 address got %s want %s", got.Hex(), want.Hex())
	}
}

func TestCallTransfersValueAndReturnsSuccess(t *testing.T) {
	s := state.New(nil)
	callee := common.HexToAddress("0xcc")
	s.SetCode(callee, []byte{byte(STOP)})
	caller := common.HexToAddress("0xaa")
	s.SetBalance(caller, big.NewInt(100))

	in := NewInterpreter(s, nil)
	code := []byte{
		byte(PUSH1), 0, // retSize
		byte(PUSH1), 0, // retOffset
		byte(PUSH1), 0, // argsSize
		byte(PUSH1), 0, // argsOffset
		byte(PUSH1), 10, // value
		byte(PUSH1) + 19, // PUSH20
	}
	code = append(code, callee.Bytes()...)
	code = append(code, byte(PUSH1), 0, byte(CALL), byte(STOP))

	frame := NewFrame(caller, common.Address{}, common.Address{}, word.Zero(), nil, code, false, 0)
	_, err := in.Run(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	top, _ := frame.Stack.Peek(0)
	if top != word.One() {
		t.Fatalf("CALL should report success, got %s", top)
	}
	if s.GetBalance(callee).Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("callee balance got %s want 10", s.GetBalance(callee))
	}
}
