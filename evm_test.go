package evm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestInterpretAddStop(t *testing.T) {
	code := []byte{0x60, 1, 0x60, 2, 0x01, 0x00} // PUSH1 1; PUSH1 2; ADD; STOP
	e, err := New(Config{Caller: common.HexToAddress("0x1")}, code)
	if err != nil {
		t.Fatal(err)
	}
	result, err := e.Interpret(0, false)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Fatalf("expected success")
	}
	if len(result.Output) != 0 {
		t.Fatalf("expected empty output")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Caller: common.HexToAddress("0xabc")}
	cfg.SetDefaults()
	if cfg.Origin != cfg.Caller {
		t.Fatalf("origin should default to caller")
	}
	if cfg.Address != placeholderAddress {
		t.Fatalf("address should default to placeholder")
	}
	if cfg.Value.Sign() != 0 {
		t.Fatalf("value should default to zero")
	}
}

func TestInterpretRevertIsUnsuccessful(t *testing.T) {
	code := []byte{0x60, 1, 0x60, 0, 0xfd} // PUSH1 1; PUSH1 0; REVERT
	e, err := New(Config{Caller: common.HexToAddress("0x1")}, code)
	if err != nil {
		t.Fatal(err)
	}
	result, err := e.Interpret(0, false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Success {
		t.Fatalf("expected failure")
	}
}
