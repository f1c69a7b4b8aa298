// Package evm is the embedding API: construct a VM over a single piece
// of bytecode and a shared State, interpret it to completion or one
// opcode at a time, and inspect the machine's registers afterward.
// Grounded on the teacher's runtime.Config/SetDefaults and
// simulator.Simulator/Simulate orchestration layer
// (github.com/Gealber/evm-simulator/vm/runtime, simulator/simulator.go):
// the same "Config with defaults, constructor, single entry-point run
// method" shape, adapted to wrap this module's own vm.Interpreter and
// state.State instead of go-ethereum's core/vm.EVM and core/state.StateDB.
package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/evmlab/evmsim/fork"
	"github.com/evmlab/evmsim/state"
	"github.com/evmlab/evmsim/vm"
	"github.com/evmlab/evmsim/word"
)

// placeholderAddress is the default executing address when the caller
// does not supply one, matching the "fixed placeholder" spec.md calls
// for.
var placeholderAddress = common.HexToAddress("0x00000000000000000000000000000000c0ffee")

// Config holds the constructor parameters spec.md §6 describes.
// Grounded on the teacher's runtime.Config/SetDefaults pair.
type Config struct {
	Caller       common.Address
	Origin       common.Address // defaults to Caller
	Address      common.Address // defaults to placeholderAddress
	Value        *big.Int       // defaults to 0
	Data         []byte
	ForkEndpoint string // empty means standalone, no remote state
	ChainID      uint64 // 0 means default to 1
	MaxSteps     uint64 // 0 means unbounded
}

// SetDefaults fills in the zero-valued optional fields, mirroring the
// teacher's runtime.SetDefaults.
func (c *Config) SetDefaults() {
	if c.Origin == (common.Address{}) {
		c.Origin = c.Caller
	}
	if c.Address == (common.Address{}) {
		c.Address = placeholderAddress
	}
	if c.Value == nil {
		c.Value = new(big.Int)
	}
}

// Log is one emitted LOGn record, surfaced through Result rather than
// through the opcode ABI (spec.md §7: logs are not part of call-status
// propagation).
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// Result is the outcome of one top-level Interpret call.
type Result struct {
	Success bool
	Output  []byte
	Logs    []Log
}

// EVM wraps one interpreter, its shared state, and the code it was
// constructed to run.
type EVM struct {
	cfg   Config
	state *state.State
	inter *vm.Interpreter
	code  []byte
}

// New builds an EVM ready to interpret code. If cfg.ForkEndpoint is
// set, missing state is fetched from it lazily as code touches it.
func New(cfg Config, code []byte) (*EVM, error) {
	cfg.SetDefaults()

	var provider fork.Provider
	if cfg.ForkEndpoint != "" {
		provider = fork.NewRPCClient(cfg.ForkEndpoint)
	}

	s := state.New(provider)
	var block *fork.BlockContext
	if provider != nil {
		bc, err := s.BlockContext()
		if err != nil {
			log.Warn("evmsim: could not fetch block context from fork, using zero values", "err", err)
		} else {
			block = bc
		}
	}

	inter := vm.NewInterpreter(s, block)
	inter.ChainID = cfg.ChainID
	inter.MaxSteps = cfg.MaxSteps

	return &EVM{cfg: cfg, state: s, inter: inter, code: code}, nil
}

// Interpret runs the constructed code to completion. debugLevel > 0
// installs a tracer that logs each executed step; commitFinalState
// controls whether a successful run's state changes are folded into
// the base layer (false reverts the top-level snapshot before
// Interpret returns, so the changes are discarded).
func (e *EVM) Interpret(debugLevel int, commitFinalState bool) (Result, error) {
	if debugLevel > 0 {
		e.inter.Tracer = &stepLogger{}
	}

	frame := vm.NewFrame(e.cfg.Address, e.cfg.Caller, e.cfg.Origin, word.FromBytes(e.cfg.Value.Bytes()), e.cfg.Data, e.code, false, 0)

	snap := e.state.Snapshot()
	output, err := e.inter.Run(frame)

	success := err == nil
	if !success {
		e.state.Revert(snap)
		if fe, ok := err.(*fork.Error); ok {
			return Result{Success: false}, fe
		}
		return Result{Success: false, Output: output}, nil
	}

	if commitFinalState {
		e.state.Commit()
	} else {
		e.state.Revert(snap)
	}

	return Result{Success: true, Output: output, Logs: toAPILogs(e.inter.Logs)}, nil
}

func toAPILogs(records []vm.LogRecord) []Log {
	if len(records) == 0 {
		return nil
	}
	logs := make([]Log, len(records))
	for i, r := range records {
		logs[i] = Log{Address: r.Address, Topics: r.Topics, Data: r.Data}
	}
	return logs
}

// InterpretOpCode executes a single instruction of the constructed
// code for step debugging, returning whether the machine has halted.
func (e *EVM) InterpretOpCode(frame *vm.Frame) (halted bool, output []byte, err error) {
	output, halted, err = e.inter.Step(frame)
	return halted, output, err
}

// NewFrame exposes a fresh top-level frame for step-by-step debugging
// via InterpretOpCode.
func (e *EVM) NewFrame() *vm.Frame {
	return vm.NewFrame(e.cfg.Address, e.cfg.Caller, e.cfg.Origin, word.FromBytes(e.cfg.Value.Bytes()), e.cfg.Data, e.code, false, 0)
}

// State exposes the underlying world state.
func (e *EVM) State() *state.State { return e.state }

type stepLogger struct{}

func (s *stepLogger) OnStep(pc uint64, op vm.OpCode, frame *vm.Frame) {
	log.Debug("evmsim: step", "pc", pc, "op", op.String(), "depth", frame.Depth, "stackLen", frame.Stack.Len())
}
