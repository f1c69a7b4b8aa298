// Package fork defines the read-only provider the State consults when a
// local account or storage slot is missing, and a JSON-RPC implementation
// of it against a live Ethereum node. Grounded on the teacher's rpc.Client
// (github.com/Gealber/evm-simulator/rpc): a hand-rolled JSON-RPC-over-HTTP
// client, no client library, extended here with the nonce and
// block-context methods spec.md's Fork RPC surface (§6) requires beyond
// what the teacher's client covered (code/storage/balance only).
package fork

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Account is the subset of account state a fork can supply. Nil fields
// mean "the provider has no opinion"; State fills in zero values itself.
type Account struct {
	Balance *big.Int
	Nonce   uint64
	Code    []byte
}

// BlockContext is the block-level environment a fork can supply for the
// block-context opcodes (COINBASE, TIMESTAMP, NUMBER, ...).
type BlockContext struct {
	Number     *big.Int
	Timestamp  uint64
	Coinbase   common.Address
	BaseFee    *big.Int
	PrevRandao common.Hash
	GasLimit   uint64
	ChainID    *big.Int
}

// Provider is a read-only source of remote state, consulted only on a
// local miss. It never sees writes: commits never write through to it.
type Provider interface {
	FetchAccount(addr common.Address) (*Account, error)
	FetchStorage(addr common.Address, key common.Hash) (common.Hash, error)
	FetchBlockContext() (*BlockContext, error)
}

// Error wraps a transport or protocol failure from a Provider. It is the
// one error kind that propagates through every frame up to the embedder,
// since the interpreter cannot make progress without the data it asked
// for (spec.md §7).
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "fork: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
