// Package state implements the EVM's world state: per-address balance,
// nonce, code, and storage, with the copy-on-write snapshot/revert
// behavior nested CALL/CREATE frames need. There is no go-ethereum
// core/state.StateDB here — that type is trie- and persistence-bound,
// out of scope per spec. Instead this is a small stack of in-memory
// overlays, consulting a fork.Provider as a read-through cache on a
// local miss, grounded in shape on the teacher's addressCodeSet /
// addressBalanceSet / addressStorageSet maps in vm.EVMInterpreter.
package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/evmlab/evmsim/fork"
)

// Account is the mutable state of one address, visible to a single
// overlay layer.
type Account struct {
	Balance *big.Int
	Nonce   uint64
	Code    []byte
	Exists  bool
	Storage map[common.Hash]common.Hash
}

func newAccount() *Account {
	return &Account{Balance: new(big.Int), Storage: make(map[common.Hash]common.Hash)}
}

func (a *Account) clone() *Account {
	c := &Account{
		Balance: new(big.Int).Set(a.Balance),
		Nonce:   a.Nonce,
		Code:    a.Code, // immutable once set, safe to share
		Exists:  a.Exists,
		Storage: make(map[common.Hash]common.Hash, len(a.Storage)),
	}
	for k, v := range a.Storage {
		c.Storage[k] = v
	}
	return c
}

// overlay is one layer of the copy-on-write stack. A key absent from
// accounts means "unmodified at this layer, look further down."
type overlay struct {
	accounts map[common.Address]*Account
}

func newOverlay() *overlay {
	return &overlay{accounts: make(map[common.Address]*Account)}
}

// State is a stack of overlays over an optional remote fork.Provider.
// Layer 0 is the root; Snapshot pushes a new layer, Commit folds the
// top layer into the one beneath it, Revert discards it.
type State struct {
	provider fork.Provider
	layers   []*overlay

	// fetched memoizes addresses and slots already pulled from the
	// fork, so a given piece of remote state is fetched at most once.
	fetchedAccount map[common.Address]bool
	fetchedStorage map[common.Address]map[common.Hash]bool

	// forkErr is sticky: the first transport failure from the provider
	// is latched here and never cleared, since the Runner checks it
	// after every step and a fork error aborts the whole call tree
	// (spec.md §7: the one error kind that propagates through every
	// frame).
	forkErr error
}

// ForkErr returns the first fork transport failure observed, if any.
func (s *State) ForkErr() error {
	return s.forkErr
}

// New returns a State with an empty root layer. provider may be nil,
// in which case any address not explicitly set behaves as an empty,
// zero-balance account (standalone mode, no fork).
func New(provider fork.Provider) *State {
	return &State{
		provider:       provider,
		layers:         []*overlay{newOverlay()},
		fetchedAccount: make(map[common.Address]bool),
		fetchedStorage: make(map[common.Address]map[common.Hash]bool),
	}
}

// Depth returns the number of layers currently on the stack, including
// the root. Depth() == 1 means no open snapshot.
func (s *State) Depth() int {
	return len(s.layers)
}

// Snapshot pushes a new overlay and returns an id Revert can return to.
func (s *State) Snapshot() int {
	s.layers = append(s.layers, newOverlay())
	return len(s.layers) - 1
}

// Revert discards every layer from id upward, undoing all writes made
// since the matching Snapshot.
func (s *State) Revert(id int) {
	if id <= 0 || id >= len(s.layers) {
		return
	}
	s.layers = s.layers[:id]
}

// Commit folds the top layer's writes into the layer beneath it and
// pops the top, keeping the writes but discarding the snapshot
// boundary. Calling Commit with only the root layer present is a no-op.
func (s *State) Commit() {
	if len(s.layers) < 2 {
		return
	}
	top := s.layers[len(s.layers)-1]
	below := s.layers[len(s.layers)-2]
	for addr, acc := range top.accounts {
		below.accounts[addr] = acc
	}
	s.layers = s.layers[:len(s.layers)-1]
}

// account returns the account visible at the top of the stack,
// searching down through the overlays, then falling through to the
// fork, memoizing the fetched copy into the root layer. The returned
// pointer belongs to whichever layer holds it; callers must dirty() it
// via the top layer before mutating.
func (s *State) account(addr common.Address) *Account {
	for i := len(s.layers) - 1; i >= 0; i-- {
		if acc, ok := s.layers[i].accounts[addr]; ok {
			return acc
		}
	}

	root := s.layers[0]
	if s.provider != nil && !s.fetchedAccount[addr] {
		s.fetchedAccount[addr] = true
		remote, err := s.provider.FetchAccount(addr)
		if err != nil {
			if s.forkErr == nil {
				s.forkErr = err
			}
		} else if remote != nil {
			acc := newAccount()
			acc.Exists = true
			if remote.Balance != nil {
				acc.Balance = new(big.Int).Set(remote.Balance)
			}
			acc.Nonce = remote.Nonce
			acc.Code = remote.Code
			root.accounts[addr] = acc
			return acc
		}
	}

	acc := newAccount()
	root.accounts[addr] = acc
	return acc
}

// dirty returns a mutable copy of addr's account installed in the top
// layer, cloning down from whatever layer currently holds it.
func (s *State) dirty(addr common.Address) *Account {
	top := s.layers[len(s.layers)-1]
	if acc, ok := top.accounts[addr]; ok {
		return acc
	}
	acc := s.account(addr).clone()
	top.accounts[addr] = acc
	return acc
}

// GetBalance returns addr's balance, zero if the account does not exist.
func (s *State) GetBalance(addr common.Address) *big.Int {
	return new(big.Int).Set(s.account(addr).Balance)
}

// SetBalance sets addr's balance.
func (s *State) SetBalance(addr common.Address, amount *big.Int) {
	acc := s.dirty(addr)
	acc.Balance = new(big.Int).Set(amount)
	acc.Exists = true
}

// GetNonce returns addr's nonce.
func (s *State) GetNonce(addr common.Address) uint64 {
	return s.account(addr).Nonce
}

// SetNonce sets addr's nonce.
func (s *State) SetNonce(addr common.Address, nonce uint64) {
	acc := s.dirty(addr)
	acc.Nonce = nonce
	acc.Exists = true
}

// GetCode returns addr's code, nil if none.
func (s *State) GetCode(addr common.Address) []byte {
	return s.account(addr).Code
}

// SetCode installs code at addr.
func (s *State) SetCode(addr common.Address, code []byte) {
	acc := s.dirty(addr)
	acc.Code = code
	acc.Exists = true
}

// Exists reports whether addr has ever been touched, either locally or
// on the fork.
func (s *State) Exists(addr common.Address) bool {
	return s.account(addr).Exists
}

// GetStorage returns the value at key in addr's storage, consulting
// the fork on a local miss and memoizing the result.
func (s *State) GetStorage(addr common.Address, key common.Hash) common.Hash {
	for i := len(s.layers) - 1; i >= 0; i-- {
		if acc, ok := s.layers[i].accounts[addr]; ok {
			if v, ok := acc.Storage[key]; ok {
				return v
			}
		}
	}

	if s.provider != nil {
		if s.fetchedStorage[addr] == nil {
			s.fetchedStorage[addr] = make(map[common.Hash]bool)
		}
		if !s.fetchedStorage[addr][key] {
			s.fetchedStorage[addr][key] = true
			v, err := s.provider.FetchStorage(addr, key)
			if err != nil {
				if s.forkErr == nil {
					s.forkErr = err
				}
			} else {
				root := s.layers[0]
				acc, ok := root.accounts[addr]
				if !ok {
					acc = s.account(addr)
				}
				acc.Storage[key] = v
				return v
			}
		}
	}
	return common.Hash{}
}

// SetStorage sets the value at key in addr's storage.
func (s *State) SetStorage(addr common.Address, key, value common.Hash) {
	acc := s.dirty(addr)
	acc.Storage[key] = value
}

// Transfer moves amount from from's balance to to's, returning false
// (without mutating anything) if from has insufficient balance.
func (s *State) Transfer(from, to common.Address, amount *big.Int) bool {
	if amount.Sign() == 0 {
		s.dirty(to).Exists = true
		return true
	}
	fromAcc := s.dirty(from)
	if fromAcc.Balance.Cmp(amount) < 0 {
		return false
	}
	toAcc := s.dirty(to)
	fromAcc.Balance.Sub(fromAcc.Balance, amount)
	toAcc.Balance.Add(toAcc.Balance, amount)
	toAcc.Exists = true
	return true
}

// Selfdestruct clears addr's balance and code, per the Runner's
// SELFDESTRUCT handling (no beneficiary accounting here; the opcode
// handler performs the transfer via Transfer before calling this).
func (s *State) Selfdestruct(addr common.Address) {
	acc := s.dirty(addr)
	acc.Balance = new(big.Int)
	acc.Code = nil
	acc.Storage = make(map[common.Hash]common.Hash)
}

// BlockContext fetches the fork's current block context, or a zeroed
// one in standalone mode.
func (s *State) BlockContext() (*fork.BlockContext, error) {
	if s.provider == nil {
		return &fork.BlockContext{Number: new(big.Int), BaseFee: new(big.Int)}, nil
	}
	return s.provider.FetchBlockContext()
}
