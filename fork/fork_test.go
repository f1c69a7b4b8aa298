package fork

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func rpcHandler(t *testing.T, responses map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		result, ok := responses[req.Method]
		if !ok {
			t.Fatalf("unexpected method %q", req.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":1,"jsonrpc":"2.0","result":` + result + `}`))
	}
}

func TestFetchAccount(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, map[string]string{
		"eth_getBalance":           `"0x2a"`,
		"eth_getTransactionCount":  `"0x7"`,
		"eth_getCode":              `"0x6001600101"`,
	}))
	defer srv.Close()

	c := NewRPCClient(srv.URL)
	acc, err := c.FetchAccount(common.HexToAddress("0x1"))
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance.Uint64() != 42 {
		t.Fatalf("balance got %d want 42", acc.Balance.Uint64())
	}
	if acc.Nonce != 7 {
		t.Fatalf("nonce got %d want 7", acc.Nonce)
	}
	if len(acc.Code) != 5 {
		t.Fatalf("code length got %d want 5", len(acc.Code))
	}
}

func TestFetchStorage(t *testing.T) {
	want := common.HexToHash("0xdeadbeef")
	srv := httptest.NewServer(rpcHandler(t, map[string]string{
		"eth_getStorageAt": `"` + want.Hex() + `"`,
	}))
	defer srv.Close()

	c := NewRPCClient(srv.URL)
	got, err := c.FetchStorage(common.HexToAddress("0x1"), common.HexToHash("0x2"))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestFetchBlockContext(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, map[string]string{
		"eth_getBlockByNumber": `{
			"number": "0x64",
			"timestamp": "0x5f5e100",
			"miner": "0x000000000000000000000000000000000000aa",
			"baseFeePerGas": "0x3b9aca00",
			"mixHash": "0x0000000000000000000000000000000000000000000000000000000000ff",
			"gasLimit": "0x1c9c380"
		}`,
	}))
	defer srv.Close()

	c := NewRPCClient(srv.URL)
	bc, err := c.FetchBlockContext()
	if err != nil {
		t.Fatal(err)
	}
	if bc.Number.Uint64() != 100 {
		t.Fatalf("number got %d want 100", bc.Number.Uint64())
	}
	if bc.Coinbase != common.HexToAddress("0xaa") {
		t.Fatalf("coinbase got %s", bc.Coinbase.Hex())
	}
}

func TestRPCErrorWraps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":1,"jsonrpc":"2.0","error":{"code":-32000,"message":"boom"}}`))
	}))
	defer srv.Close()

	c := NewRPCClient(srv.URL)
	_, err := c.FetchStorage(common.HexToAddress("0x1"), common.HexToHash("0x2"))
	if err == nil {
		t.Fatal("expected error")
	}
	var fe *Error
	if !asError(err, &fe) {
		t.Fatalf("expected *fork.Error, got %T", err)
	}
	if fe.Op != "eth_getStorageAt" {
		t.Fatalf("op got %q", fe.Op)
	}
}

func asError(err error, target **Error) bool {
	fe, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = fe
	return true
}
