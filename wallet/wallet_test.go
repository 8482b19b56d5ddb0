package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/solbotx/internal/apperr"
)

const testAddress = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

func testKeyHex(t *testing.T) string {
	t.Helper()
	pk, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return hexutil.Encode(crypto.FromECDSA(pk))
}

func newTestWallet(t *testing.T) *KeyWallet {
	t.Helper()
	w, err := NewKeyWallet(testKeyHex(t), testAddress)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestKeyWalletConnectLifecycle(t *testing.T) {
	w := newTestWallet(t)
	if w.IsConnected() {
		t.Fatal("new wallet must start disconnected")
	}

	addr, err := w.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if addr != testAddress || addr != w.PublicKey() {
		t.Errorf("address = %q, public key = %q", addr, w.PublicKey())
	}
	if !w.IsConnected() {
		t.Error("expected connected")
	}

	w.Disconnect()
	if w.IsConnected() {
		t.Error("expected disconnected")
	}
}

func TestKeyWalletWithoutKey(t *testing.T) {
	w, err := NewKeyWallet("", "")
	if err != nil {
		t.Fatal(err)
	}
	_, err = w.Connect(context.Background())
	if !errors.Is(err, ErrNoKey) || apperr.Classify(err) != apperr.KindWallet {
		t.Fatalf("err = %v", err)
	}
}

func TestKeyWalletNeverDerivesAddress(t *testing.T) {
	w, err := NewKeyWallet(testKeyHex(t), "")
	if err != nil {
		t.Fatal(err)
	}
	if got := w.PublicKey(); got != "" {
		t.Fatalf("PublicKey = %q, want empty without a configured address", got)
	}

	_, err = w.Connect(context.Background())
	if !errors.Is(err, ErrNoAddress) || apperr.Classify(err) != apperr.KindWallet {
		t.Fatalf("err = %v, want ErrNoAddress", err)
	}
	if w.IsConnected() {
		t.Error("connected without an address")
	}
}

func TestNewKeyWalletRejectsGarbage(t *testing.T) {
	if _, err := NewKeyWallet("not-hex", ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestSignAndVerify(t *testing.T) {
	w := newTestWallet(t)
	payload := []byte(`{"pair":"SOL/USDC"}`)

	if _, err := w.Sign(payload); err == nil {
		t.Fatal("signing while disconnected must fail")
	}

	if _, err := w.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	sig, err := w.Sign(payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !w.Verify(payload, sig) {
		t.Error("signature did not verify")
	}
	if w.Verify([]byte("tampered"), sig) {
		t.Error("tampered payload verified")
	}
}

type fakeRPC struct {
	calls    int
	failures int
	lamports uint64
}

func (f *fakeRPC) CallContext(_ context.Context, result interface{}, method string, args ...interface{}) error {
	f.calls++
	if method != "getBalance" || len(args) != 1 {
		return errors.New("unexpected call")
	}
	if f.calls <= f.failures {
		return errors.New("connection reset")
	}
	raw, _ := json.Marshal(map[string]interface{}{"context": map[string]int{"slot": 1}, "value": f.lamports})
	return json.Unmarshal(raw, result)
}

func TestBalanceConvertsLamports(t *testing.T) {
	f := &fakeRPC{failures: 1, lamports: 2_500_000_000}
	c := newBalanceClient(f, 3, time.Millisecond)

	got, err := c.Balance(context.Background(), "addr")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !got.Equal(decimal.NewFromFloat(2.5)) {
		t.Errorf("balance = %s, want 2.5", got)
	}
	if f.calls != 2 {
		t.Errorf("calls = %d, want 2", f.calls)
	}
}

func TestBalanceClassifiesFailure(t *testing.T) {
	f := &fakeRPC{failures: 10}
	c := newBalanceClient(f, 2, time.Millisecond)

	_, err := c.Balance(context.Background(), "addr")
	if apperr.Classify(err) != apperr.KindNetwork {
		t.Fatalf("err = %v, want network error", err)
	}
}
