package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/solbotx/internal/apperr"
)

// ═══════════════════════════════════════════════════════════════════════════════
// WALLET - Key-backed signer and the "may I trade" gate
// ═══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNoKey is returned when connecting a wallet with no key loaded
	ErrNoKey = errors.New("wallet private key not loaded")
	// ErrNoAddress is returned when connecting without a configured address
	ErrNoAddress = errors.New("wallet address not configured")
)

// Provider is the wallet surface the trading loop depends on
type Provider interface {
	Connect(ctx context.Context) (string, error)
	Disconnect()
	IsConnected() bool
}

// Signer signs payloads on behalf of the connected wallet
type Signer interface {
	Sign(payload []byte) (string, error)
	PublicKey() string
}

// KeyWallet holds a secp256k1 key in memory
type KeyWallet struct {
	mu         sync.RWMutex
	privateKey *ecdsa.PrivateKey
	address    string // base58 account address, as configured
	connected  bool
}

// NewKeyWallet loads a hex private key. An empty key yields a wallet that
// refuses to connect. address is never derived from the key: the key's
// secp256k1 address is not a valid account for getBalance.
func NewKeyWallet(privateKeyHex, address string) (*KeyWallet, error) {
	w := &KeyWallet{address: address}

	pkHex := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if pkHex == "" {
		return w, nil
	}

	pk, err := crypto.HexToECDSA(pkHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	w.privateKey = pk

	return w, nil
}

// Connect marks the wallet connected and returns its public key
func (w *KeyWallet) Connect(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperr.Wrap(apperr.KindWallet, "connect cancelled", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.privateKey == nil {
		return "", apperr.Wrap(apperr.KindWallet, "wallet not configured", ErrNoKey)
	}
	if w.address == "" {
		return "", apperr.Wrap(apperr.KindWallet, "wallet not configured", ErrNoAddress)
	}
	w.connected = true

	log.Info().Str("address", w.address).Msg("🔑 Wallet connected")
	return w.address, nil
}

// Disconnect clears the connected flag
func (w *KeyWallet) Disconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.connected {
		w.connected = false
		log.Info().Msg("Wallet disconnected")
	}
}

// IsConnected reports whether trading may use this wallet
func (w *KeyWallet) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// PublicKey returns the configured wallet address, empty if none
func (w *KeyWallet) PublicKey() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.address
}

// Sign hashes payload with Keccak256 and signs it
func (w *KeyWallet) Sign(payload []byte) (string, error) {
	w.mu.RLock()
	pk := w.privateKey
	connected := w.connected
	w.mu.RUnlock()

	if pk == nil {
		return "", ErrNoKey
	}
	if !connected {
		return "", apperr.Wallet("wallet not connected", nil)
	}

	sig, err := crypto.Sign(crypto.Keccak256(payload), pk)
	if err != nil {
		return "", fmt.Errorf("sign payload: %w", err)
	}
	return hexutil.Encode(sig), nil
}

// Verify checks that signature over payload was produced by this wallet
func (w *KeyWallet) Verify(payload []byte, signature string) bool {
	w.mu.RLock()
	pk := w.privateKey
	w.mu.RUnlock()
	if pk == nil {
		return false
	}

	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return false
	}
	pub, err := crypto.SigToPub(crypto.Keccak256(payload), sig)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pub) == crypto.PubkeyToAddress(pk.PublicKey)
}
