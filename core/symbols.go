package core

import (
	"fmt"
	"strings"
	"sync"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SYMBOLS - Pair → mint metadata
// ═══════════════════════════════════════════════════════════════════════════════

const (
	SOLMint  = "So11111111111111111111111111111111111111112"
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMint = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// Pair maps a display pair to the mints swapped for it
type Pair struct {
	Name      string // e.g. "SOL/USDC"
	BaseMint  string
	QuoteMint string
}

// SymbolManager manages pair metadata
type SymbolManager struct {
	mu    sync.RWMutex
	pairs map[string]*Pair
}

// NewSymbolManager creates a symbol manager preloaded with the common pairs
func NewSymbolManager() *SymbolManager {
	sm := &SymbolManager{
		pairs: make(map[string]*Pair),
	}
	sm.Add(&Pair{Name: "SOL/USDC", BaseMint: SOLMint, QuoteMint: USDCMint})
	sm.Add(&Pair{Name: "SOL/USDT", BaseMint: SOLMint, QuoteMint: USDTMint})
	return sm
}

// Add adds or updates a pair
func (sm *SymbolManager) Add(p *Pair) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.pairs[strings.ToUpper(p.Name)] = p
}

// Get retrieves a pair by name
func (sm *SymbolManager) Get(name string) (*Pair, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	p, ok := sm.pairs[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("unknown pair %q", name)
	}
	return p, nil
}
