package feeds

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/solbotx/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SIMULATOR - Synthetic trades and mark prices for demo trading
// ═══════════════════════════════════════════════════════════════════════════════
//
// Stands in for a real market feed and execution venue:
//   NextSyntheticTrade → random opening trade
//   Perturb            → mark price used by the stop-loss sweep
//   Slip               → adverse-only price for the optional slippage exit pass
//
// ═══════════════════════════════════════════════════════════════════════════════

// TradeRequest describes what the engine wants synthesized
type TradeRequest struct {
	Pair      string
	Strategy  string
	MaxAmount decimal.Decimal
	Timestamp time.Time
}

// Simulator produces synthetic trades and price moves
type Simulator interface {
	NextSyntheticTrade(req TradeRequest) types.Trade
	Perturb(price decimal.Decimal) decimal.Decimal
	Slip(price decimal.Decimal) decimal.Decimal
}

// SimulatorConfig holds the random generator parameters
type SimulatorConfig struct {
	MinPrice    float64 // lower bound of the synthetic price band
	PriceBand   float64 // width of the band
	SuccessRate float64 // probability a synthetic trade succeeds
	PerturbPct  float64 // mark moves within ±PerturbPct%
	MaxSlipPct  float64 // Slip lowers price by up to MaxSlipPct%
	Seed        int64
}

// DefaultSimulatorConfig returns the demo parameters
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		MinPrice:    50,
		PriceBand:   100,
		SuccessRate: 0.9,
		PerturbPct:  3,
		MaxSlipPct:  5,
		Seed:        time.Now().UnixNano(),
	}
}

// RandomSimulator draws everything from a seeded math/rand source
type RandomSimulator struct {
	mu  sync.Mutex
	cfg SimulatorConfig
	rng *rand.Rand
}

// NewRandomSimulator creates a simulator from cfg
func NewRandomSimulator(cfg SimulatorConfig) *RandomSimulator {
	return &RandomSimulator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

var minAmount = decimal.New(1, -3) // 0.001

// NextSyntheticTrade returns a random opening trade
func (s *RandomSimulator) NextSyntheticTrade(req TradeRequest) types.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()

	action := types.Sell
	if s.rng.Float64() > 0.5 {
		action = types.Buy
	}

	price := decimal.NewFromFloat(s.rng.Float64()*s.cfg.PriceBand + s.cfg.MinPrice).Round(2)

	amount := decimal.NewFromFloat(s.rng.Float64()).Mul(req.MaxAmount).Round(3)
	if amount.LessThan(minAmount) {
		amount = minAmount
	}

	return types.Trade{
		Timestamp: req.Timestamp,
		Pair:      req.Pair,
		Action:    action,
		Amount:    amount,
		Price:     price,
		Strategy:  req.Strategy,
		Success:   s.rng.Float64() < s.cfg.SuccessRate,
		Kind:      types.KindOpen,
	}
}

// Perturb moves price by a uniform ±PerturbPct percent
func (s *RandomSimulator) Perturb(price decimal.Decimal) decimal.Decimal {
	s.mu.Lock()
	move := s.rng.Float64()*2*s.cfg.PerturbPct - s.cfg.PerturbPct
	s.mu.Unlock()

	return price.Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(move).Div(decimal.NewFromInt(100))))
}

// Slip lowers price by a uniform 0..MaxSlipPct percent
func (s *RandomSimulator) Slip(price decimal.Decimal) decimal.Decimal {
	s.mu.Lock()
	drop := s.rng.Float64() * s.cfg.MaxSlipPct
	s.mu.Unlock()

	return price.Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(drop).Div(decimal.NewFromInt(100))))
}

// ═══════════════════════════════════════════════════════════════════════════════
// SCRIPTED SIMULATOR - Deterministic sequences
// ═══════════════════════════════════════════════════════════════════════════════

// ScriptedSimulator replays queued trades and prices in order. Empty price
// queues return the input price unchanged; an empty trade queue returns a
// failed trade so no position opens.
type ScriptedSimulator struct {
	mu     sync.Mutex
	trades []types.Trade
	marks  []decimal.Decimal
	slips  []decimal.Decimal
}

// NewScriptedSimulator creates an empty scripted simulator
func NewScriptedSimulator() *ScriptedSimulator {
	return &ScriptedSimulator{}
}

// QueueTrade appends trades to replay
func (s *ScriptedSimulator) QueueTrade(trades ...types.Trade) *ScriptedSimulator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, trades...)
	return s
}

// QueueMark appends mark prices returned by Perturb
func (s *ScriptedSimulator) QueueMark(prices ...decimal.Decimal) *ScriptedSimulator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks = append(s.marks, prices...)
	return s
}

// QueueSlip appends prices returned by Slip
func (s *ScriptedSimulator) QueueSlip(prices ...decimal.Decimal) *ScriptedSimulator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slips = append(s.slips, prices...)
	return s
}

// NextSyntheticTrade pops the next queued trade, filling in request fields
// the script left empty
func (s *ScriptedSimulator) NextSyntheticTrade(req TradeRequest) types.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.trades) == 0 {
		return types.Trade{Timestamp: req.Timestamp, Pair: req.Pair, Strategy: req.Strategy, Kind: types.KindOpen}
	}

	t := s.trades[0]
	s.trades = s.trades[1:]

	if t.Pair == "" {
		t.Pair = req.Pair
	}
	if t.Strategy == "" {
		t.Strategy = req.Strategy
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = req.Timestamp
	}
	if t.Kind == "" {
		t.Kind = types.KindOpen
	}
	return t
}

// Perturb pops the next queued mark price
func (s *ScriptedSimulator) Perturb(price decimal.Decimal) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pop(&s.marks, price)
}

// Slip pops the next queued slip price
func (s *ScriptedSimulator) Slip(price decimal.Decimal) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pop(&s.slips, price)
}

func pop(queue *[]decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if len(*queue) == 0 {
		return fallback
	}
	v := (*queue)[0]
	*queue = (*queue)[1:]
	return v
}
