package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/solbotx/exec"
	"github.com/web3guy0/solbotx/feeds"
	"github.com/web3guy0/solbotx/internal/apperr"
	"github.com/web3guy0/solbotx/risk"
	"github.com/web3guy0/solbotx/strategy"
	"github.com/web3guy0/solbotx/types"
	"github.com/web3guy0/solbotx/wallet"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ENGINE - Central orchestrator
// ═══════════════════════════════════════════════════════════════════════════════
//
// Flow per tick:
//   Simulator / Strategy → Venue → History → Position → Stop-loss sweep
//
// One goroutine runs ticks; ticks never overlap. All state is guarded by mu so
// queries can run concurrently with the loop.
//
// ═══════════════════════════════════════════════════════════════════════════════

// MaxHistory is the number of trades kept, newest first
const MaxHistory = 10

const (
	DefaultTickInterval     = 10 * time.Second
	DefaultStrategyInterval = 30 * time.Second
)

// StrategyFactory builds the strategy for a run
type StrategyFactory func(strategy.Params) (strategy.Strategy, error)

// EngineConfig wires the engine's collaborators. Only Simulator is required
// for test mode; live mode also needs Guard and Wallet.
type EngineConfig struct {
	Simulator feeds.Simulator
	Guard     *exec.Guard
	Wallet    wallet.Provider
	Errors    *apperr.Logger
	Breaker   *risk.CircuitBreaker
	Symbols   *SymbolManager
	Strategy  StrategyFactory

	StopLoss         *types.StopLossConfig // nil: DefaultStopLossConfig
	TickInterval     time.Duration
	StrategyInterval time.Duration
	SlippagePct      decimal.Decimal
	SlippageExits    bool

	Now   func() time.Time
	NewID func() string
}

// RunParams is what a Start command carries
type RunParams struct {
	Strategy strategy.Params
	TestMode bool
}

// run is one start → stop cycle of the loop
type run struct {
	params   RunParams
	strat    strategy.Strategy
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

type Engine struct {
	mu sync.RWMutex

	// Components
	sim      feeds.Simulator
	guard    *exec.Guard
	wallet   wallet.Provider
	errLog   *apperr.Logger
	breaker  *risk.CircuitBreaker
	symbols  *SymbolManager
	factory  StrategyFactory
	router   *Router
	now      func() time.Time
	newID    func() string
	slippage decimal.Decimal
	slipExit bool

	tickInterval     time.Duration
	strategyInterval time.Duration

	// State
	positions   []*types.Position
	history     []types.Trade
	prices      *feeds.PriceSeries
	stopLoss    types.StopLossConfig
	running     bool
	current     *run
	lastTrigger string
	lastError   *apperr.Error

	// Stats
	totalTrades int
	winCount    int
	lossCount   int
	totalPnL    decimal.Decimal
}

// NewEngine creates a new trading engine
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Simulator == nil {
		cfg.Simulator = feeds.NewRandomSimulator(feeds.DefaultSimulatorConfig())
	}
	if cfg.Errors == nil {
		cfg.Errors = apperr.NewLogger(apperr.DefaultCapacity)
	}
	if cfg.Symbols == nil {
		cfg.Symbols = NewSymbolManager()
	}
	if cfg.Strategy == nil {
		cfg.Strategy = func(p strategy.Params) (strategy.Strategy, error) { return strategy.New(p) }
	}
	stopLoss := types.DefaultStopLossConfig()
	if cfg.StopLoss != nil {
		stopLoss.Enabled = cfg.StopLoss.Enabled
		if !cfg.StopLoss.Percentage.IsZero() {
			stopLoss.Percentage = cfg.StopLoss.Percentage
		}
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.StrategyInterval <= 0 {
		cfg.StrategyInterval = DefaultStrategyInterval
	}
	if cfg.SlippagePct.IsZero() {
		cfg.SlippagePct = decimal.NewFromInt(1)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	return &Engine{
		sim:              cfg.Simulator,
		guard:            cfg.Guard,
		wallet:           cfg.Wallet,
		errLog:           cfg.Errors,
		breaker:          cfg.Breaker,
		symbols:          cfg.Symbols,
		factory:          cfg.Strategy,
		router:           NewRouter(),
		now:              cfg.Now,
		newID:            cfg.NewID,
		slippage:         cfg.SlippagePct,
		slipExit:         cfg.SlippageExits,
		tickInterval:     cfg.TickInterval,
		strategyInterval: cfg.StrategyInterval,
		stopLoss:         stopLoss,
		prices:           feeds.NewPriceSeries(feeds.DefaultSeriesCapacity),
		totalPnL:         decimal.Zero,
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

// Start begins the trading loop. Live mode requires a connected wallet and a
// venue; failures are recorded as the last error and returned.
func (e *Engine) Start(ctx context.Context, params RunParams) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}

	strat, err := e.buildStrategy(params)
	if err != nil {
		e.lastError = e.errLog.Handle(apperr.KindStrategy, err.Error(), params.Strategy)
		e.mu.Unlock()
		return e.lastError
	}

	if !params.TestMode {
		if err := e.checkLive(params.Strategy.Pair); err != nil {
			e.lastError = err
			e.errLog.Log(err)
			e.mu.Unlock()
			return err
		}
	}

	interval := e.tickInterval
	if !params.TestMode {
		interval = e.strategyInterval
	}

	r := &run{
		params:   params,
		strat:    strat,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	e.current = r
	e.running = true
	e.lastTrigger = ""
	e.lastError = nil
	e.prices.Reset()
	e.mu.Unlock()

	go e.mainLoop(context.WithoutCancel(ctx), r)

	log.Info().
		Str("strategy", strat.Name()).
		Str("pair", params.Strategy.Pair).
		Bool("test_mode", params.TestMode).
		Dur("interval", interval).
		Msg("⚡ Engine started")
	e.publish(Event{Type: EventState, Running: true})
	return nil
}

func (e *Engine) buildStrategy(params RunParams) (strat strategy.Strategy, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy construction panicked: %v", r)
		}
	}()
	return e.factory(params.Strategy)
}

func (e *Engine) checkLive(pair string) *apperr.Error {
	if e.wallet == nil || !e.wallet.IsConnected() {
		return apperr.Wallet("Wallet not connected", nil)
	}
	if e.guard == nil {
		return apperr.API("no execution venue configured", nil)
	}
	if _, err := e.symbols.Get(pair); err != nil {
		return apperr.Wrap(apperr.KindStrategy, "unsupported trading pair", err)
	}
	return nil
}

// Stop halts the loop and waits for an in-flight tick to finish
func (e *Engine) Stop() {
	e.mu.Lock()
	r := e.current
	if !e.running || r == nil {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(r.stop)
	e.mu.Unlock()

	<-r.done

	log.Info().Msg("Engine stopped")
	e.publish(Event{Type: EventState, Running: false})
}

// SetStopLossConfig replaces the stop-loss policy after validating it
func (e *Engine) SetStopLossConfig(cfg types.StopLossConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.stopLoss = cfg
	e.mu.Unlock()

	log.Info().
		Bool("enabled", cfg.Enabled).
		Str("pct", cfg.Percentage.StringFixed(2)).
		Msg("🛡️ Stop loss updated")
	return nil
}

// ToggleStopLoss flips the enabled flag and returns the new value
func (e *Engine) ToggleStopLoss() bool {
	e.mu.Lock()
	e.stopLoss.Enabled = !e.stopLoss.Enabled
	enabled := e.stopLoss.Enabled
	e.mu.Unlock()

	log.Info().Bool("enabled", enabled).Msg("🛡️ Stop loss toggled")
	return enabled
}

// ═══════════════════════════════════════════════════════════════════════════════
// LOOP
// ═══════════════════════════════════════════════════════════════════════════════

func (e *Engine) mainLoop(ctx context.Context, r *run) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			if !e.tick(ctx, r) {
				e.halt(r)
				return
			}
		}
	}
}

// halt is the loop stopping itself
func (e *Engine) halt(r *run) {
	e.mu.Lock()
	stopped := false
	if e.running && e.current == r {
		e.running = false
		close(r.stop)
		stopped = true
	}
	e.mu.Unlock()

	if stopped {
		log.Warn().Msg("Engine halted")
		e.publish(Event{Type: EventState, Running: false})
	}
}

// tick runs one unit of work and reports whether the loop should continue
func (e *Engine) tick(ctx context.Context, r *run) bool {
	e.mu.RLock()
	active := e.running && e.current == r
	e.mu.RUnlock()
	if !active {
		return false
	}

	var trade types.Trade
	if r.params.TestMode {
		trade = e.sim.NextSyntheticTrade(feeds.TradeRequest{
			Pair:      r.params.Strategy.Pair,
			Strategy:  r.strat.Name(),
			MaxAmount: r.params.Strategy.Amount,
			Timestamp: e.now(),
		})
	} else {
		var err *apperr.Error
		trade, err = e.liveTrade(ctx, r)
		if err != nil {
			e.mu.Lock()
			e.lastError = err
			e.mu.Unlock()
			e.errLog.Log(err)
			e.publish(Event{Type: EventError, Message: err.Message})
			return false
		}
	}

	e.apply(trade)
	return true
}

// liveTrade asks the strategy for a direction and routes it through the venue.
// A venue failure is a failed trade; only strategy failures return an error.
func (e *Engine) liveTrade(ctx context.Context, r *run) (types.Trade, *apperr.Error) {
	action, err := decide(ctx, r.strat)
	if err != nil {
		return types.Trade{}, apperr.Wrap(apperr.KindStrategy, "strategy execution failed", err)
	}
	if !action.Valid() {
		return types.Trade{}, apperr.Strategy(fmt.Sprintf("strategy returned invalid action %q", action), nil)
	}

	pair, err := e.symbols.Get(r.params.Strategy.Pair)
	if err != nil {
		return types.Trade{}, apperr.Wrap(apperr.KindStrategy, "unsupported trading pair", err)
	}

	req := exec.QuoteRequest{
		InputMint:   pair.QuoteMint,
		OutputMint:  pair.BaseMint,
		Amount:      r.params.Strategy.Amount,
		SlippagePct: e.slippage,
	}
	if action == types.Sell {
		req.InputMint, req.OutputMint = pair.BaseMint, pair.QuoteMint
	}

	q, res := e.guard.Swap(ctx, req)

	trade := types.Trade{
		Timestamp: e.now(),
		Pair:      pair.Name,
		Action:    action,
		Amount:    r.params.Strategy.Amount,
		Strategy:  r.strat.Name(),
		Success:   res.Success,
		Kind:      types.KindOpen,
		Signature: res.Signature,
	}
	// Price is quote per base asset. A buy spends Amount of the quote mint and
	// the position holds the base received; a sell spends Amount of base.
	// The mock venue fills at a fixed 1.02 ratio, so live prices are synthetic.
	if res.Success && q.InAmount.IsPositive() && res.OutputAmount.IsPositive() {
		if action == types.Buy {
			trade.Price = q.InAmount.Div(res.OutputAmount).Round(2)
			trade.Amount = res.OutputAmount
		} else {
			trade.Price = res.OutputAmount.Div(q.InAmount).Round(2)
		}
	}
	if !trade.Price.IsPositive() {
		trade.Success = false
	}

	if !trade.Success {
		e.errLog.Handle(apperr.KindTransaction, "Transaction failed", map[string]string{
			"pair":   pair.Name,
			"action": string(action),
			"error":  res.Error,
		})
	}
	return trade, nil
}

func decide(ctx context.Context, s strategy.Strategy) (action types.Action, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panicked: %v", r)
		}
	}()
	return s.Decide(ctx)
}

// apply records trade, opens a position on success and sweeps stop losses
func (e *Engine) apply(trade types.Trade) {
	var events []Event

	e.mu.Lock()
	e.record(trade)
	events = append(events, Event{Type: EventTrade, Trade: &trade})

	if trade.Success {
		e.prices.Update(trade.Price)
		if pos := e.open(trade); pos != nil {
			events = append(events, Event{Type: EventPositionOpened, Position: pos})
		}
	}

	events = append(events, e.sweep()...)
	e.mu.Unlock()

	for _, ev := range events {
		e.publish(ev)
	}
}

func (e *Engine) record(t types.Trade) {
	e.history = append([]types.Trade{t}, e.history...)
	if len(e.history) > MaxHistory {
		e.history = e.history[:MaxHistory]
	}
	if t.Success {
		e.totalTrades++
	}
}

func (e *Engine) open(t types.Trade) *types.Position {
	if !e.breaker.Allow() {
		_, _, _, reason := e.breaker.GetStats()
		log.Warn().Str("reason", reason).Msg("🚫 Circuit breaker open, entry skipped")
		return nil
	}

	pos, err := types.NewPosition(e.newID(), t.Pair, t.Action, t.Price, t.Amount, t.Timestamp)
	if err != nil {
		e.errLog.Handle(apperr.KindTransaction, "Invalid trade, no position opened", err.Error())
		return nil
	}
	e.positions = append(e.positions, pos)
	e.breaker.RecordEntry()

	log.Info().
		Str("id", shortID(pos.ID)).
		Str("pair", pos.Pair).
		Str("action", string(pos.Action)).
		Str("entry", pos.EntryPrice.StringFixed(2)).
		Str("amount", pos.Amount.StringFixed(3)).
		Msg("📈 Position opened")
	return pos
}

// sweep closes every position whose mark (or slipped price) crosses its stop
func (e *Engine) sweep() []Event {
	var events []Event
	kept := e.positions[:0]

	for _, pos := range e.positions {
		mark := e.sim.Perturb(pos.EntryPrice)
		if !risk.IsTriggered(pos, mark, e.stopLoss) && e.slipExit {
			mark = e.sim.Slip(pos.EntryPrice)
		}
		if !risk.IsTriggered(pos, mark, e.stopLoss) {
			kept = append(kept, pos)
			continue
		}
		events = append(events, e.close(pos, mark)...)
	}

	for i := len(kept); i < len(e.positions); i++ {
		e.positions[i] = nil
	}
	e.positions = kept
	return events
}

func (e *Engine) close(pos *types.Position, mark decimal.Decimal) []Event {
	exit := types.Trade{
		Timestamp: e.now(),
		Pair:      pos.Pair,
		Action:    pos.Action.Opposite(),
		Amount:    pos.Amount,
		Price:     mark.Round(2),
		Strategy:  types.StopLossStrategy,
		Success:   true,
		Kind:      types.KindClose,
	}
	e.record(exit)
	e.prices.Update(exit.Price)

	pnl := risk.RealizedPnL(pos, exit.Price)
	e.totalPnL = e.totalPnL.Add(pnl)
	if pnl.IsPositive() {
		e.winCount++
	} else {
		e.lossCount++
		e.breaker.RecordStopLoss(pnl.Abs())
	}

	e.lastTrigger = risk.FormatTriggerMessage(pos, mark, e.stopLoss)

	log.Warn().
		Str("id", shortID(pos.ID)).
		Str("entry", pos.EntryPrice.StringFixed(2)).
		Str("exit", exit.Price.StringFixed(2)).
		Str("pnl", pnl.StringFixed(4)).
		Msg("🛑 " + e.lastTrigger)

	return []Event{
		{Type: EventTrade, Trade: &exit},
		{Type: EventPositionClosed, Position: pos, Message: e.lastTrigger},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (e *Engine) publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = e.now()
	}
	if ev.Type != EventState {
		ev.Running = e.IsRunning()
	}
	e.router.Route(ev)
}

// ═══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ═══════════════════════════════════════════════════════════════════════════════

// Subscribe returns a channel of engine events. Slow readers miss events.
func (e *Engine) Subscribe() <-chan Event {
	return e.router.Subscribe()
}

// Unsubscribe stops delivery to sub and closes it
func (e *Engine) Unsubscribe(sub <-chan Event) {
	e.router.Unsubscribe(sub)
}

// IsRunning reports whether the loop is active
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Positions returns open positions in opening order
func (e *Engine) Positions() []types.Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]types.Position, len(e.positions))
	for i, p := range e.positions {
		out[i] = *p
	}
	return out
}

// Trades returns the trade history, newest first
func (e *Engine) Trades() []types.Trade {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]types.Trade, len(e.history))
	copy(out, e.history)
	return out
}

func (e *Engine) StopLossConfig() types.StopLossConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stopLoss
}

// LastTriggerMessage returns the most recent stop-loss message, empty if none
// fired since the last Start
func (e *Engine) LastTriggerMessage() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastTrigger
}

// LastError returns the error that last stopped or refused a run
func (e *Engine) LastError() *apperr.Error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastError
}

// Errors exposes the error log
func (e *Engine) Errors() *apperr.Logger {
	return e.errLog
}

// Indicators evaluates the current run's indicators over observed trade
// prices. Nil when no run has started.
func (e *Engine) Indicators() []strategy.Reading {
	e.mu.RLock()
	r := e.current
	e.mu.RUnlock()
	if r == nil {
		return nil
	}
	return strategy.Evaluate(r.params.Strategy.Indicators, e.prices)
}

// StrategyConfig describes the current run's strategy. Nil before the
// first Start.
func (e *Engine) StrategyConfig() map[string]interface{} {
	e.mu.RLock()
	r := e.current
	e.mu.RUnlock()
	if r == nil {
		return nil
	}
	return r.strat.Config()
}

// BreakerStatus reports the entry gate. configured is false when no circuit
// breaker was wired.
func (e *Engine) BreakerStatus() (configured, tripped bool, consecutiveStops int, reason string) {
	if e.breaker == nil {
		return false, false, 0, ""
	}
	stops, _, tripped, reason := e.breaker.GetStats()
	return true, tripped, stops, reason
}

// ResetBreaker clears a tripped circuit breaker so entries resume
func (e *Engine) ResetBreaker() bool {
	if e.breaker == nil {
		return false
	}
	e.breaker.ForceReset()
	return true
}

// GetStats returns engine statistics
func (e *Engine) GetStats() (trades, wins, losses int, pnl decimal.Decimal) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.totalTrades, e.winCount, e.lossCount, e.totalPnL
}

// GetRecentTrades returns up to limit history entries for display
func (e *Engine) GetRecentTrades(limit int) []types.TradeRecord {
	trades := e.Trades()
	if limit > 0 && len(trades) > limit {
		trades = trades[:limit]
	}

	records := make([]types.TradeRecord, 0, len(trades))
	for _, t := range trades {
		records = append(records, types.TradeRecord{
			Pair:      t.Pair,
			Action:    string(t.Action),
			Kind:      string(t.Kind),
			Strategy:  t.Strategy,
			Price:     t.Price,
			Amount:    t.Amount,
			Success:   t.Success,
			Timestamp: t.Timestamp,
		})
	}
	return records
}

// GetOpenPositions returns open positions with their stop levels for display
func (e *Engine) GetOpenPositions() []types.PositionRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	records := make([]types.PositionRecord, 0, len(e.positions))
	for _, p := range e.positions {
		stop, _ := risk.Threshold(p, e.stopLoss)
		records = append(records, types.PositionRecord{
			ID:            p.ID,
			Pair:          p.Pair,
			Action:        string(p.Action),
			EntryPrice:    p.EntryPrice,
			Amount:        p.Amount,
			StopLoss:      stop,
			PotentialLoss: risk.PotentialLoss(p, e.stopLoss),
			OpenedAt:      p.Timestamp,
		})
	}
	return records
}
