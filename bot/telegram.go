package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/solbotx/core"
	"github.com/web3guy0/solbotx/internal/apperr"
	"github.com/web3guy0/solbotx/internal/database"
	"github.com/web3guy0/solbotx/strategy"
	"github.com/web3guy0/solbotx/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TELEGRAM BOT - Trading notifications & control
// ═══════════════════════════════════════════════════════════════════════════════
//
// Features:
//   💰 Trade notifications (open / stop-loss close)
//   🛡️ Stop-loss control (/stoploss on|off|<pct>)
//   🎛️ Run control (/run, /halt, /status)
//   ⚠️ Error log (/errors)
//
// ═══════════════════════════════════════════════════════════════════════════════

// Controller is the engine surface the bot drives
type Controller interface {
	Start(ctx context.Context, params core.RunParams) error
	Stop()
	IsRunning() bool
	ToggleStopLoss() bool
	SetStopLossConfig(cfg types.StopLossConfig) error
	StopLossConfig() types.StopLossConfig
	LastTriggerMessage() string
	LastError() *apperr.Error
	GetStats() (trades, wins, losses int, pnl decimal.Decimal)
	GetRecentTrades(limit int) []types.TradeRecord
	GetOpenPositions() []types.PositionRecord
	Indicators() []strategy.Reading
	StrategyConfig() map[string]interface{}
	BreakerStatus() (configured, tripped bool, consecutiveStops int, reason string)
	ResetBreaker() bool
	Errors() *apperr.Logger
	Subscribe() <-chan core.Event
	Unsubscribe(sub <-chan core.Event)
}

// SettingsStore persists control changes
type SettingsStore interface {
	SaveSettings(chatID int64, s database.Settings) error
}

// BalanceFunc returns the wallet balance in SOL
type BalanceFunc func(ctx context.Context) (decimal.Decimal, error)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramBot manages the Telegram interface
type TelegramBot struct {
	mu      sync.RWMutex
	api     *tgbotapi.BotAPI
	out     sender
	chatID  int64
	running bool
	stopCh  chan struct{}

	ctrl    Controller
	params  core.RunParams
	store   SettingsStore
	balance BalanceFunc
}

// NewTelegramBot creates a new Telegram bot
func NewTelegramBot(token string, chatID int64, ctrl Controller, params core.RunParams) (*TelegramBot, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID not set")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	bot := newBot(api, chatID, ctrl, params)
	bot.api = api

	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram bot initialized")
	return bot, nil
}

func newBot(out sender, chatID int64, ctrl Controller, params core.RunParams) *TelegramBot {
	return &TelegramBot{
		out:    out,
		chatID: chatID,
		stopCh: make(chan struct{}),
		ctrl:   ctrl,
		params: params,
	}
}

// SetSettingsStore enables persistence of /stoploss and /run changes
func (b *TelegramBot) SetSettingsStore(store SettingsStore) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.store = store
}

// SetBalanceFunc enables /balance
func (b *TelegramBot) SetBalanceFunc(fn BalanceFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balance = fn
}

// Start begins listening for commands and engine events
func (b *TelegramBot) Start() {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	if b.api != nil {
		go b.commandLoop()
	}
	go b.eventLoop(b.ctrl.Subscribe())
	log.Info().Msg("📱 Telegram bot started")
}

// Stop stops the bot
func (b *TelegramBot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return
	}

	b.running = false
	close(b.stopCh)
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}
	log.Info().Msg("Telegram bot stopped")
}

// ═══════════════════════════════════════════════════════════════════════════════
// NOTIFICATIONS
// ═══════════════════════════════════════════════════════════════════════════════

func (b *TelegramBot) eventLoop(events <-chan core.Event) {
	defer b.ctrl.Unsubscribe(events)

	for {
		select {
		case <-b.stopCh:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b.notify(ev)
		}
	}
}

func (b *TelegramBot) notify(ev core.Event) {
	switch ev.Type {
	case core.EventPositionOpened:
		if ev.Position != nil {
			b.sendMarkdown(formatOpened(ev.Position))
		}
	case core.EventPositionClosed:
		b.sendMarkdown("🛑 *STOP LOSS*\n\n" + ev.Message)
	case core.EventError:
		b.NotifyError(ev.Message)
	case core.EventState:
		if ev.Running {
			b.send("▶️ Trading started")
		} else {
			b.send("⏹️ Trading stopped")
		}
	}
}

// NotifyError sends an error alert
func (b *TelegramBot) NotifyError(message string) {
	b.send("⚠️ ERROR\n\n" + message)
}

// NotifyStartup sends startup notification
func (b *TelegramBot) NotifyStartup() {
	b.sendMarkdown(fmt.Sprintf(`🚀 *SOLBOTX STARTED*
━━━━━━━━━━━━━━━━━━━━

🎯 Strategy: *%s*
📊 Mode: *%s*
🛡️ Stop loss: *%s*

Use /help for commands`,
		b.params.Strategy.Type, modeName(b.params.TestMode), formatStopLoss(b.ctrl.StopLossConfig())))
}

// ═══════════════════════════════════════════════════════════════════════════════
// COMMAND HANDLING
// ═══════════════════════════════════════════════════════════════════════════════

func (b *TelegramBot) commandLoop() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-b.stopCh:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}

			// Only respond to authorized chat
			if update.Message.Chat == nil || update.Message.Chat.ID != b.chatID {
				continue
			}

			b.handleCommand(update.Message)
		}
	}
}

func (b *TelegramBot) handleCommand(msg *tgbotapi.Message) {
	cmd := strings.ToLower(msg.Command())
	args := strings.Fields(msg.CommandArguments())

	switch cmd {
	case "start", "help":
		b.cmdHelp()
	case "run":
		b.cmdRun(args)
	case "halt":
		b.cmdHalt()
	case "status":
		b.cmdStatus()
	case "stats":
		b.cmdStats()
	case "trades":
		b.cmdTrades()
	case "positions":
		b.cmdPositions()
	case "indicators":
		b.cmdIndicators()
	case "breaker":
		b.cmdBreaker(args)
	case "stoploss":
		b.cmdStopLoss(args)
	case "errors":
		b.cmdErrors(args)
	case "balance":
		b.cmdBalance()
	case "ping":
		b.send("🏓 Pong!")
	default:
		b.send("❓ Unknown command. Use /help")
	}
}

func (b *TelegramBot) cmdHelp() {
	msg := `🤖 *SOLBOTX COMMANDS*
━━━━━━━━━━━━━━━━━━━━

▶️ /run [test|live] — Start trading
⏹️ /halt — Stop trading
📊 /status — Bot status
📈 /stats — Trading statistics
📜 /trades — Last 10 trades
💼 /positions — Open positions
📐 /indicators — Indicator readings
🚨 /breaker [reset] — Circuit breaker
🛡️ /stoploss [on|off|<pct>] — Stop loss
⚠️ /errors [clear] — Recent errors
💰 /balance — Wallet balance
🏓 /ping — Test connection`

	b.sendMarkdown(msg)
}

func (b *TelegramBot) cmdRun(args []string) {
	b.mu.Lock()
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "test", "paper":
			b.params.TestMode = true
		case "live":
			b.params.TestMode = false
		default:
			b.mu.Unlock()
			b.send("❓ Usage: /run [test|live]")
			return
		}
	}
	params := b.params
	b.mu.Unlock()

	if b.ctrl.IsRunning() {
		b.send("ℹ️ Already running")
		return
	}

	if err := b.ctrl.Start(context.Background(), params); err != nil {
		b.send("❌ " + apperr.UserMessage(err))
		return
	}
	b.persist()
	log.Info().Bool("test_mode", params.TestMode).Msg("Trading started via Telegram")
}

func (b *TelegramBot) cmdHalt() {
	if !b.ctrl.IsRunning() {
		b.send("ℹ️ Not running")
		return
	}
	b.ctrl.Stop()
	log.Info().Msg("Trading stopped via Telegram")
}

func (b *TelegramBot) cmdStatus() {
	b.mu.RLock()
	params := b.params
	b.mu.RUnlock()

	b.sendMarkdown(formatStatus(b.ctrl.IsRunning(), params, b.ctrl.StrategyConfig(),
		b.ctrl.StopLossConfig(), b.ctrl.LastTriggerMessage(), b.ctrl.LastError()))
}

func (b *TelegramBot) cmdStats() {
	trades, wins, losses, pnl := b.ctrl.GetStats()
	b.sendMarkdown(formatStats(trades, wins, losses, pnl))
}

func (b *TelegramBot) cmdPositions() {
	positions := b.ctrl.GetOpenPositions()
	if len(positions) == 0 {
		b.send("📭 No open positions")
		return
	}
	b.sendMarkdown(formatPositions(positions, time.Now()))
}

func (b *TelegramBot) cmdBreaker(args []string) {
	if len(args) > 0 && strings.EqualFold(args[0], "reset") {
		if !b.ctrl.ResetBreaker() {
			b.send("ℹ️ Circuit breaker not configured")
			return
		}
		log.Info().Msg("Circuit breaker reset via Telegram")
	}
	b.sendMarkdown(formatBreaker(b.ctrl.BreakerStatus()))
}

func (b *TelegramBot) cmdIndicators() {
	readings := b.ctrl.Indicators()
	if len(readings) == 0 {
		b.send("📭 No indicators configured")
		return
	}
	b.sendMarkdown(formatIndicators(readings))
}

func (b *TelegramBot) cmdTrades() {
	trades := b.ctrl.GetRecentTrades(10)
	if len(trades) == 0 {
		b.send("📭 No trade history yet")
		return
	}
	b.sendMarkdown(formatTrades(trades))
}

func (b *TelegramBot) cmdStopLoss(args []string) {
	if len(args) == 0 {
		b.sendMarkdown("🛡️ Stop loss: *" + formatStopLoss(b.ctrl.StopLossConfig()) + "*")
		return
	}

	switch arg := strings.ToLower(strings.TrimSuffix(args[0], "%")); arg {
	case "on", "off":
		cfg := b.ctrl.StopLossConfig()
		if cfg.Enabled != (arg == "on") {
			b.ctrl.ToggleStopLoss()
		}
	case "toggle":
		b.ctrl.ToggleStopLoss()
	default:
		pct, err := decimal.NewFromString(arg)
		if err != nil {
			b.send("❓ Usage: /stoploss [on|off|toggle|<pct>]")
			return
		}
		cfg := b.ctrl.StopLossConfig()
		cfg.Percentage = pct
		if err := b.ctrl.SetStopLossConfig(cfg); err != nil {
			b.send("❌ " + err.Error())
			return
		}
	}

	b.persist()
	b.sendMarkdown("🛡️ Stop loss: *" + formatStopLoss(b.ctrl.StopLossConfig()) + "*")
}

func (b *TelegramBot) cmdErrors(args []string) {
	errs := b.ctrl.Errors()
	if len(args) > 0 && strings.ToLower(args[0]) == "clear" {
		errs.Clear()
		b.send("🧹 Error log cleared")
		return
	}

	entries := errs.Errors()
	if len(entries) == 0 {
		b.send("✅ No errors logged")
		return
	}
	b.send(formatErrors(entries, 5))
}

func (b *TelegramBot) cmdBalance() {
	b.mu.RLock()
	fn := b.balance
	b.mu.RUnlock()

	if fn == nil {
		b.send("❌ Balance not available")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	balance, err := fn(ctx)
	if err != nil {
		b.send("❌ " + apperr.UserMessage(err))
		return
	}

	b.sendMarkdown(fmt.Sprintf("💰 *WALLET BALANCE*\n━━━━━━━━━━━━━━━━━━━━\n\n💵 Available: *%s SOL*", balance.StringFixed(4)))
}

func (b *TelegramBot) persist() {
	b.mu.RLock()
	store, params := b.store, b.params
	b.mu.RUnlock()

	if store == nil {
		return
	}
	err := store.SaveSettings(b.chatID, database.Settings{
		StopLoss: b.ctrl.StopLossConfig(),
		Strategy: params.Strategy,
		TestMode: params.TestMode,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to persist settings")
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// FORMATTING
// ═══════════════════════════════════════════════════════════════════════════════

func modeName(testMode bool) string {
	if testMode {
		return "TEST"
	}
	return "LIVE"
}

func formatStopLoss(cfg types.StopLossConfig) string {
	if !cfg.Enabled {
		return "OFF"
	}
	return cfg.Percentage.String() + "%"
}

func formatOpened(p *types.Position) string {
	emoji := "🟢"
	if p.Action == types.Sell {
		emoji = "🔴"
	}
	return fmt.Sprintf("%s *%s %s*\n\n💵 Entry: *$%s*\n📦 Amount: *%s*",
		emoji, strings.ToUpper(string(p.Action)), p.Pair,
		p.EntryPrice.StringFixed(2), p.Amount.StringFixed(3))
}

func formatStatus(running bool, params core.RunParams, strat map[string]interface{}, sl types.StopLossConfig, trigger string, lastErr *apperr.Error) string {
	status := "⏹️ STOPPED"
	if running {
		status = "🟢 RUNNING"
	}

	msg := fmt.Sprintf(`📊 *BOT STATUS*
━━━━━━━━━━━━━━━━━━━━

%s
📊 Mode: *%s*
🎯 Strategy: *%s*
💱 Pair: *%s*
📦 Amount: *%s*
🛡️ Stop loss: *%s*`,
		status, modeName(params.TestMode), params.Strategy.Type,
		params.Strategy.Pair, params.Strategy.Amount.String(), formatStopLoss(sl))

	if dir, ok := strat["direction"].(string); ok && dir != "" {
		msg += "\n🧭 Direction: *" + strings.ToUpper(dir) + "*"
	}
	if inds, ok := strat["indicators"].([]string); ok && len(inds) > 0 {
		msg += "\n📐 Indicators: " + strings.Join(inds, ", ")
	}

	if trigger != "" {
		msg += "\n\n🛑 " + trigger
	}
	if lastErr != nil {
		msg += "\n\n⚠️ " + apperr.UserMessage(lastErr)
	}
	return msg
}

func formatStats(trades, wins, losses int, pnl decimal.Decimal) string {
	closed := wins + losses
	winRate := float64(0)
	if closed > 0 {
		winRate = float64(wins) / float64(closed) * 100
	}

	sign := "+"
	if pnl.IsNegative() {
		sign = ""
	}

	return fmt.Sprintf(`📈 *TRADING STATS*
━━━━━━━━━━━━━━━━━━━━

📊 Filled Trades: *%d*
✅ Wins: *%d*
❌ Losses: *%d*
📈 Win Rate: *%.1f%%*

━━━━━━━━━━━━━━━━━━━━
💵 Realized P&L: *%s$%s*`,
		trades, wins, losses, winRate,
		sign, pnl.StringFixed(2))
}

func formatPositions(positions []types.PositionRecord, now time.Time) string {
	msg := "💼 *OPEN POSITIONS*\n━━━━━━━━━━━━━━━━━━━━\n\n"

	for i, pos := range positions {
		if i == 5 {
			msg += fmt.Sprintf("_... and %d more_", len(positions)-5)
			break
		}

		sideEmoji := "🟢"
		if pos.Action == string(types.Sell) {
			sideEmoji = "🔴"
		}

		msg += fmt.Sprintf(`%s *%s* — %s
💵 Entry: $%s | Amount: %s
🛑 SL: $%s | Risk: $%s
⏱️ Duration: %v

`,
			sideEmoji, pos.Pair, strings.ToUpper(pos.Action),
			pos.EntryPrice.StringFixed(2), pos.Amount.StringFixed(3),
			pos.StopLoss.StringFixed(2), pos.PotentialLoss.StringFixed(2),
			now.Sub(pos.OpenedAt).Round(time.Second),
		)
	}
	return msg
}

func formatTrades(trades []types.TradeRecord) string {
	msg := fmt.Sprintf("📜 *LAST %d TRADES*\n━━━━━━━━━━━━━━━━━━━━\n\n", len(trades))

	for _, t := range trades {
		emoji := "✅"
		switch {
		case !t.Success:
			emoji = "❌"
		case t.Strategy == types.StopLossStrategy:
			emoji = "🛑"
		}

		msg += fmt.Sprintf("%s %s %s %s @ $%s\n   _%s · %s_\n\n",
			emoji, strings.ToUpper(t.Action), t.Amount.StringFixed(3), t.Pair,
			t.Price.StringFixed(2), t.Strategy, t.Timestamp.Format("Jan 2 15:04:05"))
	}
	return msg
}

func formatBreaker(configured, tripped bool, stops int, reason string) string {
	if !configured {
		return "🚨 Circuit breaker: *not configured*"
	}
	if tripped {
		return fmt.Sprintf("🚨 Circuit breaker: *TRIPPED*\n_%s_ (%d consecutive stops)", reason, stops)
	}
	return fmt.Sprintf("✅ Circuit breaker: *OK* (%d consecutive stops)", stops)
}

func formatIndicators(readings []strategy.Reading) string {
	msg := "📐 *INDICATORS*\n━━━━━━━━━━━━━━━━━━━━\n\n"
	for _, r := range readings {
		value := "warming up"
		if r.Ready {
			value = r.Value.StringFixed(4)
		}
		msg += fmt.Sprintf("%s: `%s`\n", r.Name, value)
	}
	return msg
}

func formatErrors(entries []*apperr.Error, limit int) string {
	if len(entries) > limit {
		entries = entries[:limit]
	}

	var sb strings.Builder
	sb.WriteString("⚠️ RECENT ERRORS\n\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s [%s] %s\n", e.Timestamp.Format("15:04:05"), e.Kind, e.Message)
	}
	return sb.String()
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

func (b *TelegramBot) send(text string) {
	msg := tgbotapi.NewMessage(b.chatID, text)
	if _, err := b.out.Send(msg); err != nil {
		log.Error().Err(err).Msg("Failed to send Telegram message")
	}
}

func (b *TelegramBot) sendMarkdown(text string) {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.out.Send(msg); err != nil {
		log.Error().Err(err).Msg("Failed to send Telegram message")
	}
}
