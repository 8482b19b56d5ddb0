package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/web3guy0/solbotx/bot"
	"github.com/web3guy0/solbotx/core"
	"github.com/web3guy0/solbotx/exec"
	"github.com/web3guy0/solbotx/feeds"
	"github.com/web3guy0/solbotx/internal/apperr"
	"github.com/web3guy0/solbotx/internal/config"
	"github.com/web3guy0/solbotx/internal/database"
	"github.com/web3guy0/solbotx/internal/stream"
	"github.com/web3guy0/solbotx/risk"
	"github.com/web3guy0/solbotx/strategy"
	"github.com/web3guy0/solbotx/wallet"
)

const version = "1.0.0"

func main() {
	// ═══════════════════════════════════════════════════════════════════════════════
	// BOOTSTRAP
	// ═══════════════════════════════════════════════════════════════════════════════

	// Load environment
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().Msg("═══════════════════════════════════════════════════════════════")
	log.Info().Msgf("                    SOLBOTX v%s", version)
	log.Info().Msg("═══════════════════════════════════════════════════════════════")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ═══════════════════════════════════════════════════════════════════════════════
	// INITIALIZE COMPONENTS
	// ═══════════════════════════════════════════════════════════════════════════════

	errLog := apperr.NewLogger(cfg.ErrorLogCapacity)

	// 1. Settings store
	params := core.RunParams{Strategy: cfg.StrategyParams(), TestMode: cfg.TestMode}
	stopLoss := cfg.StopLoss()

	var db *database.Database
	if cfg.DatabasePath != "" {
		db, err = database.New(cfg.DatabasePath)
		if err != nil {
			log.Warn().Err(err).Msg("Database unavailable, settings will not persist")
			db = nil
		} else {
			defer db.Close()
			if saved, err := db.LoadSettings(cfg.TelegramChatID); err == nil {
				params = core.RunParams{Strategy: saved.Strategy, TestMode: saved.TestMode}
				stopLoss = saved.StopLoss
				log.Info().Msg("✅ Saved settings restored")
			} else if !errors.Is(err, database.ErrNotFound) {
				log.Warn().Err(err).Msg("Failed to load saved settings")
			}
		}
	}

	// 2. Wallet
	var provider wallet.Provider
	var signer wallet.Signer
	if cfg.WalletPrivateKey != "" {
		w, err := wallet.NewKeyWallet(cfg.WalletPrivateKey, cfg.WalletAddress)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load wallet")
		}
		if _, err := w.Connect(ctx); err != nil {
			errLog.Record(err)
		}
		provider, signer = w, w
	}

	// Balance lookups need the base58 account; the signing key cannot stand in for it
	address := cfg.WalletAddress
	var balances *wallet.BalanceClient
	if address != "" {
		balances, err = wallet.DialBalanceClient(ctx, cfg.SolanaRPCURL, cfg.VenueRetries, cfg.VenueRetryDelay)
		if err != nil {
			errLog.Record(err)
		}
	}

	// 3. Execution venue
	venue := exec.NewClient(signer, cfg.TestMode)
	guard := exec.NewGuard(venue, cfg.VenueTimeout, cfg.VenueRetries, cfg.VenueRetryDelay)
	log.Info().Bool("dry_run", venue.IsDryRun()).Msg("✅ Execution venue ready")

	// 4. Core engine
	engine := core.NewEngine(core.EngineConfig{
		Simulator:        feeds.NewRandomSimulator(feeds.DefaultSimulatorConfig()),
		Guard:            guard,
		Wallet:           provider,
		Errors:           errLog,
		Breaker:          risk.NewCircuitBreaker(cfg.CircuitMaxStopLosses, cfg.CircuitCooldown),
		StopLoss:         &stopLoss,
		TickInterval:     cfg.TickInterval,
		StrategyInterval: cfg.StrategyInterval,
		SlippagePct:      cfg.SlippagePct,
		SlippageExits:    cfg.SlippageExits,
	})
	log.Info().Msg("✅ Core engine initialized")

	// 5. Telegram
	var tg *bot.TelegramBot
	if cfg.TelegramToken != "" {
		tg, err = bot.NewTelegramBot(cfg.TelegramToken, cfg.TelegramChatID, engine, params)
		if err != nil {
			log.Warn().Err(err).Msg("Telegram disabled")
			tg = nil
		} else {
			if db != nil {
				tg.SetSettingsStore(db)
			}
			if balances != nil {
				tg.SetBalanceFunc(func(ctx context.Context) (decimal.Decimal, error) {
					return balances.Balance(ctx, address)
				})
			}
		}
	}

	// ═══════════════════════════════════════════════════════════════════════════════
	// START
	// ═══════════════════════════════════════════════════════════════════════════════

	g, gctx := errgroup.WithContext(ctx)

	if cfg.StreamAddr != "" {
		hub := stream.NewHub(func() any { return snapshot(engine) })
		events := engine.Subscribe()
		g.Go(func() error {
			err := hub.Run(gctx, events)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})

		mux := http.NewServeMux()
		mux.HandleFunc("GET /ws", hub.HandleWS)
		srv := &http.Server{Addr: cfg.StreamAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		g.Go(func() error {
			log.Info().Str("addr", cfg.StreamAddr).Msg("📡 Event stream listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if tg != nil {
		tg.Start()
		tg.NotifyStartup()
	}

	if err := engine.Start(ctx, params); err != nil {
		log.Error().Str("reason", apperr.UserMessage(err)).Msg("Trading loop not started")
	}

	log.Info().Msg("🚀 All systems running...")

	// ═══════════════════════════════════════════════════════════════════════════════
	// GRACEFUL SHUTDOWN
	// ═══════════════════════════════════════════════════════════════════════════════

	<-gctx.Done()
	log.Info().Msg("🛑 Shutting down...")

	engine.Stop()
	if tg != nil {
		tg.Stop()
	}
	if provider != nil {
		provider.Disconnect()
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Shutdown with error")
	}

	trades, wins, losses, pnl := engine.GetStats()
	log.Info().
		Int("trades", trades).
		Int("wins", wins).
		Int("losses", losses).
		Str("pnl", pnl.StringFixed(4)).
		Msg("👋 Goodbye")
}

type status struct {
	Running     bool               `json:"running"`
	Positions   int                `json:"open_positions"`
	Trades      int                `json:"trades"`
	StopLoss    string             `json:"stop_loss"`
	LastTrigger string             `json:"last_trigger,omitempty"`
	Indicators  []strategy.Reading `json:"indicators,omitempty"`
	Strategy    map[string]any     `json:"strategy,omitempty"`
}

func snapshot(e *core.Engine) any {
	sl := e.StopLossConfig()
	stopLoss := "off"
	if sl.Enabled {
		stopLoss = sl.Percentage.String() + "%"
	}
	return status{
		Running:     e.IsRunning(),
		Positions:   len(e.Positions()),
		Trades:      len(e.Trades()),
		StopLoss:    stopLoss,
		LastTrigger: e.LastTriggerMessage(),
		Indicators:  e.Indicators(),
		Strategy:    e.StrategyConfig(),
	}
}
