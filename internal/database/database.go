package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/web3guy0/solbotx/strategy"
	"github.com/web3guy0/solbotx/types"
)

// ErrNotFound is returned when no settings exist for a chat
var ErrNotFound = errors.New("settings not found")

type Database struct {
	db *gorm.DB
}

// Models

// BotSettings is the persisted control state for one chat. Trades and
// positions are never stored.
type BotSettings struct {
	ChatID          int64           `gorm:"primaryKey"`
	StopLossEnabled bool
	StopLossPct     decimal.Decimal `gorm:"type:decimal(10,4)"`
	TestMode        bool
	StrategyType    string
	Pair            string
	Amount          decimal.Decimal `gorm:"type:decimal(20,9)"`
	Action          string
	Indicators      string // JSON encoded []strategy.Indicator
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Settings is the domain view of BotSettings
type Settings struct {
	StopLoss types.StopLossConfig
	Strategy strategy.Params
	TestMode bool
}

func New(dbPath string) (*Database, error) {
	var db *gorm.DB
	var err error

	// Check if this is a PostgreSQL connection string
	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		log.Info().Msg("Database connected (PostgreSQL)")
	} else {
		// SQLite fallback
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		log.Info().Str("path", dbPath).Msg("Database initialized (SQLite)")
	}

	if err := db.AutoMigrate(&BotSettings{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Database{db: db}, nil
}

// Close releases the underlying connection pool
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Settings operations

// SaveSettings upserts the settings for chatID
func (d *Database) SaveSettings(chatID int64, s Settings) error {
	indicators, err := json.Marshal(s.Strategy.Indicators)
	if err != nil {
		return fmt.Errorf("encode indicators: %w", err)
	}

	row := &BotSettings{
		ChatID:          chatID,
		StopLossEnabled: s.StopLoss.Enabled,
		StopLossPct:     s.StopLoss.Percentage,
		TestMode:        s.TestMode,
		StrategyType:    string(s.Strategy.Type),
		Pair:            s.Strategy.Pair,
		Amount:          s.Strategy.Amount,
		Action:          string(s.Strategy.Action),
		Indicators:      string(indicators),
	}

	if err := d.db.Save(row).Error; err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// LoadSettings returns the settings for chatID, or ErrNotFound
func (d *Database) LoadSettings(chatID int64) (Settings, error) {
	var row BotSettings
	err := d.db.First(&row, "chat_id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Settings{}, ErrNotFound
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}

	var indicators []strategy.Indicator
	if row.Indicators != "" {
		if err := json.Unmarshal([]byte(row.Indicators), &indicators); err != nil {
			return Settings{}, fmt.Errorf("decode indicators: %w", err)
		}
	}

	return Settings{
		StopLoss: types.StopLossConfig{
			Enabled:    row.StopLossEnabled,
			Percentage: row.StopLossPct,
		},
		Strategy: strategy.Params{
			Type:       strategy.Type(row.StrategyType),
			Indicators: indicators,
			Amount:     row.Amount,
			Pair:       row.Pair,
			Action:     types.Action(row.Action),
		},
		TestMode: row.TestMode,
	}, nil
}

// DeleteSettings removes the settings for chatID
func (d *Database) DeleteSettings(chatID int64) error {
	return d.db.Delete(&BotSettings{}, "chat_id = ?", chatID).Error
}
