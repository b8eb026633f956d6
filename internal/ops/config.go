// Package ops loads and validates the runtime configuration file.
package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"stockfighter/internal/api"
	"stockfighter/internal/risk"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	API      APIConfig      `json:"api"`
	Level    LevelConfig    `json:"level"`
	Risk     risk.Config    `json:"risk"`
	Engine   EngineConfig   `json:"engine"`
	Journal  JournalConfig  `json:"journal"`
	Strategy StrategyConfig `json:"strategy"`
}

// APIConfig locates the exchange API and the credential for it.
type APIConfig struct {
	BaseURL   string `json:"baseUrl"`
	BaseWsURL string `json:"baseWsUrl"`
	Key       string `json:"key"`
	KeyFile   string `json:"keyFile"`
}

// LevelConfig names the level to run through the game master, or pins a
// venue directly when Venue/Account/Ticker are all set.
type LevelConfig struct {
	Name    string `json:"name"`
	Venue   string `json:"venue"`
	Account string `json:"account"`
	Ticker  string `json:"ticker"`
}

// EngineConfig tunes the trading engine.
type EngineConfig struct {
	SnapshotPath string `json:"snapshotPath"`
	HistorySize  int    `json:"historySize"`
}

// JournalConfig enables the fill journal and points it at Postgres.
type JournalConfig struct {
	Enabled   *bool  `json:"enabled"`
	QueueSize int    `json:"queueSize"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	User      string `json:"user"`
	Password  string `json:"password"`
	Database  string `json:"database"`
	SSLMode   string `json:"sslMode"`
}

// StrategyConfig selects and tunes the strategy.
type StrategyConfig struct {
	Name          string `json:"name"`
	OrderQty      int    `json:"orderQty"`
	TargetQty     int    `json:"targetQty"`
	PriceOffset   int    `json:"priceOffset"`
	TimeoutMillis int    `json:"timeoutMillis"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	API      APISpec
	Level    LevelSpec
	Risk     risk.Config
	Engine   EngineSpec
	Journal  JournalSpec
	Strategy StrategySpec
}

// APISpec is the resolved exchange API location and credential.
type APISpec struct {
	BaseURL   string
	BaseWsURL string
	Key       string
}

// LevelSpec is the resolved level selection. When Pinned is true the venue,
// account and ticker are used as-is and the game master is skipped.
type LevelSpec struct {
	Name    string
	Pinned  bool
	Venue   string
	Account string
	Ticker  string
}

// EngineSpec is the resolved engine tuning.
type EngineSpec struct {
	SnapshotPath string
	HistorySize  int
}

// JournalSpec is the resolved fill journal settings.
type JournalSpec struct {
	Enabled   bool
	QueueSize int
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
	SSLMode   string
}

// StrategySpec is the resolved strategy selection.
type StrategySpec struct {
	Name        string
	OrderQty    int
	TargetQty   int
	PriceOffset int
	Timeout     time.Duration
}

// Load reads a JSON config file and resolves every section.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}
	apiSpec, err := resolveAPI(cfg.API)
	if err != nil {
		return Loaded{}, err
	}
	level, err := resolveLevel(cfg.Level)
	if err != nil {
		return Loaded{}, err
	}
	journal, err := resolveJournal(cfg.Journal)
	if err != nil {
		return Loaded{}, err
	}
	strategy, err := resolveStrategy(cfg.Strategy)
	if err != nil {
		return Loaded{}, err
	}
	return Loaded{
		API:      apiSpec,
		Level:    level,
		Risk:     cfg.Risk,
		Engine:   resolveEngine(cfg.Engine),
		Journal:  journal,
		Strategy: strategy,
	}, nil
}

func resolveAPI(cfg APIConfig) (APISpec, error) {
	spec := APISpec{
		BaseURL:   cfg.BaseURL,
		BaseWsURL: cfg.BaseWsURL,
		Key:       strings.TrimSpace(cfg.Key),
	}
	if spec.BaseURL == "" {
		spec.BaseURL = api.DefaultBaseURL
	}
	if spec.BaseWsURL == "" {
		spec.BaseWsURL = api.DefaultBaseWsURL
	}
	if spec.Key == "" && cfg.KeyFile != "" {
		data, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return APISpec{}, fmt.Errorf("read key file: %w", err)
		}
		spec.Key = strings.TrimSpace(string(data))
	}
	if spec.Key == "" {
		return APISpec{}, fmt.Errorf("api key is empty: set api.key or api.keyFile")
	}
	return spec, nil
}

func resolveLevel(cfg LevelConfig) (LevelSpec, error) {
	pinned := cfg.Venue != "" || cfg.Account != "" || cfg.Ticker != ""
	if pinned {
		if cfg.Venue == "" || cfg.Account == "" || cfg.Ticker == "" {
			return LevelSpec{}, fmt.Errorf("pinned level needs venue, account and ticker")
		}
		return LevelSpec{
			Pinned:  true,
			Venue:   cfg.Venue,
			Account: cfg.Account,
			Ticker:  cfg.Ticker,
		}, nil
	}
	if cfg.Name == "" {
		return LevelSpec{}, fmt.Errorf("level name is empty")
	}
	return LevelSpec{Name: cfg.Name}, nil
}

func resolveEngine(cfg EngineConfig) EngineSpec {
	spec := EngineSpec{
		SnapshotPath: cfg.SnapshotPath,
		HistorySize:  cfg.HistorySize,
	}
	if spec.HistorySize <= 0 {
		spec.HistorySize = 20
	}
	return spec
}

func resolveJournal(cfg JournalConfig) (JournalSpec, error) {
	spec := JournalSpec{
		QueueSize: cfg.QueueSize,
		Host:      cfg.Host,
		Port:      cfg.Port,
		User:      cfg.User,
		Password:  cfg.Password,
		Database:  cfg.Database,
		SSLMode:   cfg.SSLMode,
	}
	if cfg.Enabled != nil {
		spec.Enabled = *cfg.Enabled
	}
	if !spec.Enabled {
		return spec, nil
	}
	if spec.QueueSize <= 0 {
		spec.QueueSize = 1024
	}
	if spec.Host == "" || spec.Database == "" {
		return JournalSpec{}, fmt.Errorf("journal needs host and database")
	}
	if spec.Port == 0 {
		spec.Port = 5432
	}
	if spec.SSLMode == "" {
		spec.SSLMode = "disable"
	}
	return spec, nil
}

func resolveStrategy(cfg StrategyConfig) (StrategySpec, error) {
	if cfg.Name == "" {
		return StrategySpec{}, fmt.Errorf("strategy name is empty")
	}
	spec := StrategySpec{
		Name:        cfg.Name,
		OrderQty:    cfg.OrderQty,
		TargetQty:   cfg.TargetQty,
		PriceOffset: cfg.PriceOffset,
		Timeout:     time.Duration(cfg.TimeoutMillis) * time.Millisecond,
	}
	if spec.OrderQty < 0 || spec.TargetQty < 0 {
		return StrategySpec{}, fmt.Errorf("strategy quantities must be >= 0")
	}
	return spec, nil
}
