package config

import (
	"fmt"
	"time"

	"github.com/bloops-games/stockrush/internal/database"
	"github.com/kelseyhightower/envconfig"
)

const prefix = "STOCKRUSH"

// Server configures the relay binary.
type Server struct {
	Debug          bool          `envconfig:"DEBUG" default:"false"`
	LogFile        string        `envconfig:"LOG_FILE"`
	Port           string        `envconfig:"PORT" default:"8080"`
	ProfPort       string        `envconfig:"PROF_PORT" default:"8081"`
	TokenSecret    string        `envconfig:"TOKEN_SECRET" default:"insecure-dev-secret"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"1h"`
	MaxConnections int           `envconfig:"MAX_CONNECTIONS" default:"512"`
	Game           Game
}

// Client configures a participant process.
type Client struct {
	Debug     bool   `envconfig:"DEBUG" default:"false"`
	LogFile   string `envconfig:"LOG_FILE"`
	RelayURL  string `envconfig:"RELAY_URL" default:"http://localhost:8080"`
	Catalog   string `envconfig:"CATALOG"`
	CacheSize int    `envconfig:"CACHE_SIZE" default:"64"`
	Game      Game
	Db        database.Config
}

// Game holds the tuning shared by every participant of a room.
type Game struct {
	Capacity int `envconfig:"CAPACITY" default:"2"`

	PriceMin   int64 `envconfig:"PRICE_MIN" default:"10000"`
	PriceMax   int64 `envconfig:"PRICE_MAX" default:"20000"`
	PriceStart int64 `envconfig:"PRICE_START" default:"15000"`
	SeriesLen  int   `envconfig:"SERIES_LEN" default:"180"`
	VolumeMin  int64 `envconfig:"VOLUME_MIN" default:"100"`
	VolumeMax  int64 `envconfig:"VOLUME_MAX" default:"1000"`
	SeedStep   int64 `envconfig:"SEED_STEP" default:"50"`

	AutoTickEvery time.Duration `envconfig:"AUTO_TICK_EVERY" default:"1s"`
	AutoTickStep  int64         `envconfig:"AUTO_TICK_STEP" default:"120"`
	CommitEvery   int           `envconfig:"COMMIT_EVERY" default:"5"`

	GaugeMax       float64       `envconfig:"GAUGE_MAX" default:"100"`
	GaugeRate      float64       `envconfig:"GAUGE_RATE" default:"20"`
	GaugeTickEvery time.Duration `envconfig:"GAUGE_TICK_EVERY" default:"200ms"`
	StatusEvery    time.Duration `envconfig:"STATUS_EVERY" default:"500ms"`

	StartCash int64 `envconfig:"START_CASH" default:"100000"`
	HandSize  int   `envconfig:"HAND_SIZE" default:"3"`
	HandLimit int   `envconfig:"HAND_LIMIT" default:"5"`

	LotteryEvery time.Duration `envconfig:"LOTTERY_EVERY" default:"1s"`
	LotteryP     float64       `envconfig:"LOTTERY_P" default:"0.013333333333333334"`
	PercentMin   float64       `envconfig:"PERCENT_MIN" default:"5"`
	PercentMax   float64       `envconfig:"PERCENT_MAX" default:"15"`
	MoneyMin     int64         `envconfig:"MONEY_MIN" default:"50000"`
	MoneyMax     int64         `envconfig:"MONEY_MAX" default:"150000"`

	MatchDuration time.Duration `envconfig:"MATCH_DURATION" default:"3m"`
	DedupSize     int           `envconfig:"DEDUP_SIZE" default:"1024"`
	DedupWindow   time.Duration `envconfig:"DEDUP_WINDOW" default:"5m"`
}

func (g Game) Validate() error {
	switch {
	case g.Capacity < 2:
		return fmt.Errorf("capacity must be at least 2, got %d", g.Capacity)
	case g.PriceMin <= 0 || g.PriceMin > g.PriceMax:
		return fmt.Errorf("invalid price range [%d, %d]", g.PriceMin, g.PriceMax)
	case g.SeriesLen <= 0:
		return fmt.Errorf("series length must be positive, got %d", g.SeriesLen)
	case g.VolumeMin > g.VolumeMax:
		return fmt.Errorf("invalid volume range [%d, %d]", g.VolumeMin, g.VolumeMax)
	case g.GaugeMax <= 0:
		return fmt.Errorf("gauge max must be positive, got %v", g.GaugeMax)
	case g.LotteryP < 0 || g.LotteryP > 1:
		return fmt.Errorf("lottery probability must be in [0, 1], got %v", g.LotteryP)
	case g.CommitEvery <= 0:
		return fmt.Errorf("commit every must be positive, got %d", g.CommitEvery)
	case g.HandLimit < g.HandSize:
		return fmt.Errorf("hand limit %d below hand size %d", g.HandLimit, g.HandSize)
	}
	return nil
}

func ProcessServer() (Server, error) {
	var cfg Server
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return cfg, fmt.Errorf("processing the server config: %w", err)
	}
	if err := cfg.Game.Validate(); err != nil {
		return cfg, fmt.Errorf("validate game config: %w", err)
	}
	return cfg, nil
}

func ProcessClient() (Client, error) {
	var cfg Client
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return cfg, fmt.Errorf("processing the client config: %w", err)
	}
	if err := cfg.Game.Validate(); err != nil {
		return cfg, fmt.Errorf("validate game config: %w", err)
	}
	return cfg, nil
}

// DefaultGame returns the game defaults without reading the environment.
func DefaultGame() Game {
	return Game{
		Capacity:       2,
		PriceMin:       10000,
		PriceMax:       20000,
		PriceStart:     15000,
		SeriesLen:      180,
		VolumeMin:      100,
		VolumeMax:      1000,
		SeedStep:       50,
		AutoTickEvery:  time.Second,
		AutoTickStep:   120,
		CommitEvery:    5,
		GaugeMax:       100,
		GaugeRate:      20,
		GaugeTickEvery: 200 * time.Millisecond,
		StatusEvery:    500 * time.Millisecond,
		StartCash:      100000,
		HandSize:       3,
		HandLimit:      5,
		LotteryEvery:   time.Second,
		LotteryP:       1.0 / 75,
		PercentMin:     5,
		PercentMax:     15,
		MoneyMin:       50000,
		MoneyMax:       150000,
		MatchDuration:  3 * time.Minute,
		DedupSize:      1024,
		DedupWindow:    5 * time.Minute,
	}
}
