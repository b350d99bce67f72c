package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the market simulation.
// Monetary values are cents.
type Config struct {
	Port     int
	LogLevel string

	TickInterval         time.Duration
	TickCount            int
	LotSize              int64
	PriceBandPct         float64
	ReplenishProbability float64
	DepositMin           int64
	DepositMax           int64
	TraderCount          int
	Instruments          []string
	Seed                 uint64 // 0 means time-seeded

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables (after loading a
// local .env file if one exists), applies defaults, and validates
// values. It returns an error for any invalid value.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	tickInterval, err := getDuration("TICK_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
	}
	if tickInterval <= 0 {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: must be > 0")
	}

	tickCount, err := getInt("TICK_COUNT", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid TICK_COUNT: %w", err)
	}
	if tickCount <= 0 {
		return nil, fmt.Errorf("invalid TICK_COUNT: must be > 0")
	}

	lotSize, err := getInt64("LOT_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid LOT_SIZE: %w", err)
	}
	if lotSize <= 0 {
		return nil, fmt.Errorf("invalid LOT_SIZE: must be > 0")
	}

	bandPct, err := getFloat("PRICE_BAND_PCT", 0.05)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_BAND_PCT: %w", err)
	}
	if bandPct <= 0 || bandPct >= 1 {
		return nil, fmt.Errorf("invalid PRICE_BAND_PCT: must be in (0, 1)")
	}

	replenishProb, err := getFloat("REPLENISH_PROBABILITY", 0.5)
	if err != nil {
		return nil, fmt.Errorf("invalid REPLENISH_PROBABILITY: %w", err)
	}
	if replenishProb < 0 || replenishProb > 1 {
		return nil, fmt.Errorf("invalid REPLENISH_PROBABILITY: must be in [0, 1]")
	}

	depositMin, err := getInt64("DEPOSIT_MIN", 10_000_00)
	if err != nil {
		return nil, fmt.Errorf("invalid DEPOSIT_MIN: %w", err)
	}
	depositMax, err := getInt64("DEPOSIT_MAX", 30_000_00)
	if err != nil {
		return nil, fmt.Errorf("invalid DEPOSIT_MAX: %w", err)
	}
	if depositMin <= 0 || depositMax < depositMin {
		return nil, fmt.Errorf("invalid deposit range: need 0 < DEPOSIT_MIN <= DEPOSIT_MAX")
	}

	traderCount, err := getInt("TRADER_COUNT", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid TRADER_COUNT: %w", err)
	}
	if traderCount <= 0 {
		return nil, fmt.Errorf("invalid TRADER_COUNT: must be > 0")
	}

	instruments := splitList(getStr("INSTRUMENTS", "AAPL,GOOGL,MSFT,TSLA,AMZN"))
	if len(instruments) == 0 {
		return nil, fmt.Errorf("invalid INSTRUMENTS: must list at least one symbol")
	}

	seed, err := getUint64("SEED", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid SEED: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:                 port,
		LogLevel:             logLevel,
		TickInterval:         tickInterval,
		TickCount:            tickCount,
		LotSize:              lotSize,
		PriceBandPct:         bandPct,
		ReplenishProbability: replenishProb,
		DepositMin:           depositMin,
		DepositMax:           depositMax,
		TraderCount:          traderCount,
		Instruments:          instruments,
		Seed:                 seed,
		ReadTimeout:          readTimeout,
		WriteTimeout:         writeTimeout,
		IdleTimeout:          idleTimeout,
		ShutdownTimeout:      shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getUint64(key string, defaultVal uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseUint(v, 10, 64)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
