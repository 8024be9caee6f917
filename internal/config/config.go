package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"kosh/internal/core"
)

type Config struct {
	// HTTP server
	Port string

	// Database
	SQLiteDBPath string
	DataBackend  string

	// AMQP recalculation queue (optional; empty URL disables it and
	// recalculations run inline)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets import source
	GoogleSpreadsheetID string
	RawFlowsSheet       string
	ValuationsSheet     string

	// Ledger
	// NetWorthEpoch is the first date the net-worth series covers; opening
	// balances are interpreted as of this date.
	NetWorthEpoch string
	// RecordAfterHour: the dashboard auto-records today's sample only after
	// this local hour, so half-day balances don't get frozen in.
	RecordAfterHour int

	// Worker
	RecalcInterval time.Duration
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/kosh.db"),
		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "kosh"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "recalc_requests"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		RawFlowsSheet:       getEnv("GOOGLE_RAW_FLOWS_SHEET", "Raw"),
		ValuationsSheet:     getEnv("GOOGLE_VALUATIONS_SHEET", "Valuations"),

		NetWorthEpoch:   getEnv("NET_WORTH_EPOCH", "2023-12-17"),
		RecordAfterHour: getEnvInt("RECORD_AFTER_HOUR", 14),

		RecalcInterval: getEnvDuration("RECALC_INTERVAL", time.Hour),
	}
}

// Validate checks the configuration and returns a combined error when
// anything is off.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port %q: must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "sqlite", "memory":
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend %q: must be sqlite or memory", c.DataBackend))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					problems = append(problems, fmt.Sprintf("cannot create database directory %q: %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL %q: %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme %q: must be amqp or amqps", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := time.Parse("2006-01-02", c.NetWorthEpoch); err != nil {
		problems = append(problems, fmt.Sprintf("invalid net worth epoch %q: must be YYYY-MM-DD", c.NetWorthEpoch))
	}

	if c.RecordAfterHour < 0 || c.RecordAfterHour > 23 {
		problems = append(problems, fmt.Sprintf("invalid record hour %d: must be 0-23", c.RecordAfterHour))
	}

	if c.RecalcInterval < time.Second {
		problems = append(problems, fmt.Sprintf("invalid recalc interval %v: must be at least 1 second", c.RecalcInterval))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Epoch returns the parsed net-worth epoch. Call Validate first; an
// unparseable value falls back to the zero date here.
func (c *Config) Epoch() core.Date {
	d, err := core.ParseDate(c.NetWorthEpoch)
	if err != nil {
		return core.Date{}
	}
	return d
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
