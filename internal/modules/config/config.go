package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const configFilePathENV = "CONFIG_FILE"

// Config ...
type Config struct {
	Service struct {
		Name       string `yaml:"name"`
		Host       string `yaml:"host"`
		PublicPort int    `yaml:"public_port"`
	} `yaml:"service"`

	// DSN истории сделок. Пусто — работаем на памяти.
	DB string `yaml:"db_dsn"` // env: DATABASE_DSN

	Telegram struct {
		Token  string `yaml:"token"` // env: TELEGRAM_TOKEN
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Tracing struct {
		Host string `yaml:"host"`
		Port string `yaml:"port"`
	} `yaml:"tracing"`

	OKX struct {
		BaseURL   string  `yaml:"base_url"`
		WSURL     string  `yaml:"ws_url"`
		Demo      bool    `yaml:"demo"`       // env: OKX_DEMO
		RateLimit float64 `yaml:"rate_limit"` // запросов в секунду
		RateBurst int     `yaml:"rate_burst"`

		// Ключи только из окружения.
		APIKey     string // env: OKX_API_KEY
		APISecret  string // env: OKX_API_SECRET
		Passphrase string // env: OKX_PASSPHRASE
	} `yaml:"okx"`

	Trading struct {
		Instruments []string `yaml:"instruments"` // env: INSTRUMENTS (через запятую)
		Timeframe   string   `yaml:"timeframe"`
		CandleLimit int      `yaml:"candle_limit"`
		FastPeriod  int      `yaml:"fast_period"`
		SlowPeriod  int      `yaml:"slow_period"`
		Margin      float64  `yaml:"margin"` // USDT на один ордер
		Leverage    int      `yaml:"leverage"`
		MaxLeverage int      `yaml:"max_leverage"`
		WatchTopN   int      `yaml:"watch_top_n"`
		LogCapacity int      `yaml:"log_capacity"`

		// Длительности только из окружения, yaml их не парсит.
		Cooldown        time.Duration // env: TRADE_COOLDOWN (30s)
		InstrumentPause time.Duration // env: INSTRUMENT_PAUSE (1s)
		CycleInterval   time.Duration // env: CYCLE_INTERVAL (60s), 0 выключает таймер
	} `yaml:"trading"`

	WSEnabled    bool   `yaml:"ws_enabled"`
	SettingsPath string `yaml:"settings_path"` // env: BOT_SETTINGS_PATH
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		log.Fatalf("Failed to open config file: %v", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{}
	config.Service.Name = "xiinko-bot"
	config.Service.Host = "0.0.0.0"
	config.Service.PublicPort = 8080
	config.OKX.BaseURL = "https://www.okx.com"
	config.OKX.WSURL = "wss://ws.okx.com:8443/ws/v5/public"
	config.OKX.RateLimit = 8
	config.OKX.RateBurst = 8
	config.Trading.Timeframe = getenvDefault("TIMEFRAME", "5m")
	config.Trading.CandleLimit = intFromEnv("CANDLE_LIMIT", 100)
	config.Trading.FastPeriod = intFromEnv("MA_FAST", 9)
	config.Trading.SlowPeriod = intFromEnv("MA_SLOW", 21)
	config.Trading.Margin = floatFromEnv("TRADE_MARGIN", 100)
	config.Trading.Leverage = intFromEnv("LEVERAGE", 5)
	config.Trading.MaxLeverage = intFromEnv("MAX_LEVERAGE", 20)
	config.Trading.WatchTopN = intFromEnv("WATCH_TOP_N", 10)
	config.Trading.LogCapacity = intFromEnv("LOG_CAPACITY", 100)
	config.Trading.Cooldown = durationFromEnv("TRADE_COOLDOWN", "30s")
	config.Trading.InstrumentPause = durationFromEnv("INSTRUMENT_PAUSE", "1s")
	config.Trading.CycleInterval = durationFromEnv("CYCLE_INTERVAL", "60s")
	config.SettingsPath = getenvDefault("BOT_SETTINGS_PATH", "data/settings.json")

	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	// секреты и переопределения поверх файла
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			config.Telegram.ChatID = id
		}
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.DB = dsn
	}
	if raw := os.Getenv("INSTRUMENTS"); raw != "" {
		config.Trading.Instruments = splitList(raw)
	}
	if path := os.Getenv("BOT_SETTINGS_PATH"); path != "" {
		config.SettingsPath = path
	}
	config.OKX.APIKey = os.Getenv("OKX_API_KEY")
	config.OKX.APISecret = os.Getenv("OKX_API_SECRET")
	config.OKX.Passphrase = os.Getenv("OKX_PASSPHRASE")
	config.OKX.Demo = boolFromEnv("OKX_DEMO", config.OKX.Demo)

	return &config, nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
