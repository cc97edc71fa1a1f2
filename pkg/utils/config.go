package utils

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Booking   BookingConfig
	Currency  CurrencyConfig
	PayPal    PayPalConfig
	Redis     RedisConfig
	Rabbit    RabbitConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string
	Port        string
	Debug       bool
	LogPath     string
	FrontendURL string
	CORSOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// BookingConfig holds the business window, [OpenHour, CloseHour).
type BookingConfig struct {
	OpenHour  int
	CloseHour int
}

type CurrencyConfig struct {
	Local          string
	Settlement     string
	SettlementRate float64
}

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	ReturnURL    string
	CancelURL    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type RabbitConfig struct {
	URL      string
	Exchange string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

func LoadConfig() (*Config, error) {
	return LoadConfigFile(".env")
}

// LoadConfigFile reads path when it exists; environment variables always win.
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")

	// Set defaults
	v.SetDefault("APP_NAME", "cleaning-booking")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("BUSINESS_OPEN_HOUR", 8)
	v.SetDefault("BUSINESS_CLOSE_HOUR", 20)
	v.SetDefault("LOCAL_CURRENCY", "MAD")
	v.SetDefault("SETTLEMENT_CURRENCY", "USD")
	v.SetDefault("SETTLEMENT_RATE", 0.1)
	v.SetDefault("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com")
	v.SetDefault("PAYPAL_RETURN_URL", "http://localhost:8080/api/payment/paypal/capture")
	v.SetDefault("PAYPAL_CANCEL_URL", "http://localhost:8080/api/payment/paypal/cancel")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CATALOG_CACHE_TTL", "5m")
	v.SetDefault("EVENTS_EXCHANGE", "cleaning.events")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	v.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:        v.GetString("APP_NAME"),
			Port:        v.GetString("PORT"),
			Debug:       v.GetBool("DEBUG"),
			LogPath:     v.GetString("LOG_PATH"),
			FrontendURL: strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
			CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		Booking: BookingConfig{
			OpenHour:  v.GetInt("BUSINESS_OPEN_HOUR"),
			CloseHour: v.GetInt("BUSINESS_CLOSE_HOUR"),
		},
		Currency: CurrencyConfig{
			Local:          v.GetString("LOCAL_CURRENCY"),
			Settlement:     v.GetString("SETTLEMENT_CURRENCY"),
			SettlementRate: v.GetFloat64("SETTLEMENT_RATE"),
		},
		PayPal: PayPalConfig{
			ClientID:     v.GetString("PAYPAL_CLIENT_ID"),
			ClientSecret: v.GetString("PAYPAL_CLIENT_SECRET"),
			BaseURL:      strings.TrimRight(v.GetString("PAYPAL_BASE_URL"), "/"),
			ReturnURL:    v.GetString("PAYPAL_RETURN_URL"),
			CancelURL:    v.GetString("PAYPAL_CANCEL_URL"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			CacheTTL: v.GetDuration("CATALOG_CACHE_TTL"),
		},
		Rabbit: RabbitConfig{
			URL:      v.GetString("RABBIT_URL"),
			Exchange: v.GetString("EVENTS_EXCHANGE"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
	}

	if config.Booking.OpenHour < 0 || config.Booking.CloseHour > 24 || config.Booking.OpenHour >= config.Booking.CloseHour {
		return nil, errors.New("invalid business hours: BUSINESS_OPEN_HOUR must be before BUSINESS_CLOSE_HOUR")
	}
	if config.Currency.SettlementRate <= 0 {
		return nil, errors.New("SETTLEMENT_RATE must be positive")
	}

	return config, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
