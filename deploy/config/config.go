package config

import (
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Storage    Storage
	Redis      Redis
	HTTPServer HTTPServer
	Fetcher    Fetcher
	Widget     Widget
	Web        Web
}

type Storage struct {
	Enabled  bool          `env:"BD_ENABLED" env-default:"false"`
	Timeout  time.Duration `env:"BD_TIMEOUT" env-default:"10s"`
	Host     string        `env:"BD_HOST" env-default:"localhost"`
	Port     int           `env:"BD_PORT" env-default:"5432"`
	User     string        `env:"BD_USER" env-default:"postgres"`
	Password string        `env:"BD_PASSWORD"`
	DBName   string        `env:"BD_DBNAME" env-default:"converter"`
	SSLMode  string        `env:"BD_SSL_MODE" env-default:"disable"`
	Schema   string        `env:"BD_SCHEMA" env-default:"dev"`
}

type Redis struct {
	Enabled  bool   `env:"REDIS_ENABLED" env-default:"false"`
	Host     string `env:"REDIS_HOST" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	Channel  string `env:"REDIS_CHANNEL" env-default:"rates_updated"`
	Key      string `env:"REDIS_KEY" env-default:"rates:latest"`
}

type HTTPServer struct {
	Port        string        `env:"HTTP_PORT" env-default:"8082"`
	Timeout     time.Duration `env:"HTTP_TIMEOUT" env-default:"2m"`
	IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

const (
	ModeEmbedded = "embedded"
	ModeRedis    = "redis"
)

// Fetcher.Mode selects where the api service gets its rate table from:
// "embedded" runs the fetcher in-process, "redis" listens to snapshots
// published by the standalone currency_fetcher.
type Fetcher struct {
	URL      string        `env:"FETCHER_URL" env-default:"https://open.er-api.com/v6/latest/USD"`
	Timeout  time.Duration `env:"FETCHER_TIMEOUT" env-default:"10s"`
	Interval time.Duration `env:"FETCHER_INTERVAL" env-default:"5m"`
	Mode     string        `env:"FETCHER_MODE" env-default:"embedded"`
}

type Widget struct {
	Currencies    string        `env:"WIDGET_CURRENCIES" env-default:"USD,KRW,JPY,EUR"`
	From          string        `env:"WIDGET_FROM" env-default:"USD"`
	To            string        `env:"WIDGET_TO" env-default:"KRW"`
	Amount        string        `env:"WIDGET_AMOUNT" env-default:"1"`
	Debounce      time.Duration `env:"WIDGET_DEBOUNCE" env-default:"100ms"`
	ErrorSentinel string        `env:"WIDGET_ERROR_SENTINEL" env-default:"오류"`
	UpdatedLabel  string        `env:"WIDGET_UPDATED_LABEL" env-default:"업데이트"`
	FailedLabel   string        `env:"WIDGET_FAILED_LABEL" env-default:"업데이트 실패"`
}

type Web struct {
	Root string `env:"WEB_ROOT" env-default:"./web"`
}

func NewConfig() *Config {
	cfg := &Config{}

	_ = godotenv.Load(".env")

	err := cleanenv.ReadEnv(cfg)
	if err != nil {
		log.Fatal("Error reading env")
	}

	return cfg
}

func (s Storage) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		s.Host,
		s.Port,
		s.User,
		s.Password,
		s.DBName,
		s.SSLMode,
		s.Schema,
	)
}

// Split returns the comma separated list stored in the named Widget field.
func (c *Config) Split(fieldName string) []string {
	v := reflect.ValueOf(&c.Widget).Elem()
	f := v.FieldByName(fieldName)
	if !f.IsValid() || f.Kind() != reflect.String {
		return nil
	}
	str := f.String()
	if str == "" {
		return nil
	}

	parts := strings.Split(str, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
