package config

import (
	stdlog "log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/database"

	"go.uber.org/zap"
)

type Config struct {
	Port  string
	JWT   JWT
	DB    DB
	Redis Redis
	Kafka Kafka
}

type JWT struct {
	Secret     string
	Issuer     string
	Audience   string
	AccessExp  time.Duration
	RefreshExp time.Duration
}

type DB struct {
	database.Config
}

type Redis struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type Kafka struct {
	Enabled          bool
	Brokers          []string
	SMSTopic         string
	OrderEventsTopic string
}

func Load(log *zap.Logger) *Config {
	return &Config{
		Port: getEnv("APP_PORT", log),
		JWT: JWT{
			Secret:     getEnv("JWT_SECRET", log),
			Issuer:     getEnv("JWT_ISSUER", log),
			Audience:   getEnv("JWT_AUDIENCE", log),
			AccessExp:  parseDurationWithDays(getEnv("ACCESS_EXP", log)),
			RefreshExp: parseDurationWithDays(getEnv("REFRESH_EXP", log)),
		},
		DB: DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnv("DB_SSLMODE", log),
			},
		},
		Redis: Redis{
			Enabled:  os.Getenv("REDIS_ENABLED") == "true",
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       atoiDefault(os.Getenv("REDIS_DB"), 0),
		},
		Kafka: Kafka{
			Enabled:          os.Getenv("KAFKA_ENABLED") == "true",
			Brokers:          splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			SMSTopic:         envDefault("KAFKA_SMS_TOPIC", "sms-notifications"),
			OrderEventsTopic: envDefault("KAFKA_ORDER_EVENTS_TOPIC", "order-events"),
		},
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func envDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return def
}

func parseDurationWithDays(s string) time.Duration {
	if strings.HasSuffix(s, "d") {
		daysStr := strings.TrimSuffix(s, "d")
		days, err := time.ParseDuration(daysStr + "h")
		if err != nil {
			stdlog.Printf("Ошибка парсинга TTL: %v", err)
			return 0
		}
		return time.Duration(24) * days
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return duration
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
