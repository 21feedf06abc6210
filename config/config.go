package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Observ      ObservabilityConfig
	Marketplace MarketplaceConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers          []string
	TopicMarketplace string
	TopicBrokerPay   string
	ConsumerGroup    string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
	PrometheusPort string
}

// MarketplaceConfig holds the game-facing business knobs.
type MarketplaceConfig struct {
	// Alternate high-value currency (stackable inventory item). Disabled
	// by default; when disabled all payments are platinum-only.
	AltCurrencyEnabled bool
	AltCurrencyItemID  int64
	AltCurrencyName    string
	AltCurrencyValuePP int64

	// Item id used for money parcels (copper amount sent as parcel quantity).
	MoneyParcelItemID int64

	// Minimum account status for admin/GM endpoints.
	GMStatusThreshold int

	BrowseCacheTTLSeconds int
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	altValuePP, _ := strconv.ParseInt(getEnv("ALT_CURRENCY_VALUE_PLATINUM", "1000000"), 10, 64)
	altItemID, _ := strconv.ParseInt(getEnv("ALT_CURRENCY_ITEM_ID", "147623"), 10, 64)
	moneyItemID, _ := strconv.ParseInt(getEnv("MONEY_PARCEL_ITEM_ID", "99990"), 10, 64)
	gmThreshold, _ := strconv.Atoi(getEnv("GM_STATUS_THRESHOLD", "80"))
	browseTTL, _ := strconv.Atoi(getEnv("BROWSE_CACHE_TTL_SECONDS", "30"))
	altEnabled, _ := strconv.ParseBool(getEnv("USE_ALT_CURRENCY", "false"))

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			DSN: getEnv("DATABASE_DSN", "eqemu:secret@tcp(localhost:3306)/peq?parseTime=true&charset=utf8mb4"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:          strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicMarketplace: getEnv("KAFKA_TOPIC_MARKETPLACE_EVENTS", "marketplace-events"),
			TopicBrokerPay:   getEnv("KAFKA_TOPIC_BROKER_PAYMENTS", "broker-payment-events"),
			ConsumerGroup:    getEnv("KAFKA_CONSUMER_GROUP", "bazaar-service-group"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			PrometheusPort: getEnv("PROMETHEUS_PORT", "9090"),
		},
		Marketplace: MarketplaceConfig{
			AltCurrencyEnabled:    altEnabled,
			AltCurrencyItemID:     altItemID,
			AltCurrencyName:       getEnv("ALT_CURRENCY_NAME", "Alt Currency"),
			AltCurrencyValuePP:    altValuePP,
			MoneyParcelItemID:     moneyItemID,
			GMStatusThreshold:     gmThreshold,
			BrowseCacheTTLSeconds: browseTTL,
		},
	}

	log.Printf("Config loaded: env=%s, port=%s, alt_currency=%v", cfg.Server.Env, cfg.Server.Port, altEnabled)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
