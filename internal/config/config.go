package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	LedgerBackendSheets = "sheets"
	LedgerBackendMySQL  = "mysql"
	LedgerBackendSQLite = "sqlite"
	LedgerBackendMemory = "memory"
)

type Config struct {
	TronscanURL  string
	FetchTimeout time.Duration

	PriceURL       string
	PriceCoinID    string
	PriceFallback  decimal.Decimal
	PriceTimeout   time.Duration
	RedisAddr      string
	PriceCacheTTL  time.Duration
	NativeSymbol   string
	LedgerBackend  string
	SheetsCredFile string
	SheetID        string
	Worksheet      string
	LedgerDSN      string
	StoreTimeout   time.Duration

	BotUserID   string
	BotName     string
	HTTPAddr    string
	CORSOrigins []string

	KafkaBrokers      []string
	KafkaTriggerTopic string
	KafkaOutcomeTopic string
	KafkaGroupID      string
	OtelEndpoint      string

	ImportDelay    time.Duration
	ImportCallerID string

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
}

// SheetURL links to the backing spreadsheet, empty for other backends.
func (c Config) SheetURL() string {
	if c.LedgerBackend != LedgerBackendSheets || c.SheetID == "" {
		return ""
	}
	return "https://docs.google.com/spreadsheets/d/" + c.SheetID
}

type EnvSource interface {
	Lookup(key string) (string, bool)
}

type EnvMap map[string]string

func (e EnvMap) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

func FromEnviron() EnvSource {
	env := make(EnvMap)
	for _, entry := range os.Environ() {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		env[parts[0]] = parts[1]
	}
	return env
}

func Load(source EnvSource) (Config, error) {
	if source == nil {
		return Config{}, errors.New("env source is required")
	}

	fetchTimeout, err := parseDurationEnv(source, "FETCH_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, err
	}
	priceTimeout, err := parseDurationEnv(source, "PRICE_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	priceCacheTTL, err := parseDurationEnv(source, "PRICE_CACHE_TTL", time.Minute)
	if err != nil {
		return Config{}, err
	}
	storeTimeout, err := parseDurationEnv(source, "STORE_TIMEOUT", 20*time.Second)
	if err != nil {
		return Config{}, err
	}
	importDelay, err := parseDurationEnv(source, "IMPORT_DELAY", 2*time.Second)
	if err != nil {
		return Config{}, err
	}

	priceFallback := decimal.RequireFromString("0.07")
	if raw, ok := source.Lookup("PRICE_FALLBACK_USD"); ok && strings.TrimSpace(raw) != "" {
		parsed, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return Config{}, fmt.Errorf("invalid PRICE_FALLBACK_USD: %w", err)
		}
		if !parsed.IsPositive() {
			return Config{}, errors.New("invalid PRICE_FALLBACK_USD: must be positive")
		}
		priceFallback = parsed
	}

	backend := strings.ToLower(stringEnv(source, "LEDGER_BACKEND", LedgerBackendSheets))
	sheetID := stringEnv(source, "GOOGLE_SHEET_ID", "")
	ledgerDSN := stringEnv(source, "LEDGER_DB_DSN", "")
	switch backend {
	case LedgerBackendSheets:
		if sheetID == "" {
			return Config{}, errors.New("GOOGLE_SHEET_ID is required for the sheets ledger backend")
		}
	case LedgerBackendMySQL:
		if ledgerDSN == "" {
			return Config{}, errors.New("LEDGER_DB_DSN is required for the mysql ledger backend")
		}
	case LedgerBackendSQLite:
		if ledgerDSN == "" {
			ledgerDSN = "txledger.db"
		}
	case LedgerBackendMemory:
	default:
		return Config{}, fmt.Errorf("invalid LEDGER_BACKEND: %q", backend)
	}

	kafkaBrokers, err := parseList(source, "KAFKA_BROKERS", "")
	if err != nil {
		return Config{}, err
	}

	corsOrigins, err := parseList(source, "CORS_ALLOWED_ORIGINS", "*")
	if err != nil {
		return Config{}, err
	}

	logMaxSize, err := parseUintEnv(source, "LOG_MAX_SIZE_MB", 100)
	if err != nil {
		return Config{}, err
	}
	logMaxBackups, err := parseUintEnv(source, "LOG_MAX_BACKUPS", 3)
	if err != nil {
		return Config{}, err
	}

	return Config{
		TronscanURL:       stringEnv(source, "TRONSCAN_API_URL", "https://apilist.tronscan.org/api"),
		FetchTimeout:      fetchTimeout,
		PriceURL:          stringEnv(source, "PRICE_API_URL", "https://api.coingecko.com/api/v3"),
		PriceCoinID:       stringEnv(source, "PRICE_COIN_ID", "tron"),
		PriceFallback:     priceFallback,
		PriceTimeout:      priceTimeout,
		RedisAddr:         stringEnv(source, "REDIS_ADDR", ""),
		PriceCacheTTL:     priceCacheTTL,
		NativeSymbol:      stringEnv(source, "NATIVE_SYMBOL", "TRX"),
		LedgerBackend:     backend,
		SheetsCredFile:    stringEnv(source, "GOOGLE_SHEETS_CREDS_FILE", "service_account.json"),
		SheetID:           sheetID,
		Worksheet:         stringEnv(source, "LEDGER_WORKSHEET", "Transactions"),
		LedgerDSN:         ledgerDSN,
		StoreTimeout:      storeTimeout,
		BotUserID:         stringEnv(source, "BOT_USER_ID", ""),
		BotName:           stringEnv(source, "BOT_NAME", "LedgerBot"),
		HTTPAddr:          stringEnv(source, "HTTP_ADDR", ":8080"),
		CORSOrigins:       corsOrigins,
		KafkaBrokers:      kafkaBrokers,
		KafkaTriggerTopic: stringEnv(source, "KAFKA_TRIGGER_TOPIC", "txledger-triggers"),
		KafkaOutcomeTopic: stringEnv(source, "KAFKA_OUTCOME_TOPIC", "txledger-outcomes"),
		KafkaGroupID:      stringEnv(source, "KAFKA_GROUP_ID", "txledger-bot"),
		OtelEndpoint:      stringEnv(source, "OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ImportDelay:       importDelay,
		ImportCallerID:    stringEnv(source, "IMPORT_CALLER_ID", "BULK_IMPORT"),
		LogLevel:          stringEnv(source, "LOG_LEVEL", "info"),
		LogFile:           stringEnv(source, "LOG_FILE", ""),
		LogMaxSizeMB:      int(logMaxSize),
		LogMaxBackups:     int(logMaxBackups),
	}, nil
}

func stringEnv(source EnvSource, key string, defaultValue string) string {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	return strings.TrimSpace(raw)
}

func parseDurationEnv(source EnvSource, key string, defaultValue time.Duration) (time.Duration, error) {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	duration, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration", key)
	}
	return duration, nil
}

func parseUintEnv(source EnvSource, key string, defaultValue uint64) (uint64, error) {
	raw, ok := source.Lookup(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

// parseList returns nil when the key and default are both empty.
func parseList(source EnvSource, key string, defaultValue string) ([]string, error) {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		raw = defaultValue
	}
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	items := strings.Split(raw, ",")
	var values []string
	for _, item := range items {
		value := strings.TrimSpace(item)
		if value == "" {
			continue
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s is empty", key)
	}
	return values, nil
}
