package config

import (
	"flag"
	"regexp"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Сервер
	DatabaseDSN string        `env:"DATABASE_URI"`
	AuthSecret  string        `env:"AUTH_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL"`
	BaseURL     string        `env:"BASE_URL"`
	EnableHTTPS bool          `env:"ENABLE_HTTPS"`
	TLSCert     string        `env:"TLS_CERT"`
	TLSKey      string        `env:"TLS_KEY"`

	// Хранилище ключей: "fs" или "s3"
	KeystoreBackend string `env:"KEYSTORE_BACKEND"`
	KeystoreDir     string `env:"KEYSTORE_DIR"`
	KeystoreSecret  string `env:"KEYSTORE_SECRET"`

	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION"`
	S3UseSSL    bool   `env:"S3_USE_SSL"`
	S3Prefix    string `env:"S3_PREFIX"`

	// Argon2id
	Argon2Time        uint32 `env:"ARGON2_TIME_COST"`
	Argon2MemoryKiB   uint32 `env:"ARGON2_MEMORY_COST"`
	Argon2Parallelism uint8  `env:"ARGON2_PARALLELISM"`
	KDFWorkers        int    `env:"KDF_WORKERS"`
}

var hostPortRe = regexp.MustCompile(`^[A-Za-z0-9\.\-]*:\d{1,5}$`)

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags работают ТОЛЬКО если переменные из env не заданы
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД (postgres DSN или путь к SQLite)")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "срок жизни токена сессии")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "адрес сервера host:port")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "включить HTTPS")
	flag.StringVar(&cfg.TLSCert, "tls-cert", cfg.TLSCert, "путь к сертификату TLS")
	flag.StringVar(&cfg.TLSKey, "tls-key", cfg.TLSKey, "путь к ключу TLS")
	flag.StringVar(&cfg.KeystoreBackend, "keystore", cfg.KeystoreBackend, "хранилище ключей: fs или s3")
	flag.StringVar(&cfg.KeystoreDir, "keystore-dir", cfg.KeystoreDir, "каталог ключей для fs")
	flag.IntVar(&cfg.KDFWorkers, "kdf-workers", cfg.KDFWorkers, "сколько вычислений Argon2 идёт одновременно")

	flag.Parse()

	// Defaults
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	// BaseURL: только "address:port" без схемы и пути, иначе адрес по умолчанию
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}
	if cfg.EnableHTTPS {
		if cfg.TLSCert == "" {
			cfg.TLSCert = "cert.pem"
		}
		if cfg.TLSKey == "" {
			cfg.TLSKey = "key.pem"
		}
	}
	if cfg.KeystoreBackend == "" {
		cfg.KeystoreBackend = "fs"
	}
	if cfg.KeystoreDir == "" {
		cfg.KeystoreDir = "keys"
	}
	if cfg.KeystoreSecret == "" {
		cfg.KeystoreSecret = cfg.AuthSecret
	}
	if cfg.S3Bucket == "" {
		cfg.S3Bucket = "passkeeper"
	}
	if cfg.S3Region == "" {
		cfg.S3Region = "us-east-1"
	}
	if cfg.KDFWorkers <= 0 {
		cfg.KDFWorkers = 4
	}

	return cfg
}
