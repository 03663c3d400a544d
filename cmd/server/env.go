package main

import (
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// serverEnv is read from the environment (and a .env file when present).
// Flags default to these values.
type serverEnv struct {
	Addr      string `env:"RP_ADDR" envDefault:":8080"`
	RealmID   string `env:"RP_REALM_ID" envDefault:"realm_1"`
	ConfigDir string `env:"RP_CONFIG_DIR" envDefault:"./configs"`
	DataDir   string `env:"RP_DATA_DIR" envDefault:"./data"`

	IndexBackend string `env:"RP_INDEX_BACKEND" envDefault:"sqlite"`
	D1IngestURL  string `env:"RP_INDEX_D1_INGEST_URL"`
	D1Token      string `env:"RP_INDEX_D1_TOKEN"`
	D1FlushMs    int    `env:"RP_INDEX_D1_FLUSH_MS" envDefault:"500"`
	D1BatchSize  int    `env:"RP_INDEX_D1_BATCH_SIZE" envDefault:"128"`

	EnableAdmin    bool    `env:"RP_ENABLE_ADMIN_HTTP" envDefault:"true"`
	AdminTokenHash string  `env:"RP_ADMIN_TOKEN_BCRYPT"`
	EnablePprof    bool    `env:"RP_ENABLE_PPROF_HTTP" envDefault:"false"`
	WSMsgsPerSec   float64 `env:"RP_WS_MSGS_PER_SEC" envDefault:"2000"`
	WSBurst        int     `env:"RP_WS_BURST" envDefault:"500"`
	WSValidate     bool    `env:"RP_WS_VALIDATE" envDefault:"true"`
	JournalQueue   int     `env:"RP_JOURNAL_QUEUE" envDefault:"8192"`

	R2Endpoint        string `env:"RP_R2_ENDPOINT"`
	R2Bucket          string `env:"RP_R2_BUCKET"`
	R2AccessKeyID     string `env:"RP_R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `env:"RP_R2_SECRET_ACCESS_KEY"`
	R2Prefix          string `env:"RP_R2_PREFIX"`
	R2Queue           int    `env:"RP_R2_QUEUE" envDefault:"256"`
}

func loadEnv(logger *log.Logger) (serverEnv, error) {
	if err := godotenv.Load(); err != nil {
		logger.Printf("no .env file, using process environment")
	}
	var e serverEnv
	if err := env.Parse(&e); err != nil {
		return serverEnv{}, err
	}
	return e, nil
}
