package config

import (
	"time"

	"github.com/dmitrijs2005/stegkeeper/internal/client/client"
	"github.com/dmitrijs2005/stegkeeper/internal/client/storage"
)

// Config holds runtime settings for the stegkeeper CLI.
//
// Units: RequestTimeout and HistoryPollInterval are time.Duration values.
type Config struct {
	ServiceURL          string
	RequestTimeout      time.Duration
	HistoryPollInterval time.Duration

	DatabaseDSN string
	AuditDriver string
	AuditDSN    string

	OutputDir   string
	ResultStore string

	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string

	TokenSecret string
	LogLevel    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServiceURL = "http://127.0.0.1:5000/api"
	c.RequestTimeout = 60 * time.Second
	c.HistoryPollInterval = 3 * time.Second
	c.DatabaseDSN = "stegkeeper.db"
	c.AuditDriver = client.DriverSQLite
	c.OutputDir = "encoded"
	c.ResultStore = storage.KindLocal
	c.S3Region = "us-east-1"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// StorageOptions maps the result store settings onto storage.Options.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Kind:      c.ResultStore,
		OutputDir: c.OutputDir,
		S3: storage.S3Options{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
		},
	}
}

// AuditTarget returns the driver and DSN of the audit sink. Without an
// explicit DSN the SQLite sink shares the local database.
func (c *Config) AuditTarget() (driver, dsn string) {
	driver = c.AuditDriver
	if driver == "" {
		driver = client.DriverSQLite
	}
	dsn = c.AuditDSN
	if dsn == "" && driver == client.DriverSQLite {
		dsn = c.DatabaseDSN
	}
	return driver, dsn
}
