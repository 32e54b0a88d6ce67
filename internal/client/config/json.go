package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/stegkeeper/internal/flagx"
	"github.com/dmitrijs2005/stegkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds.
type JsonConfig struct {
	ServiceURL          string         `json:"service_url"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	HistoryPollInterval timex.Duration `json:"history_poll_interval"`
	DatabaseDSN         string         `json:"database_dsn"`
	AuditDriver         string         `json:"audit_driver"`
	AuditDSN            string         `json:"audit_dsn"`
	OutputDir           string         `json:"output_dir"`
	ResultStore         string         `json:"result_store"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	S3AccessKey         string         `json:"s3_access_key"`
	S3SecretKey         string         `json:"s3_secret_key"`
	TokenSecret         string         `json:"token_secret"`
	LogLevel            string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Fields absent from the file keep their current value.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServiceURL, jc.ServiceURL)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.AuditDriver, jc.AuditDriver)
	setString(&cfg.AuditDSN, jc.AuditDSN)
	setString(&cfg.OutputDir, jc.OutputDir)
	setString(&cfg.ResultStore, jc.ResultStore)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)
	setString(&cfg.TokenSecret, jc.TokenSecret)
	setString(&cfg.LogLevel, jc.LogLevel)

	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.HistoryPollInterval.Duration > 0 {
		cfg.HistoryPollInterval = jc.HistoryPollInterval.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
