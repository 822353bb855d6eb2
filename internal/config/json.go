package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/coursestore/internal/flagx"
	"github.com/dmitrijs2005/coursestore/internal/timex"
)

// JsonConfig is the DTO for the JSON config file. Every field is optional;
// only present keys override the current values.
type JsonConfig struct {
	StorageBackend *string `json:"storage_backend"`
	StorageDSN     *string `json:"storage_dsn"`
	KeyPrefix      *string `json:"key_prefix"`

	S3Bucket       *string `json:"s3_bucket"`
	S3Region       *string `json:"s3_region"`
	S3BaseEndpoint *string `json:"s3_base_endpoint"`
	S3AccessKey    *string `json:"s3_access_key"`
	S3SecretKey    *string `json:"s3_secret_key"`

	SessionTTL   *timex.Duration `json:"session_ttl"`
	PaymentDelay *timex.Duration `json:"payment_delay"`
	CatalogFile  *string         `json:"catalog_file"`

	AdminName     *string `json:"admin_name"`
	AdminEmail    *string `json:"admin_email"`
	AdminPassword *string `json:"admin_password"`

	LogBackend *string `json:"log_backend"`
	LogFormat  *string `json:"log_format"`
	LogLevel   *string `json:"log_level"`
}

// parseJson overlays cfg with the file named by -c/-config, if any.
// It panics on read or decode errors.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.StorageBackend, jc.StorageBackend)
	setString(&cfg.StorageDSN, jc.StorageDSN)
	setString(&cfg.KeyPrefix, jc.KeyPrefix)

	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)

	if jc.SessionTTL != nil {
		cfg.SessionTTL = jc.SessionTTL.Duration
	}
	if jc.PaymentDelay != nil {
		cfg.PaymentDelay = jc.PaymentDelay.Duration
	}
	setString(&cfg.CatalogFile, jc.CatalogFile)

	setString(&cfg.AdminName, jc.AdminName)
	setString(&cfg.AdminEmail, jc.AdminEmail)
	setString(&cfg.AdminPassword, jc.AdminPassword)

	setString(&cfg.LogBackend, jc.LogBackend)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.LogLevel, jc.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
