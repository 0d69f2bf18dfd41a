package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/avolkonsky/cloudvault/internal/flagx"
)

// duration accepts both "5m" strings and integer nanoseconds in JSON.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration: %s", string(b))
	}
}

// JsonConfig is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config struct.
type JsonConfig struct {
	EndpointAddrHTTP    string   `json:"endpoint_addr_http"`
	DatabaseDSN         string   `json:"database_dsn"`
	SecretKey           string   `json:"secret_key"`
	S3AccessKey         string   `json:"s3_access_key"`
	S3SecretKey         string   `json:"s3_secret_key"`
	S3Region            string   `json:"s3_region"`
	S3BaseEndpoint      string   `json:"s3_base_endpoint"`
	LocalStoragePath    string   `json:"local_storage_path"`
	RedisAddr           string   `json:"redis_addr"`
	MaxPasswordAttempts int64    `json:"max_password_attempts"`
	LockoutWindow       duration `json:"lockout_window"`
	StorageTimeout      duration `json:"storage_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; when neither is set, no JSON file is loaded. An unreadable or
// invalid file panics: a half-applied config is worse than a crash at boot.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.S3AccessKey = c.S3AccessKey
	config.S3SecretKey = c.S3SecretKey
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.LocalStoragePath = c.LocalStoragePath
	config.RedisAddr = c.RedisAddr
	config.MaxPasswordAttempts = c.MaxPasswordAttempts
	config.LockoutWindow = c.LockoutWindow.Duration
	config.StorageTimeout = c.StorageTimeout.Duration
}
