package config

import (
	"fmt"
	"os"
)

type Config struct {
	DatabaseURL       string
	TemporalAddress   string
	HTTPListenAddr    string
	MetricsListenAddr string
	LogLevel          string
	ServiceName       string
	Region            string

	// Retention sweep cron schedule for the worker.
	SweepSchedule string

	// Worker engine settings.
	BackupDir          string
	ClusterURITemplate string

	// S3 export credentials for policy auto-export, optional.
	ExportS3Endpoint  string
	ExportS3Region    string
	ExportS3AccessKey string
	ExportS3SecretKey string

	// Temporal mTLS, optional.
	TemporalTLSCert       string
	TemporalTLSKey        string
	TemporalTLSCACert     string
	TemporalTLSServerName string
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		TemporalAddress:       getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		HTTPListenAddr:        getEnv("HTTP_LISTEN_ADDR", ":8080"),
		MetricsListenAddr:     getEnv("METRICS_LISTEN_ADDR", ":9090"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		ServiceName:           getEnv("SERVICE_NAME", ""),
		Region:                getEnv("REGION", ""),
		SweepSchedule:         getEnv("SWEEP_SCHEDULE", "0 * * * *"),
		BackupDir:             getEnv("BACKUP_DIR", "/var/backups/stratumdb"),
		ClusterURITemplate:    getEnv("CLUSTER_URI_TEMPLATE", "mongodb://%s.clusters.internal:27017"),
		ExportS3Endpoint:      getEnv("EXPORT_S3_ENDPOINT", ""),
		ExportS3Region:        getEnv("EXPORT_S3_REGION", "us-east-1"),
		ExportS3AccessKey:     getEnv("EXPORT_S3_ACCESS_KEY", ""),
		ExportS3SecretKey:     getEnv("EXPORT_S3_SECRET_KEY", ""),
		TemporalTLSCert:       getEnv("TEMPORAL_TLS_CERT", ""),
		TemporalTLSKey:        getEnv("TEMPORAL_TLS_KEY", ""),
		TemporalTLSCACert:     getEnv("TEMPORAL_TLS_CA_CERT", ""),
		TemporalTLSServerName: getEnv("TEMPORAL_TLS_SERVER_NAME", ""),
	}

	return cfg, nil
}

// Validate checks the fields a component cannot run without.
func (c *Config) Validate(component string) error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s requires DATABASE_URL", component)
	}
	if c.TemporalAddress == "" {
		return fmt.Errorf("%s requires TEMPORAL_ADDRESS", component)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
