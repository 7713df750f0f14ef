package config

import (
	"github.com/spf13/viper"
)

type (
	Config struct {
		Library
		Database
		Scan
		Rescan
		Global
	}

	Library struct {
		Path string // root directory scanned for EPUB files
	}
	Database struct {
		Path string
	}
	Scan struct {
		Workers          int // concurrent per-file pipeline workers
		BatchSize        int // books committed per transaction
		CompressionLevel int // zstd level for chapter payloads
	}
	Rescan struct {
		Enabled  bool
		Schedule string // Cron format: "0 * * * *" = hourly
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("library_path", DefaultLibraryPath)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("scan_workers", 4)
	v.SetDefault("scan_batch_size", 8)
	v.SetDefault("scan_compression_level", 8)
	v.SetDefault("rescan_enabled", false)
	v.SetDefault("rescan_schedule", "0 * * * *") // Hourly at :00
	v.SetDefault("shutdown_timeout_in_seconds", 2)

	return &Config{
		Library: Library{
			Path: v.GetString("LIBRARY_PATH"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Scan: Scan{
			Workers:          v.GetInt("SCAN_WORKERS"),
			BatchSize:        v.GetInt("SCAN_BATCH_SIZE"),
			CompressionLevel: v.GetInt("SCAN_COMPRESSION_LEVEL"),
		},
		Rescan: Rescan{
			Enabled:  v.GetBool("RESCAN_ENABLED"),
			Schedule: v.GetString("RESCAN_SCHEDULE"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
	}
}
