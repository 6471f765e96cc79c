package server

import "github.com/spf13/viper"

func GetServerDefault() BaseServerConfig {
	return BaseServerConfig{
		ShutdownTimeout: "10s",

		Storage: StorageServerConfig{
			Root:     "/var/ideascube",
			DataRoot: "",
		},
		Backup: BackupServerConfig{
			Root:     "",
			SourceID: "",
			Version:  "",
			Format:   "zip",
		},
		Database: DatabaseServerConfig{
			DurablePath:   "",
			TransientPath: "",
			MaxOpenConns:  1,
			LogLevel:      "silent",
			Routes: []DatabaseRouteConfig{
				{Namespace: "search", Name: "search", Backend: "transient"},
			},
		},
		HTTP: HTTPServerConfig{
			Enabled:      true,
			Address:      "127.0.0.1:8080",
			ReadTimeout:  "30s",
			WriteTimeout: "30m",
			MaxUploadMB:  4096,
			Metrics:      true,
		},
		Log: LogServerConfig{
			Level:      "INFO",
			TimeFormat: "2006-01-02 15:04:05",
			File:       "",
			NoColor:    false,
			JSON:       false,
			NoTerminal: false,
			Rotation: LogServerRotationConfig{
				MaxSize:    128,
				MaxBackups: 5,
				MaxAge:     16,
				Compress:   false,
			},
		},
	}
}

func setDefaults() {
	defaults := GetServerDefault()

	viper.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)

	viper.SetDefault("storage.root", defaults.Storage.Root)
	viper.SetDefault("storage.data_root", defaults.Storage.DataRoot)

	viper.SetDefault("backup.root", defaults.Backup.Root)
	viper.SetDefault("backup.source_id", defaults.Backup.SourceID)
	viper.SetDefault("backup.version", defaults.Backup.Version)
	viper.SetDefault("backup.format", defaults.Backup.Format)

	viper.SetDefault("database.durable_path", defaults.Database.DurablePath)
	viper.SetDefault("database.transient_path", defaults.Database.TransientPath)
	viper.SetDefault("database.max_open_conns", defaults.Database.MaxOpenConns)
	viper.SetDefault("database.log_level", defaults.Database.LogLevel)
	viper.SetDefault("database.routes", defaults.Database.Routes)

	viper.SetDefault("http.enabled", defaults.HTTP.Enabled)
	viper.SetDefault("http.address", defaults.HTTP.Address)
	viper.SetDefault("http.read_timeout", defaults.HTTP.ReadTimeout)
	viper.SetDefault("http.write_timeout", defaults.HTTP.WriteTimeout)
	viper.SetDefault("http.max_upload_mb", defaults.HTTP.MaxUploadMB)
	viper.SetDefault("http.metrics", defaults.HTTP.Metrics)

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.time_format", defaults.Log.TimeFormat)
	viper.SetDefault("log.file", defaults.Log.File)
	viper.SetDefault("log.no_color", defaults.Log.NoColor)
	viper.SetDefault("log.json", defaults.Log.JSON)
	viper.SetDefault("log.no_terminal", defaults.Log.NoTerminal)
	viper.SetDefault("log.rotation.max_size", defaults.Log.Rotation.MaxSize)
	viper.SetDefault("log.rotation.max_backups", defaults.Log.Rotation.MaxBackups)
	viper.SetDefault("log.rotation.max_age", defaults.Log.Rotation.MaxAge)
	viper.SetDefault("log.rotation.compress", defaults.Log.Rotation.Compress)
}
