// Package config loads knote configuration into the shared go-config store.
package config

import (
	"os"
	"path/filepath"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/knote/library/log"
)

// LoadFromFile loads the yaml configuration at cfgPath.
//
// A missing file is not fatal, knote can run on defaults and environment variables alone.
func LoadFromFile(cfgPath string) {
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Logger.Warn("configuration file not found, use defaults",
			zap.String("config", cfgPath))
		return
	}

	gconfig.Shared.Set("cfg_dir", filepath.Dir(cfgPath))
	if err := gconfig.Shared.LoadFromFile(cfgPath); err != nil {
		log.Logger.Panic("load configuration",
			zap.Error(err),
			zap.String("config", cfgPath))
	}

	log.Logger.Info("load configuration",
		zap.String("config", cfgPath))
}

// EnvBindings maps environment variables to configuration keys.
var EnvBindings = map[string]string{
	"UPLOAD_DIR":              "settings.upload_dir",
	"BLOB_TYPE":               "settings.blob.type",
	"MINIO_HOST":              "settings.minio.host",
	"MINIO_PORT":              "settings.minio.port",
	"MINIO_BUCKET":            "settings.minio.bucket",
	"MINIO_ACCESS_KEY":        "settings.minio.access_key",
	"MINIO_SECRET_KEY":        "settings.minio.secret_key",
	"MINIO_USE_SSL":           "settings.minio.use_ssl",
	"MINIO_RECONNECT_ENABLED": "settings.minio.reconnect_enabled",
	"DB_TYPE":                 "settings.db.type",
	"MONGO_URL":               "settings.db.mongo.uri",
	"SQLITE_PATH":             "settings.db.sqlite.path",
	"RENDER_MARKDOWN":         "settings.markdown.render_on_publish",
	"CORS_ALLOWED_ORIGINS":    "settings.web.allowed_origins",
}

// ApplyEnv overrides configuration keys with the environment variables in EnvBindings.
// lookup is usually os.LookupEnv.
func ApplyEnv(lookup func(string) (string, bool)) {
	for env, key := range EnvBindings {
		val, ok := lookup(env)
		if !ok {
			continue
		}

		gconfig.Shared.Set(key, val)
		log.Logger.Debug("override configuration by env",
			zap.String("env", env),
			zap.String("key", key))
	}
}
