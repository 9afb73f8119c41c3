package config

import (
	"strconv"
	"strings"
	"time"

	gconfig "github.com/Laisky/go-config/v2"
)

const (
	// BlobTypeLocal stores uploads in a local directory
	BlobTypeLocal = "local"
	// BlobTypeMinio stores uploads in a minio bucket
	BlobTypeMinio = "minio"

	// DBTypeMongo stores notes in mongodb
	DBTypeMongo = "mongo"
	// DBTypeSqlite stores notes in a sqlite file
	DBTypeSqlite = "sqlite"
)

// Settings captures runtime configuration of knote.
type Settings struct {
	UploadDir      string
	BlobType       string
	RenderMarkdown bool
	Minio          MinioSettings
	DB             DBSettings
	Web            WebSettings
}

// MinioSettings configures the object storage sink.
type MinioSettings struct {
	Host                 string
	Port                 int
	Bucket               string
	AccessKey            string
	SecretKey            string
	UseSSL               bool
	ReconnectEnabled     bool
	ReconnectInterval    time.Duration
	ReconnectMaxAttempts int
}

// Endpoint returns host:port used to dial minio.
func (s MinioSettings) Endpoint() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// DBSettings configures the note store.
type DBSettings struct {
	Type   string
	Mongo  MongoSettings
	Sqlite SqliteSettings
}

// MongoSettings configures the mongodb note store.
type MongoSettings struct {
	URI    string
	Addr   string
	DBName string
	User   string
	Pwd    string
	AuthDB string
}

// SqliteSettings configures the sqlite note store.
type SqliteSettings struct {
	Path string
}

// WebSettings configures the http server.
type WebSettings struct {
	// AllowedOrigins are hosts allowed to make cross-origin requests, subdomains included
	AllowedOrigins []string
}

// LoadSettings reads configuration and applies defaults.
func LoadSettings() Settings {
	settings := Settings{
		UploadDir:      stringFromConfig("settings.upload_dir", "/tmp/uploads/"),
		BlobType:       strings.ToLower(stringFromConfig("settings.blob.type", BlobTypeLocal)),
		RenderMarkdown: boolFromConfig("settings.markdown.render_on_publish", true),
		Minio: MinioSettings{
			Host:                 stringFromConfig("settings.minio.host", "localhost"),
			Port:                 intFromConfig("settings.minio.port", 9000),
			Bucket:               stringFromConfig("settings.minio.bucket", "image-storage"),
			AccessKey:            stringFromConfig("settings.minio.access_key", ""),
			SecretKey:            stringFromConfig("settings.minio.secret_key", ""),
			UseSSL:               boolFromConfig("settings.minio.use_ssl", false),
			ReconnectEnabled:     boolFromConfig("settings.minio.reconnect_enabled", true),
			ReconnectInterval:    time.Duration(intFromConfig("settings.minio.reconnect_interval_seconds", 5)) * time.Second,
			ReconnectMaxAttempts: intFromConfig("settings.minio.reconnect_max_attempts", 0),
		},
		DB: DBSettings{
			Type: strings.ToLower(stringFromConfig("settings.db.type", DBTypeMongo)),
			Mongo: MongoSettings{
				URI:    stringFromConfig("settings.db.mongo.uri", ""),
				Addr:   stringFromConfig("settings.db.mongo.addr", "localhost:27017"),
				DBName: stringFromConfig("settings.db.mongo.db", "knote"),
				User:   stringFromConfig("settings.db.mongo.user", ""),
				Pwd:    stringFromConfig("settings.db.mongo.pwd", ""),
				AuthDB: stringFromConfig("settings.db.mongo.auth_db", ""),
			},
			Sqlite: SqliteSettings{
				Path: stringFromConfig("settings.db.sqlite.path", "/tmp/knote.db"),
			},
		},
		Web: WebSettings{
			AllowedOrigins: stringsFromConfig("settings.web.allowed_origins"),
		},
	}

	if settings.Minio.Port <= 0 {
		settings.Minio.Port = 9000
	}
	if settings.Minio.ReconnectInterval <= 0 {
		settings.Minio.ReconnectInterval = 5 * time.Second
	}
	if settings.Minio.ReconnectMaxAttempts < 0 {
		settings.Minio.ReconnectMaxAttempts = 0
	}

	return settings
}

// stringFromConfig reads a trimmed string configuration value with a default fallback.
func stringFromConfig(key string, def string) string {
	switch v := gconfig.S.Get(key).(type) {
	case string:
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
		return def
	default:
		return def
	}
}

// stringsFromConfig reads a string list, a comma separated string is also accepted.
func stringsFromConfig(key string) (vals []string) {
	var raw []string
	switch v := gconfig.S.Get(key).(type) {
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = strings.Split(v, ",")
	}

	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			vals = append(vals, s)
		}
	}

	return vals
}

// intFromConfig reads an int configuration value with a default fallback.
func intFromConfig(key string, def int) int {
	switch v := gconfig.S.Get(key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// boolFromConfig reads a bool configuration value with a default fallback.
func boolFromConfig(key string, def bool) bool {
	switch v := gconfig.S.Get(key).(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}
