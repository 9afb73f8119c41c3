package cmd

import (
	"fmt"
	"math"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"

	"github.com/Laisky/knote/library/config"
)

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates startup configuration from the shared config source.
// It returns an error when any configured value is malformed or violates constraints.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.S.Get(key)
	})
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// It accepts a value getter and returns nil when all configured values are valid.
func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateLoggerConfig(get, &validationErrs)
	validateBlobConfig(get, &validationErrs)
	validateMinioConfig(get, &validationErrs)
	validateDBConfig(get, &validationErrs)
	validateMarkdownConfig(get, &validationErrs)
	validateWebConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateLoggerConfig validates the log level flag.
func validateLoggerConfig(get configGetter, errs *[]string) {
	validateOptionalEnum(get, "log-level", []string{"debug", "info", "warn", "error"}, errs)
}

// validateBlobConfig validates where uploaded images are stored.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateBlobConfig(get configGetter, errs *[]string) {
	validateOptionalEnum(get, "settings.blob.type", []string{config.BlobTypeLocal, config.BlobTypeMinio}, errs)
	validateOptionalStringNonEmpty(get, "settings.upload_dir", errs)
}

// validateMinioConfig validates object storage settings.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateMinioConfig(get configGetter, errs *[]string) {
	validateOptionalHost(get, "settings.minio.host", errs)
	validateOptionalIntRange(get, "settings.minio.port", 1, 65535, errs)
	validateOptionalStringNonEmpty(get, "settings.minio.bucket", errs)
	validateOptionalBool(get, "settings.minio.use_ssl", errs)
	validateOptionalBool(get, "settings.minio.reconnect_enabled", errs)
	validateOptionalIntMin(get, "settings.minio.reconnect_interval_seconds", 1, errs)
	validateOptionalIntMin(get, "settings.minio.reconnect_max_attempts", 0, errs)
}

// validateDBConfig validates note store settings.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateDBConfig(get configGetter, errs *[]string) {
	validateOptionalEnum(get, "settings.db.type", []string{config.DBTypeMongo, config.DBTypeSqlite}, errs)
	validateOptionalURL(get, "settings.db.mongo.uri", errs)
	validateOptionalHost(get, "settings.db.mongo.addr", errs)
	validateOptionalStringNonEmpty(get, "settings.db.mongo.db", errs)
	validateOptionalStringNonEmpty(get, "settings.db.sqlite.path", errs)
}

// validateMarkdownConfig validates markdown rendering toggles.
func validateMarkdownConfig(get configGetter, errs *[]string) {
	validateOptionalBool(get, "settings.markdown.render_on_publish", errs)
}

// validateWebConfig validates http server settings.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateWebConfig(get configGetter, errs *[]string) {
	raw := get("settings.web.allowed_origins")
	if raw == nil {
		return
	}

	var hosts []string
	switch v := raw.(type) {
	case []string:
		hosts = v
	case []any:
		for i, item := range v {
			host, parseErr := parseStrictString(item)
			if parseErr != nil {
				appendValidationError(errs, "settings.web.allowed_origins[%d] must be a string", i)
				continue
			}
			hosts = append(hosts, host)
		}
	case string:
		hosts = strings.Split(v, ",")
	default:
		appendValidationError(errs, "settings.web.allowed_origins must be a list of hosts")
		return
	}

	for _, host := range hosts {
		if !isValidHost(host) {
			appendValidationError(errs, "settings.web.allowed_origins contains invalid host %q", host)
		}
	}
}

// validateOptionalBool validates an optionally configured boolean key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalIntMin validates an optionally configured integer key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalIntMin(get configGetter, key string, min int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalIntRange validates an optionally configured integer key within [min, max].
// It accepts a getter, the key, the bounds, and an error collector pointer and appends validation errors.
func validateOptionalIntRange(get configGetter, key string, min, max int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min || value > max {
		appendValidationError(errs, "%s must be within [%d, %d]", key, min, max)
	}
}

// validateOptionalEnum validates an optionally configured string key against allowed values.
// Comparison is case-insensitive.
func validateOptionalEnum(get configGetter, key string, allowed []string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	if !slices.Contains(allowed, strings.ToLower(strings.TrimSpace(value))) {
		appendValidationError(errs, "%s must be one of [%s]", key, strings.Join(allowed, ", "))
	}
}

// validateOptionalHost validates an optionally configured host or host:port key.
func validateOptionalHost(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil || !isValidHost(value) {
		appendValidationError(errs, "%s must be a valid host", key)
	}
}

// validateOptionalURL validates an optionally configured absolute URL key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalURL(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string URL", key)
		return
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		appendValidationError(errs, "%s must not be empty", key)
		return
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		appendValidationError(errs, "%s must be a valid absolute URL", key)
	}
}

// validateOptionalStringNonEmpty validates an optionally configured non-empty string key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalStringNonEmpty(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// parseStrictBool parses a value as boolean using strict conversion rules.
// It accepts a raw value and returns the parsed boolean and whether parsing succeeded.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		if math.Trunc(v) != v {
			return false, false
		}
		return int64(v) != 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false, false
		}
		switch strings.ToLower(trimmed) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// parseStrictInt parses a value as a strict integer.
// It accepts a raw value and returns the parsed int and an error when parsing fails.
func parseStrictInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.Trunc(v) != v {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty integer string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, errors.Wrap(err, "atoi")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported int type %T", value)
	}
}

// parseStrictString parses a value as a strict string.
// It accepts a raw value and returns the parsed string and an error when parsing fails.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// isValidHost validates a host or host:port string without scheme or path components.
func isValidHost(host string) bool {
	trimmed := strings.TrimSpace(host)
	if trimmed == "" || strings.ContainsAny(trimmed, " \t\r\n/\\@?#") {
		return false
	}

	name := trimmed
	if h, port, err := net.SplitHostPort(trimmed); err == nil {
		if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
			return false
		}
		name = h
	} else if net.ParseIP(trimmed) == nil && strings.Contains(trimmed, ":") {
		return false
	}

	if net.ParseIP(name) != nil {
		return true
	}

	return isValidHostname(name)
}

// isValidHostname checks dot separated labels of letters, digits, '-' and '_'.
func isValidHostname(name string) bool {
	if name == "" || len(name) > 253 {
		return false
	}

	for _, label := range strings.Split(name, ".") {
		if label == "" || len(label) > 63 ||
			label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}

		for _, r := range label {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			default:
				return false
			}
		}
	}

	return true
}

// appendValidationError appends a formatted validation error to the collector.
// It accepts an error slice pointer, a format string, and format arguments, and has no return value.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
