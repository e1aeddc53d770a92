package database

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), gormConfig())
}

func buildPostgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("postgres configuration requires user and database name")
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	params := []string{
		fmt.Sprintf("host=%s", quotePostgresValue(host)),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("user=%s", quotePostgresValue(cfg.User)),
		fmt.Sprintf("dbname=%s", quotePostgresValue(cfg.Name)),
	}

	if cfg.Password != "" {
		params = append(params, fmt.Sprintf("password=%s", quotePostgresValue(cfg.Password)))
	}

	// Sessions run in UTC so timestamptz values round-trip against the UTC clock.
	options := map[string]string{
		"sslmode":          "disable",
		"TimeZone":         "UTC",
		"application_name": "quizapi",
	}
	for key, value := range cfg.Options {
		options[key] = value
	}

	keys := make([]string, 0, len(options))
	for key := range options {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		params = append(params, fmt.Sprintf("%s=%s", key, quotePostgresValue(options[key])))
	}

	return strings.Join(params, " "), nil
}

// quotePostgresValue single-quotes keyword values that contain spaces, quotes or
// backslashes, as libpq expects.
func quotePostgresValue(value string) string {
	if value != "" && !strings.ContainsAny(value, " '\\") {
		return value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return "'" + escaped + "'"
}
