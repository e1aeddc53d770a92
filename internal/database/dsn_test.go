package database

import (
	"testing"
	"time"
	_ "time/tzdata"

	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "quiz", Name: "quizzes"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=quiz dbname=quizzes TimeZone=UTC application_name=quizapi sslmode=disable", dsn)

	dsn, err = buildPostgresDSN(Config{
		User:     "user",
		Name:     "db",
		Host:     "db.example.com",
		Port:     6543,
		Password: "pass",
		Options:  map[string]string{"sslmode": "require", "search_path": "public"},
	})
	require.NoError(t, err)
	for _, part := range []string{"host=db.example.com", "port=6543", "password=pass", "sslmode=require", "search_path=public", "TimeZone=UTC"} {
		require.Contains(t, dsn, part)
	}
	require.NotContains(t, dsn, "sslmode=disable")

	_, err = buildPostgresDSN(Config{})
	require.Error(t, err)

	dsn, err = buildPostgresDSN(Config{DSN: "postgres://override"})
	require.NoError(t, err)
	require.Equal(t, "postgres://override", dsn)
}

func TestBuildPostgresDSNQuotesValues(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "quiz", Name: "quizzes", Password: `it's a \secret`})
	require.NoError(t, err)
	require.Contains(t, dsn, `password='it\'s a \\secret'`)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "quiz", Name: "quizzes"})
	require.NoError(t, err)
	require.Contains(t, dsn, "quiz@tcp(127.0.0.1:3306)/quizzes?")
	require.Contains(t, dsn, "charset=utf8mb4")

	parsed, err := driver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "quiz", parsed.User)
	require.Equal(t, "127.0.0.1:3306", parsed.Addr)
	require.Equal(t, "quizzes", parsed.DBName)
	require.True(t, parsed.ParseTime)
	require.Equal(t, time.UTC, parsed.Loc)

	dsn, err = buildMySQLDSN(Config{
		User:     "user",
		Password: "secret",
		Name:     "db",
		Host:     "db.example.com",
		Port:     3307,
		Options:  map[string]string{"tls": "skip-verify", "timeout": "5s"},
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "user:secret@tcp(db.example.com:3307)/db?")
	require.Contains(t, dsn, "tls=skip-verify")

	parsed, err = driver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "secret", parsed.Passwd)
	require.Equal(t, 5*time.Second, parsed.Timeout)

	_, err = buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)

	_, err = buildMySQLDSN(Config{User: "quiz", Name: "quizzes", Options: map[string]string{"parseTime": "maybe"}})
	require.Error(t, err)
}

func TestBuildMySQLDSNHonoursLocationOverride(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "quiz", Name: "quizzes", Options: map[string]string{"loc": "Europe/Paris"}})
	require.NoError(t, err)

	parsed, err := driver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "Europe/Paris", parsed.Loc.String())
}
