package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	testCases := []struct {
		name     string
		cfg      DatabaseConfig
		expected string
	}{
		{
			name:     "sqlite enables foreign keys",
			cfg:      DatabaseConfig{Driver: "sqlite", Path: "canteen.sqlite"},
			expected: "canteen.sqlite?_foreign_keys=on",
		},
		{
			name:     "sqlite keeps explicit options",
			cfg:      DatabaseConfig{Driver: "sqlite", Path: "file:test?mode=memory"},
			expected: "file:test?mode=memory",
		},
		{
			name:     "postgres from fields",
			cfg:      DatabaseConfig{Driver: "postgres", Host: "db", User: "u", Password: "p", Name: "canteen", Port: "5432", SSLMode: "disable"},
			expected: "host=db user=u password=p dbname=canteen port=5432 sslmode=disable",
		},
		{
			name:     "postgres url wins",
			cfg:      DatabaseConfig{Driver: "postgresql", Host: "ignored", URL: "postgres://u:p@db/canteen"},
			expected: "postgres://u:p@db/canteen",
		},
		{
			name:     "unknown driver",
			cfg:      DatabaseConfig{Driver: "oracle"},
			expected: "",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cfg.DSN())
		})
	}
}

func TestDatabaseConfigStringRedacts(t *testing.T) {
	cfg := DatabaseConfig{Driver: "postgres", Password: "hunter2", URL: "postgres://u:secretpw@db/canteen"}
	out := cfg.String()

	assert.False(t, strings.Contains(out, "hunter2"))
	assert.False(t, strings.Contains(out, "secretpw"))
}

func TestInitDatabaseRejectsUnknownDriver(t *testing.T) {
	_, err := InitDatabase(DatabaseConfig{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestInitDatabaseAndMigrateSQLite(t *testing.T) {
	db, err := InitDatabase(DatabaseConfig{Driver: "sqlite", Path: "file:migrate_test?mode=memory&cache=shared"})
	if !assert.NoError(t, err) {
		return
	}
	assert.NoError(t, Migrate(db))
	assert.True(t, db.Migrator().HasTable("menu_items"))
	assert.True(t, db.Migrator().HasTable("payments"))
	assert.True(t, db.Migrator().HasIndex("reviews", "idx_review_user_item"))
}
