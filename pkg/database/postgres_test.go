package database

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/uni-wellbeing-api/pkg/config"
)

func TestIsolationLevel(t *testing.T) {
	assert.Equal(t, sql.LevelSerializable, IsolationLevel(config.IsolationSerializable))
	assert.Equal(t, sql.LevelReadCommitted, IsolationLevel(config.IsolationReadCommitted))
	assert.Equal(t, sql.LevelSerializable, IsolationLevel("bogus"))
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "svc", Password: "pw", Name: "uni_wellbeing", SSLMode: "require"})
	assert.Equal(t, "host=db port=5433 user=svc password=pw dbname=uni_wellbeing sslmode=require", dsn)
}
