package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDSN(t *testing.T) {
	o := Options{User: "app", Host: "db", Port: "3306", Name: "tables"}
	assert.Equal(t, "app@tcp(db:3306)/tables?charset=utf8mb4&parseTime=true&loc=UTC", o.DSN())

	o.Pass = "pw"
	assert.Equal(t, "app:pw@tcp(db:3306)/tables?charset=utf8mb4&parseTime=true&loc=UTC", o.DSN())
}

func TestMigrateRejectsUnknownCommand(t *testing.T) {
	err := Migrate(context.Background(), nil, "sideways")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sideways")
}
