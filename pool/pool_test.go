package pool

import (
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAppliesLimits(t *testing.T) {
	p, err := Open("sqlite3", ":memory:", Config{MaxOpenConns: 2, ConnMaxLifetime: time.Minute})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 2, p.Stats().MaxOpenConnections)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("nope", "whatever", Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open nope")
}
