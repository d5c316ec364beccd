package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mundobebe/backoffice/auth"
	"github.com/mundobebe/backoffice/catalog"
	"github.com/mundobebe/backoffice/config"
	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/users"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("BACKOFFICE_DATABASE_DSN", "file:"+filepath.Join(t.TempDir(), "test.db"))
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestNewAndMigrate(t *testing.T) {
	cfg := testConfig(t)
	var logs bytes.Buffer
	operator := auth.StaticProvider{Session: &core.Session{UserID: "ops", Role: core.RoleSuperadmin}}

	a, err := New(context.Background(), cfg, WithLogOutput(&logs), WithSessions(operator))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.JWT)
	assert.Equal(t, operator, a.Sessions)

	ctx := context.Background()
	n, err := a.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, logs.String(), "applied migration 2: add lookup indexes")

	n, err = a.Migrate(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	c, err := a.Catalog.CreateCategory(ctx, catalog.CreateCategoryInput{Name: "Ropa"})
	require.NoError(t, err)
	assert.Equal(t, "ropa", c.Slug)

	u, err := a.Users.InviteAdmin(ctx, users.InviteInput{Email: "nueva@mundobebe.test", Role: core.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, users.StatusInvited, u.Status)
	assert.Contains(t, logs.String(), "invitation issued")
	assert.NotContains(t, logs.String(), "token=", "tokens stay out of info logs")
}

func TestNewWithJWT(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = "0123456789abcdef0123"

	a, err := New(context.Background(), cfg, WithLogOutput(&bytes.Buffer{}))
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.JWT)
	_, err = a.Migrate(context.Background())
	require.NoError(t, err)

	_, err = a.Catalog.GetCategoryCounts(context.Background())
	assert.Equal(t, core.KindUnauthenticated, core.KindOf(err))

	token, err := a.JWT.IssueToken(core.Session{UserID: "u1", Role: core.RoleAdmin}, cfg.Auth.TokenTTL)
	require.NoError(t, err)
	counts, err := a.Catalog.GetCategoryCounts(auth.WithToken(context.Background(), token))
	require.NoError(t, err)
	assert.Zero(t, counts.Active)
}

func TestNewFailsWhenLimiterRedisIsDown(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Backend = "redis"
	cfg.Redis.Addr = "127.0.0.1:1"

	_, err := New(context.Background(), cfg, WithLogOutput(&bytes.Buffer{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect redis 127.0.0.1:1")
}

func TestNewToleratesCacheRedisDown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Backend = "redis"
	cfg.Redis.Addr = "127.0.0.1:1"
	var logs bytes.Buffer

	a, err := New(context.Background(), cfg, WithLogOutput(&logs))
	require.NoError(t, err)
	defer a.Close()
	assert.Contains(t, logs.String(), "unreachable")
}
