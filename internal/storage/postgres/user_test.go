package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/authenticator/internal/models"
	"github.com/pribylovaa/authenticator/internal/storage"
)

// Интеграционные тесты репозитория пользователей на реальном PostgreSQL
// (testcontainers-go, postgres:16-alpine); схема применяется через Migrate,
// как при старте сервиса.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

func startPostgres(t *testing.T) *Storage {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	require.NoError(t, Migrate(dsn))
	require.NoError(t, Migrate(dsn), "повторный запуск миграций — no-op")

	st, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	return st
}

func newUser(email string, active bool) *models.User {
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		Name:         "Ann",
		IsActive:     active,
		DateJoined:   time.Now().UTC(),
	}
}

func TestIntegration_SaveUser_And_Lookup(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	u := newUser("user@example.com", false)
	require.NoError(t, st.SaveUser(ctx, u))
	require.NotEqual(t, uuid.Nil, u.Profile.ID)

	got, err := st.UserByEmail(ctx, "USER@example.com", false)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, u.ID, got.Profile.UserID)
	require.Equal(t, "Ann", got.Name)
	require.False(t, got.IsActive)

	_, err = st.UserByEmail(ctx, "user@example.com", true)
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByID(ctx, u.ID, true)
	require.ErrorIs(t, err, storage.ErrNotFound)

	got, err = st.UserByID(ctx, u.ID, false)
	require.NoError(t, err)
	require.WithinDuration(t, u.DateJoined, got.DateJoined, time.Second)
}

func TestIntegration_SaveUser_UniqueEmail(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	require.NoError(t, st.SaveUser(ctx, newUser("dup@example.com", false)))

	err := st.SaveUser(ctx, newUser("DUP@EXAMPLE.COM", false))
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestIntegration_ActivateUser(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	u := newUser("act@example.com", false)
	require.NoError(t, st.SaveUser(ctx, u))
	require.NoError(t, st.ActivateUser(ctx, u.ID))

	got, err := st.UserByID(ctx, u.ID, true)
	require.NoError(t, err)
	require.True(t, got.IsActive)

	require.ErrorIs(t, st.ActivateUser(ctx, uuid.New()), storage.ErrNotFound)
}

func TestIntegration_UpdatePassword_OnlyActive(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	inactive := newUser("inactive@example.com", false)
	require.NoError(t, st.SaveUser(ctx, inactive))
	require.ErrorIs(t, st.UpdatePassword(ctx, inactive.ID, "new"), storage.ErrNotFound)

	active := newUser("active@example.com", true)
	require.NoError(t, st.SaveUser(ctx, active))
	require.NoError(t, st.UpdatePassword(ctx, active.ID, "new-hash"))

	got, err := st.UserByID(ctx, active.ID, true)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)
}

func TestIntegration_UpdateUser_Coalesce(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	u := newUser("upd@example.com", true)
	require.NoError(t, st.SaveUser(ctx, u))

	thumb := "media/user-avatars/x/y.png"
	got, err := st.UpdateUser(ctx, u.ID, models.UserUpdate{Thumbnail: &thumb})
	require.NoError(t, err)
	require.Equal(t, "Ann", got.Name, "nil-поле не меняется")
	require.Equal(t, thumb, got.Thumbnail)

	name := "Bob"
	got, err = st.UpdateUser(ctx, u.ID, models.UserUpdate{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Bob", got.Name)
	require.Equal(t, thumb, got.Thumbnail)

	inactive := newUser("noupd@example.com", false)
	require.NoError(t, st.SaveUser(ctx, inactive))
	_, err = st.UpdateUser(ctx, inactive.ID, models.UserUpdate{Name: &name})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_ContextCanceled(t *testing.T) {
	st := startPostgres(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := st.UserByEmail(ctx, "x@example.com", true)
	require.ErrorIs(t, err, context.Canceled)
	require.NoError(t, st.Ping(context.Background()))
}
