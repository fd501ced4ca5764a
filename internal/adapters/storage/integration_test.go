//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/okian/pitwall/internal/config"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/scoring"
	"github.com/okian/pitwall/pkg/logger"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) (host, mapped string) {
	t.Helper()
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err = c.Host(ctx)
	require.NoError(t, err)
	p, err := c.MappedPort(ctx, port)
	require.NoError(t, err)
	return host, p.Port()
}

func exerciseBackend(t *testing.T, backend, dsn string) {
	t.Helper()
	ctx := context.Background()

	var (
		s   *Store
		err error
	)
	// the server may accept connections a moment after the ready log line
	require.Eventually(t, func() bool {
		s, err = Open(ctx, backend, dsn, WithLogger(logger.Nop()))
		return err == nil
	}, 30*time.Second, time.Second)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Migrate(ctx, -1)
	require.NoError(t, err)

	race, err := s.CreateRace(ctx, model.Race{Name: "Bahrain", Location: "Sakhir", Date: time.Now(), Season: 2025, Round: 1, IsActive: true})
	require.NoError(t, err)

	_, err = s.CreateDriver(ctx, model.Driver{ID: "VER", Name: "Max Verstappen", Number: 1, Team: "Red Bull", Code: "VER", IsActive: true})
	require.NoError(t, err)
	_, err = s.CreateDriver(ctx, model.Driver{Name: "Dup", Number: 2, Team: "X", Code: "VER"})
	require.ErrorIs(t, err, ErrConflict)

	bet, err := s.UpsertBet(ctx, "alice", race.ID, scoring.Prediction{
		Positions: []scoring.PredictionPosition{{Position: 1, DriverID: "VER"}},
	})
	require.NoError(t, err)

	updated, err := s.ReplaceResults(ctx, race.ID, []scoring.Result{{DriverID: "VER", Position: scoring.IntPtr(1)}}, "VER")
	require.NoError(t, err)
	require.Equal(t, 1, updated.ResultsRevision)

	require.NoError(t, s.SaveScore(ctx, bet.ID, updated.ResultsRevision, scoring.Breakdown{TotalScore: 45}))
	total, ok, err := s.UserTotal(ctx, "alice", 2025)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 45, total)

	v, err := s.Migrate(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, uint(0), v)
}

func TestPostgresBackend(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env:          map[string]string{"POSTGRES_HOST_AUTH_METHOD": "trust"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithStartupTimeout(60 * time.Second),
	}, "5432")
	exerciseBackend(t, config.BackendPostgres, fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port))
}

func TestMySQLBackend(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "pitwall",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}, "3306")
	exerciseBackend(t, config.BackendMySQL, fmt.Sprintf("root:secret123@tcp(%s:%s)/pitwall", host, port))
}
