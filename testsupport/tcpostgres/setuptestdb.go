//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/airsportlive/airsports-calculator-go/pkg/db/migrate"
	database "github.com/airsportlive/airsports-calculator-go/pkg/db/postgres"
)

// create a pg connection pool for the scoring testdatabase
func SetupTestDb() *pgxpool.Pool {
	ctx := context.Background()
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		log.Fatal(err)
	}
	container, err := SetupPostgres(ctx,
		WithPort(port.Port()),
		WithInitialDatabase("postgres", "password", "postgres"),
		WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
		WithName("airsports-calculator-test"),
	)
	if err != nil {
		log.Fatal(err)
	}
	containerPort, _ := container.MappedPort(ctx, port)
	host, _ := container.Host(ctx)
	dbURL := fmt.Sprintf("postgresql://postgres:password@%s:%s/postgres",
		host, containerPort.Port())

	return poolForURL(ctx, dbURL)
}

// SetupExternalTestDb connects to an already running database.
// Used on CI where the database is provided as a service container.
func SetupExternalTestDb(dbURL string) *pgxpool.Pool {
	return poolForURL(context.Background(), dbURL)
}

func poolForURL(ctx context.Context, dbURL string) *pgxpool.Pool {
	if err := migrate.MigrateDb(dbURL); err != nil {
		log.Fatal(err)
	}
	pool, err := database.InitWithURL(ctx, dbURL)
	if err != nil {
		log.Fatal(err)
	}
	return pool
}

func ClearPositionTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from positions")
}

func ClearScoreLogTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from score_log")
}

func ClearAnnotationTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from annotations")
}

func ClearContestantTables(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from contestant_tracks")
	pool.Exec(context.Background(), "delete from contestants")
}

func ClearNavigationTaskTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from navigation_tasks")
}

func ClearDeviceTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from devices")
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearPositionTable(pool)
	ClearScoreLogTable(pool)
	ClearAnnotationTable(pool)
	ClearContestantTables(pool)
	ClearNavigationTaskTable(pool)
	ClearDeviceTable(pool)
}
