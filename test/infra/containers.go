package infra

import (
	"context"

	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PGContainer wraps a throwaway Postgres. The zero value stands for an
// externally managed database and terminates as a no-op.
type PGContainer struct {
	C *postgres.PostgresContainer
}

// StartPostgres starts a postgres:16 container and returns its DSN.
func StartPostgres(ctx context.Context) (*PGContainer, string, error) {
	pgC, err := postgres.Run(ctx,
		"postgres:16",
		postgres.WithDatabase("chargemind"),
		postgres.WithUsername("chargemind"),
		postgres.WithPassword("chargemind"),
	)
	if err != nil {
		return nil, "", err
	}

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgC.Terminate(ctx)
		return nil, "", err
	}
	return &PGContainer{C: pgC}, dsn, nil
}

func (p *PGContainer) Terminate(ctx context.Context) error {
	if p == nil || p.C == nil {
		return nil
	}
	return p.C.Terminate(ctx)
}
