package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"
)

// registros de mensajes del player que ningún proceso tocó en días: el bot que los creó ya no existe
const staleAfter = "2 days"

func handler(ctx context.Context) (string, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return "no DATABASE_URL", nil
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Sprintf("parse: %v", err), nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Sprintf("pool: %v", err), nil
	}
	defer pool.Close()

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := pool.Exec(cctx, `DELETE FROM player_messages WHERE updated_at < now() - $1::interval;`, staleAfter)
	if err != nil {
		return fmt.Sprintf("prune: %v", err), nil
	}

	return fmt.Sprintf("ok (%d player messages pruned)", tag.RowsAffected()), nil
}

func main() { lambda.Start(handler) }
