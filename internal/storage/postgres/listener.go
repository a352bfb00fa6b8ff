package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolListener holds one pooled connection for the lifetime of a Listen call.
type PoolListener struct {
	pool *pgxpool.Pool
}

func NewPoolListener(pool *pgxpool.Pool) *PoolListener {
	return &PoolListener{pool: pool}
}

func (l *PoolListener) Listen(ctx context.Context, channel string, onListening func(), fn func(payload string)) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener conn: %w", err)
	}
	defer conn.Release()
	defer func() {
		_, _ = conn.Exec(context.Background(), "UNLISTEN *")
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", channel, err)
	}
	if onListening != nil {
		onListening()
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		fn(n.Payload)
	}
}
