package service

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
	"github.com/dev0xiinko/xiinko-trading-bot/pkg/db"
)

const tradesSchema = `
CREATE TABLE IF NOT EXISTS trades (
	id         BIGSERIAL PRIMARY KEY,
	inst_id    TEXT             NOT NULL,
	side       TEXT             NOT NULL,
	size       DOUBLE PRECISION NOT NULL,
	price      DOUBLE PRECISION NOT NULL,
	leverage   INT              NOT NULL,
	order_id   TEXT             NOT NULL DEFAULT '',
	simulated  BOOLEAN          NOT NULL DEFAULT FALSE,
	reason     TEXT             NOT NULL DEFAULT '',
	signal     JSONB,
	at         TIMESTAMPTZ      NOT NULL
);
CREATE INDEX IF NOT EXISTS trades_at_idx ON trades (at DESC);
`

// PgSink пишет сделки в Postgres. Живёт за тем же Sink, что и память:
// выбор делает модуль по DSN.
type PgSink struct {
	tm *db.PgTxManager
}

func NewPgSink(tm *db.PgTxManager) *PgSink {
	return &PgSink{tm: tm}
}

func (p *PgSink) EnsureSchema(ctx context.Context) error {
	return p.tm.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, tradesSchema)
		return err
	})
}

func (p *PgSink) Append(ctx context.Context, rec models.TradeRecord) error {
	var payload []byte
	if rec.Signal != nil {
		var err error
		if payload, err = sonic.Marshal(rec.Signal); err != nil {
			return fmt.Errorf("marshal signal: %w", err)
		}
	}
	return p.tm.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`INSERT INTO trades (inst_id, side, size, price, leverage, order_id, simulated, reason, signal, at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			rec.InstID, string(rec.Side), rec.Size, rec.Price, rec.Leverage,
			rec.OrderID, rec.Simulated, rec.Reason, payload, rec.At,
		)
		if err != nil {
			return fmt.Errorf("insert trade: %w", err)
		}
		return nil
	})
}

func (p *PgSink) Recent(ctx context.Context, limit int) ([]models.TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.tm.Conn().Query(ctx,
		`SELECT id, inst_id, side, size, price, leverage, order_id, simulated, reason, signal, at
		 FROM trades ORDER BY at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select trades: %w", err)
	}
	defer rows.Close()

	var out []models.TradeRecord
	for rows.Next() {
		var rec models.TradeRecord
		var side string
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.InstID, &side, &rec.Size, &rec.Price,
			&rec.Leverage, &rec.OrderID, &rec.Simulated, &rec.Reason, &payload, &rec.At); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		rec.Side = models.OrderSide(side)
		if len(payload) > 0 {
			var sig models.Signal
			if err := sonic.Unmarshal(payload, &sig); err == nil {
				rec.Signal = &sig
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
