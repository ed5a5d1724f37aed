package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"launchScope/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS trade_events (
	pool_address  TEXT    NOT NULL,
	tx_hash       TEXT    NOT NULL,
	log_index     BIGINT  NOT NULL,
	trader        TEXT    NOT NULL,
	kind          TEXT    NOT NULL,
	amount        NUMERIC NOT NULL,
	counter_value NUMERIC NOT NULL,
	fee           NUMERIC NOT NULL,
	price         NUMERIC NOT NULL,
	ts            BIGINT  NOT NULL,
	block_number  BIGINT  NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (pool_address, tx_hash, log_index)
);
CREATE INDEX IF NOT EXISTS trade_events_pool_ts_idx ON trade_events (pool_address, ts DESC);
`

// Store provides durable trade persistence in Postgres. It satisfies
// the TradeCache contract; confirmed trades are immutable, so writes
// are insert-or-ignore keyed by (pool, tx hash, log index).
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, &model.ConfigurationError{Field: "pg-dsn", Reason: "required"}
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the trade_events table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// WriteTrades upserts trade records. Re-writing an already-stored trade
// is a no-op, which keeps the write-through idempotent.
func (s *Store) WriteTrades(ctx context.Context, pool string, records []model.TradeRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, record := range records {
		batch.Queue(`
			INSERT INTO trade_events (
				pool_address, tx_hash, log_index, trader, kind,
				amount, counter_value, fee, price, ts, block_number
			) VALUES ($1,$2,$3,$4,$5,$6::numeric,$7::numeric,$8::numeric,$9::numeric,$10,$11)
			ON CONFLICT (pool_address, tx_hash, log_index) DO NOTHING
		`,
			pool,
			record.TxHash,
			int64(record.LogIndex),
			record.Trader,
			string(record.Kind),
			bigText(record.Amount),
			bigText(record.CounterValue),
			bigText(record.Fee),
			bigText(record.Price),
			int64(record.Timestamp),
			int64(record.BlockNumber),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return &model.NetworkError{Op: "pg write trades", Err: err}
		}
	}
	return nil
}

// ReadTrades loads the stored trade set for a pool, newest first.
func (s *Store) ReadTrades(ctx context.Context, pool string) ([]model.TradeRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tx_hash, log_index, trader, kind,
		       amount::text, counter_value::text, fee::text, price::text,
		       ts, block_number
		FROM trade_events
		WHERE pool_address = $1
		ORDER BY ts DESC, block_number DESC, log_index DESC
	`, pool)
	if err != nil {
		return nil, &model.NetworkError{Op: "pg read trades", Err: err}
	}
	defer rows.Close()

	records := make([]model.TradeRecord, 0, 64)
	for rows.Next() {
		var (
			record                      model.TradeRecord
			kind                        string
			logIndex, ts, blockNumber   int64
			amount, counter, fee, price string
		)
		if err := rows.Scan(
			&record.TxHash, &logIndex, &record.Trader, &kind,
			&amount, &counter, &fee, &price, &ts, &blockNumber,
		); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}

		record.PoolAddress = pool
		record.Kind = model.TradeKind(kind)
		record.LogIndex = uint64(logIndex)
		record.Timestamp = uint64(ts)
		record.BlockNumber = uint64(blockNumber)
		if record.Amount, err = bigFromText(amount); err != nil {
			return nil, fmt.Errorf("amount: %w", err)
		}
		if record.CounterValue, err = bigFromText(counter); err != nil {
			return nil, fmt.Errorf("counter_value: %w", err)
		}
		if record.Fee, err = bigFromText(fee); err != nil {
			return nil, fmt.Errorf("fee: %w", err)
		}
		if record.Price, err = bigFromText(price); err != nil {
			return nil, fmt.Errorf("price: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.NetworkError{Op: "pg read trades", Err: err}
	}
	if len(records) == 0 {
		return nil, model.ErrNotFound
	}
	return records, nil
}

func bigText(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}

func bigFromText(value string) (*big.Int, error) {
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric: %s", value)
	}
	return parsed, nil
}
