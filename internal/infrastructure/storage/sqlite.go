package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

const lastSummaryDateKey = "last_summary_date"

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS symbol_states (
			symbol TEXT PRIMARY KEY,
			avg_entry REAL NOT NULL DEFAULT 0,
			total_base REAL NOT NULL DEFAULT 0,
			open_buy_orders TEXT NOT NULL DEFAULT '[]',
			open_sell_orders TEXT NOT NULL DEFAULT '[]',
			anchor_price REAL NOT NULL DEFAULT 0,
			last_signal_ts INTEGER NOT NULL DEFAULT 0,
			tp_basis REAL NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			qty REAL NOT NULL,
			price REAL NOT NULL,
			pnl_usd REAL NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_created_at ON trades(created_at);`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	// Migration: tp_basis arrived after the first deployments. We ignore
	// the error when the column already exists.
	_, _ = s.db.Exec(`ALTER TABLE symbol_states ADD COLUMN tp_basis REAL NOT NULL DEFAULT 0`)

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// StateRepository Implementation

func (s *SQLiteStore) LoadState(ctx context.Context, symbol string) (*domain.SymbolState, error) {
	query := `SELECT symbol, avg_entry, total_base, open_buy_orders, open_sell_orders, anchor_price, last_signal_ts, tp_basis
			  FROM symbol_states WHERE symbol = ?`
	row := s.db.QueryRowContext(ctx, query, symbol)

	var st domain.SymbolState
	var buyJSON, sellJSON string
	err := row.Scan(&st.Symbol, &st.AvgEntry, &st.TotalBase, &buyJSON, &sellJSON, &st.AnchorPrice, &st.LastSignalTS, &st.TPBasis)
	if err == sql.ErrNoRows {
		// A symbol never saved starts flat and unarmed.
		return domain.NewSymbolState(symbol), nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(buyJSON), &st.OpenBuyOrders); err != nil {
		return nil, fmt.Errorf("corrupt open_buy_orders for %s: %w", symbol, err)
	}
	if err := json.Unmarshal([]byte(sellJSON), &st.OpenSellOrders); err != nil {
		return nil, fmt.Errorf("corrupt open_sell_orders for %s: %w", symbol, err)
	}
	return &st, nil
}

func (s *SQLiteStore) SaveState(ctx context.Context, state *domain.SymbolState) error {
	buyJSON, err := json.Marshal(state.OpenBuyOrders)
	if err != nil {
		return err
	}
	sellJSON, err := json.Marshal(state.OpenSellOrders)
	if err != nil {
		return err
	}

	query := `INSERT INTO symbol_states (symbol, avg_entry, total_base, open_buy_orders, open_sell_orders, anchor_price, last_signal_ts, tp_basis, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(symbol) DO UPDATE SET
			  avg_entry=excluded.avg_entry,
			  total_base=excluded.total_base,
			  open_buy_orders=excluded.open_buy_orders,
			  open_sell_orders=excluded.open_sell_orders,
			  anchor_price=excluded.anchor_price,
			  last_signal_ts=excluded.last_signal_ts,
			  tp_basis=excluded.tp_basis,
			  updated_at=excluded.updated_at`
	_, err = s.db.ExecContext(ctx, query,
		state.Symbol, state.AvgEntry, state.TotalBase, string(buyJSON), string(sellJSON),
		state.AnchorPrice, state.LastSignalTS, state.TPBasis, time.Now().UTC())
	return err
}

func (s *SQLiteStore) ListStates(ctx context.Context) ([]*domain.SymbolState, error) {
	query := `SELECT symbol, avg_entry, total_base, open_buy_orders, open_sell_orders, anchor_price, last_signal_ts, tp_basis
			  FROM symbol_states ORDER BY symbol`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []*domain.SymbolState
	for rows.Next() {
		var st domain.SymbolState
		var buyJSON, sellJSON string
		if err := rows.Scan(&st.Symbol, &st.AvgEntry, &st.TotalBase, &buyJSON, &sellJSON, &st.AnchorPrice, &st.LastSignalTS, &st.TPBasis); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(buyJSON), &st.OpenBuyOrders); err != nil {
			return nil, fmt.Errorf("corrupt open_buy_orders for %s: %w", st.Symbol, err)
		}
		if err := json.Unmarshal([]byte(sellJSON), &st.OpenSellOrders); err != nil {
			return nil, fmt.Errorf("corrupt open_sell_orders for %s: %w", st.Symbol, err)
		}
		states = append(states, &st)
	}
	return states, rows.Err()
}

// LedgerRepository Implementation

func (s *SQLiteStore) AppendTrade(ctx context.Context, entry *domain.TradeEntry) error {
	query := `INSERT INTO trades (symbol, side, qty, price, pnl_usd, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		entry.Symbol, entry.Side, entry.Qty, entry.Price, entry.PnLUSD, entry.CreatedAt.UTC())
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

func (s *SQLiteStore) ListTrades(ctx context.Context, limit int) ([]*domain.TradeEntry, error) {
	query := `SELECT id, symbol, side, qty, price, pnl_usd, created_at FROM trades ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrades(rows)
}

func (s *SQLiteStore) TradesSince(ctx context.Context, since time.Time) ([]*domain.TradeEntry, error) {
	query := `SELECT id, symbol, side, qty, price, pnl_usd, created_at FROM trades WHERE created_at >= ? ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, query, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrades(rows)
}

func scanTrades(rows *sql.Rows) ([]*domain.TradeEntry, error) {
	var trades []*domain.TradeEntry
	for rows.Next() {
		var t domain.TradeEntry
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Side, &t.Qty, &t.Price, &t.PnLUSD, &t.CreatedAt); err != nil {
			return nil, err
		}
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) LastSummaryDate(ctx context.Context) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, lastSummaryDateKey)
	var value string
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *SQLiteStore) SetLastSummaryDate(ctx context.Context, date string) error {
	query := `INSERT INTO meta (key, value) VALUES (?, ?)
			  ON CONFLICT(key) DO UPDATE SET value=excluded.value`
	_, err := s.db.ExecContext(ctx, query, lastSummaryDateKey, date)
	return err
}
