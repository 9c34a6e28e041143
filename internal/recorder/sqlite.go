package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists cycle history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the agent writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cycles (
			id                    INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp             INTEGER NOT NULL,
			total_funds           REAL,
			required_reserves     REAL,
			safety_buffer         REAL,
			deployable_funds      REAL,
			reserve_ratio         REAL,
			active_policies       INTEGER,
			upcoming_expirations  INTEGER,
			should_rebalance      INTEGER,
			reasons               TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON cycles(timestamp)`,

		`CREATE TABLE IF NOT EXISTS rebalances (
			id                   INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp            INTEGER NOT NULL,
			trigger_type         TEXT,
			reasons              TEXT,
			reserve_target       REAL,
			shortfall            REAL,
			shortfall_remaining  REAL,
			deployed             REAL,
			duration_ms          INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rebalances_ts ON rebalances(timestamp)`,

		`CREATE TABLE IF NOT EXISTS actions (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			rebalance_id  INTEGER NOT NULL,
			strategy      TEXT,
			kind          TEXT,
			amount        REAL,
			ok            INTEGER,
			reference     TEXT,
			error         TEXT,
			FOREIGN KEY (rebalance_id) REFERENCES rebalances(id)
		)`,

		`CREATE TABLE IF NOT EXISTS quotes (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			strategy  TEXT,
			apy       REAL,
			fallback  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quotes_ts ON quotes(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordCycle(rec *CycleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO cycles
		(timestamp, total_funds, required_reserves, safety_buffer, deployable_funds,
		 reserve_ratio, active_policies, upcoming_expirations, should_rebalance, reasons)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), rec.TotalFunds, rec.RequiredReserves, rec.SafetyBuffer,
		rec.DeployableFunds, rec.CurrentReserveRatio, rec.ActivePolicies,
		rec.UpcomingExpirations, rec.ShouldRebalance, rec.Reasons,
	)
	return err
}

func (r *SQLiteRecorder) RecordRebalance(rec *RebalanceRecord, actions []ActionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Exec(`INSERT INTO rebalances
		(timestamp, trigger_type, reasons, reserve_target, shortfall, shortfall_remaining, deployed, duration_ms)
		VALUES (?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), rec.Trigger, rec.Reasons, rec.ReserveTarget,
		rec.Shortfall, rec.ShortfallRemaining, rec.Deployed, rec.DurationMS,
	)
	if err != nil {
		return err
	}
	rebalanceID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, a := range actions {
		if _, err := r.db.Exec(`INSERT INTO actions
			(rebalance_id, strategy, kind, amount, ok, reference, error)
			VALUES (?,?,?,?,?,?,?)`,
			rebalanceID, a.Strategy, a.Kind, a.Amount, a.OK, a.Reference, a.Error,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordQuotes(quotes []QuoteRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, q := range quotes {
		if _, err := r.db.Exec(`INSERT INTO quotes (timestamp, strategy, apy, fallback)
			VALUES (?,?,?,?)`,
			q.ReadAt.Unix(), q.Strategy, q.APY, q.Fallback,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
