// Package persistence archives model histories to SQLite. The archive is an
// export; running models are never restored from it.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/KhuramC/EconomySim-sub000/internal/engine"
	"github.com/KhuramC/EconomySim-sub000/internal/indicators"
)

// maxRetries bounds retries of a save that hit a locked database.
const maxRetries = 5

// DB wraps a SQLite connection for the history archive.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS models (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		week INTEGER NOT NULL,
		max_weeks INTEGER NOT NULL,
		population INTEGER NOT NULL,
		government_balance REAL NOT NULL,
		policies_json TEXT NOT NULL,
		saved_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS indicator_rows (
		model_id TEXT NOT NULL,
		week INTEGER NOT NULL,
		population INTEGER NOT NULL,
		gdp REAL NOT NULL,
		unemployment REAL NOT NULL,
		mean_income REAL NOT NULL,
		median_income REAL NOT NULL,
		income_sd REAL NOT NULL,
		income_p10 REAL NOT NULL,
		income_p25 REAL NOT NULL,
		income_p75 REAL NOT NULL,
		income_p90 REAL NOT NULL,
		gini REAL NOT NULL,
		total_balance REAL NOT NULL,
		tax_revenue REAL NOT NULL,
		government_balance REAL NOT NULL,
		total_inventory INTEGER NOT NULL,
		PRIMARY KEY (model_id, week)
	);

	CREATE TABLE IF NOT EXISTS industry_rows (
		model_id TEXT NOT NULL,
		week INTEGER NOT NULL,
		industry INTEGER NOT NULL,
		price REAL NOT NULL,
		inventory INTEGER NOT NULL,
		balance REAL NOT NULL,
		employees INTEGER NOT NULL,
		desired_employees INTEGER NOT NULL,
		offered_wage REAL NOT NULL,
		goods_produced INTEGER NOT NULL,
		goods_sold INTEGER NOT NULL,
		revenue REAL NOT NULL,
		cost REAL NOT NULL,
		profit REAL NOT NULL,
		weekly_pay REAL NOT NULL,
		PRIMARY KEY (model_id, week, industry)
	);

	CREATE TABLE IF NOT EXISTS demographic_rows (
		model_id TEXT NOT NULL,
		week INTEGER NOT NULL,
		demographic INTEGER NOT NULL,
		population INTEGER NOT NULL,
		mean_income REAL NOT NULL,
		mean_balance REAL NOT NULL,
		unemployment REAL NOT NULL,
		PRIMARY KEY (model_id, week, demographic)
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// ArchivedModel is the metadata row of a saved model.
type ArchivedModel struct {
	ID                string  `db:"id" json:"id"`
	Seed              int64   `db:"seed" json:"seed"`
	Week              int     `db:"week" json:"week"`
	MaxWeeks          int     `db:"max_weeks" json:"max_weeks"`
	Population        int     `db:"population" json:"population"`
	GovernmentBalance float64 `db:"government_balance" json:"government_balance"`
	PoliciesJSON      string  `db:"policies_json" json:"-"`
	SavedAt           string  `db:"saved_at" json:"saved_at"`
}

type indicatorRecord struct {
	ModelID string `db:"model_id"`
	indicators.IndicatorRow
}

type industryRecord struct {
	ModelID string `db:"model_id"`
	indicators.IndustryRow
}

type demographicRecord struct {
	ModelID string `db:"model_id"`
	indicators.DemographicRow
}

// SaveModel writes a model's metadata and full history, replacing any
// earlier save of the same id. Locked-database failures are retried with
// exponential backoff.
func (db *DB) SaveModel(id string, m *engine.Model) error {
	policies, err := json.Marshal(m.Policies())
	if err != nil {
		return fmt.Errorf("encode policies: %w", err)
	}
	meta := ArchivedModel{
		ID:                id,
		Seed:              m.Seed,
		Week:              m.Week(),
		MaxWeeks:          m.MaxSimulationLength,
		Population:        len(m.People),
		GovernmentBalance: m.Government.Balance,
		PoliciesJSON:      string(policies),
		SavedAt:           time.Now().UTC().Format(time.RFC3339),
	}

	op := func() error {
		err := db.saveModel(meta, &m.History)
		if err != nil && !isBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		slog.Warn("archive busy, retrying", "model", id, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), notify); err != nil {
		return fmt.Errorf("save model %s: %w", id, err)
	}

	slog.Info("model archived", "model", id, "week", meta.Week, "rows", len(m.History.Indicators))
	return nil
}

func (db *DB) saveModel(meta ArchivedModel, h *indicators.History) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"indicator_rows", "industry_rows", "demographic_rows"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE model_id = ?", meta.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.NamedExec(`INSERT OR REPLACE INTO models
		(id, seed, week, max_weeks, population, government_balance, policies_json, saved_at)
		VALUES (:id, :seed, :week, :max_weeks, :population, :government_balance, :policies_json, :saved_at)`,
		meta); err != nil {
		return fmt.Errorf("insert model: %w", err)
	}

	for _, row := range h.Indicators {
		_, err := tx.NamedExec(`INSERT INTO indicator_rows
			(model_id, week, population, gdp, unemployment, mean_income, median_income, income_sd,
			 income_p10, income_p25, income_p75, income_p90, gini, total_balance, tax_revenue,
			 government_balance, total_inventory)
			VALUES (:model_id, :week, :population, :gdp, :unemployment, :mean_income, :median_income, :income_sd,
			 :income_p10, :income_p25, :income_p75, :income_p90, :gini, :total_balance, :tax_revenue,
			 :government_balance, :total_inventory)`,
			indicatorRecord{ModelID: meta.ID, IndicatorRow: row})
		if err != nil {
			return fmt.Errorf("insert indicator row %d: %w", row.Week, err)
		}
	}

	for _, row := range h.Industries {
		_, err := tx.NamedExec(`INSERT INTO industry_rows
			(model_id, week, industry, price, inventory, balance, employees, desired_employees,
			 offered_wage, goods_produced, goods_sold, revenue, cost, profit, weekly_pay)
			VALUES (:model_id, :week, :industry, :price, :inventory, :balance, :employees, :desired_employees,
			 :offered_wage, :goods_produced, :goods_sold, :revenue, :cost, :profit, :weekly_pay)`,
			industryRecord{ModelID: meta.ID, IndustryRow: row})
		if err != nil {
			return fmt.Errorf("insert industry row %d/%s: %w", row.Week, row.Industry, err)
		}
	}

	for _, row := range h.Demographics {
		_, err := tx.NamedExec(`INSERT INTO demographic_rows
			(model_id, week, demographic, population, mean_income, mean_balance, unemployment)
			VALUES (:model_id, :week, :demographic, :population, :mean_income, :mean_balance, :unemployment)`,
			demographicRecord{ModelID: meta.ID, DemographicRow: row})
		if err != nil {
			return fmt.Errorf("insert demographic row %d/%s: %w", row.Week, row.Demographic, err)
		}
	}

	return tx.Commit()
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// ErrNotArchived is returned when no save exists for a model id.
var ErrNotArchived = errors.New("model not archived")

// Models lists every archived model, most recently saved first.
func (db *DB) Models() ([]ArchivedModel, error) {
	var out []ArchivedModel
	err := db.conn.Select(&out, "SELECT * FROM models ORDER BY saved_at DESC, id")
	return out, err
}

// Model returns the metadata of one archived model.
func (db *DB) Model(id string) (ArchivedModel, error) {
	var out ArchivedModel
	err := db.conn.Get(&out, "SELECT * FROM models WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return out, fmt.Errorf("%w: %s", ErrNotArchived, id)
		}
		return out, err
	}
	return out, nil
}

// IndicatorRows returns the archived indicator rows of a model in week order.
func (db *DB) IndicatorRows(id string) ([]indicators.IndicatorRow, error) {
	var recs []indicatorRecord
	if err := db.conn.Select(&recs, "SELECT * FROM indicator_rows WHERE model_id = ? ORDER BY week", id); err != nil {
		return nil, err
	}
	out := make([]indicators.IndicatorRow, len(recs))
	for i, r := range recs {
		out[i] = r.IndicatorRow
	}
	return out, nil
}

// IndustryRows returns the archived industry rows of a model.
func (db *DB) IndustryRows(id string) ([]indicators.IndustryRow, error) {
	var recs []industryRecord
	if err := db.conn.Select(&recs, "SELECT * FROM industry_rows WHERE model_id = ? ORDER BY week, industry", id); err != nil {
		return nil, err
	}
	out := make([]indicators.IndustryRow, len(recs))
	for i, r := range recs {
		out[i] = r.IndustryRow
	}
	return out, nil
}

// DemographicRows returns the archived demographic rows of a model.
func (db *DB) DemographicRows(id string) ([]indicators.DemographicRow, error) {
	var recs []demographicRecord
	if err := db.conn.Select(&recs, "SELECT * FROM demographic_rows WHERE model_id = ? ORDER BY week, demographic", id); err != nil {
		return nil, err
	}
	out := make([]indicators.DemographicRow, len(recs))
	for i, r := range recs {
		out[i] = r.DemographicRow
	}
	return out, nil
}

// DeleteModel removes a model's archive.
func (db *DB) DeleteModel(id string) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, table := range []string{"indicator_rows", "industry_rows", "demographic_rows"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE model_id = ?", id); err != nil {
			return err
		}
	}
	res, err := tx.Exec("DELETE FROM models WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotArchived, id)
	}
	return tx.Commit()
}
