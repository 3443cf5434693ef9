// Package db provides SQLite-backed persistence for simulation output.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/maitreyeee/passengersim/sim"
)

// batchSize bounds how many rows share one transaction. Detail tables
// receive millions of rows on a full run; per-row commits would dominate
// the wall clock.
const batchSize = 5000

// SQLiteSink writes simulation records to a SQLite file. All writes come
// from a single goroutine, so no internal locking is needed.
type SQLiteSink struct {
	db    *sql.DB
	runID string
	fast  bool

	tx      *sql.Tx
	pending int
}

// New opens or creates the database at path. With fast set, the
// high-volume per-checkpoint detail tables are skipped and only
// trial-level and run-level aggregates are written.
func New(path string, fast bool) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := conn.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := conn.Exec(`PRAGMA synchronous=NORMAL`); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	s := &SQLiteSink{db: conn, runID: uuid.NewString(), fast: fast}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// RunID identifies this run in the runtime_configs table.
func (s *SQLiteSink) RunID() string { return s.runID }

func (s *SQLiteSink) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runtime_configs (
			run_id      TEXT PRIMARY KEY,
			scenario    TEXT NOT NULL,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS leg_defs (
			scenario    TEXT NOT NULL,
			flt_no      INTEGER NOT NULL,
			carrier     TEXT NOT NULL,
			orig        TEXT NOT NULL,
			dest        TEXT NOT NULL,
			dep_time    INTEGER NOT NULL,
			arr_time    INTEGER NOT NULL,
			capacity    INTEGER NOT NULL,
			distance    REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fare_defs (
			scenario     TEXT NOT NULL,
			fare_id      INTEGER NOT NULL,
			carrier      TEXT NOT NULL,
			orig         TEXT NOT NULL,
			dest         TEXT NOT NULL,
			booking_class TEXT NOT NULL,
			price        REAL NOT NULL,
			adv_purchase INTEGER NOT NULL,
			restrictions TEXT,
			category     TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS leg_detail (
			scenario    TEXT NOT NULL,
			trial       INTEGER NOT NULL,
			sample      INTEGER NOT NULL,
			days_prior  INTEGER NOT NULL,
			flt_no      INTEGER NOT NULL,
			sold        INTEGER NOT NULL,
			revenue     REAL NOT NULL,
			demand      REAL NOT NULL,
			fcst_mean   REAL NOT NULL,
			bid_price   REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS leg_bucket_detail (
			scenario    TEXT NOT NULL,
			trial       INTEGER NOT NULL,
			sample      INTEGER NOT NULL,
			days_prior  INTEGER NOT NULL,
			flt_no      INTEGER NOT NULL,
			bucket_number INTEGER NOT NULL,
			name        TEXT NOT NULL,
			auth        INTEGER NOT NULL,
			sold        INTEGER NOT NULL,
			revenue     REAL NOT NULL,
			fcst_mean   REAL NOT NULL,
			fcst_stdev  REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS demand_detail (
			scenario      TEXT NOT NULL,
			trial         INTEGER NOT NULL,
			sample        INTEGER NOT NULL,
			orig          TEXT NOT NULL,
			dest          TEXT NOT NULL,
			segment       TEXT NOT NULL,
			sample_demand INTEGER NOT NULL,
			sold          INTEGER NOT NULL,
			no_go         INTEGER NOT NULL,
			revenue       REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fare_detail (
			scenario      TEXT NOT NULL,
			trial         INTEGER NOT NULL,
			sample        INTEGER NOT NULL,
			days_prior    INTEGER NOT NULL,
			fare_id       INTEGER NOT NULL,
			sold          INTEGER NOT NULL,
			sold_business INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bookings_by_timeframe (
			scenario      TEXT NOT NULL,
			trial         INTEGER NOT NULL,
			carrier       TEXT NOT NULL,
			booking_class TEXT NOT NULL,
			days_prior    INTEGER NOT NULL,
			tot_sold      REAL NOT NULL,
			avg_sold      REAL NOT NULL,
			avg_business  REAL NOT NULL,
			avg_leisure   REAL NOT NULL,
			avg_revenue   REAL NOT NULL,
			avg_price     REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS leg_summary (
			scenario    TEXT NOT NULL,
			flt_no      INTEGER NOT NULL,
			carrier     TEXT NOT NULL,
			orig        TEXT NOT NULL,
			dest        TEXT NOT NULL,
			avg_sold    REAL NOT NULL,
			avg_revenue REAL NOT NULL,
			load_factor REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS carrier_summary (
			scenario    TEXT NOT NULL,
			carrier     TEXT NOT NULL,
			avg_revenue REAL NOT NULL,
			avg_sold    REAL NOT NULL,
			load_factor REAL NOT NULL,
			yield       REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leg_detail_key
			ON leg_detail(trial, sample, days_prior)`,
		`CREATE INDEX IF NOT EXISTS idx_leg_bucket_detail_key
			ON leg_bucket_detail(trial, sample, days_prior)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// WriteDefs records the run identity and the static network definitions.
func (s *SQLiteSink) WriteDefs(sc *sim.Scenario) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(
		`INSERT INTO runtime_configs (run_id, scenario, created_at) VALUES (?,?,?)`,
		s.runID, sc.Name, time.Now().UnixNano(),
	); err != nil {
		return fmt.Errorf("failed to insert run record: %w", err)
	}
	for _, leg := range sc.Legs {
		if _, err := tx.Exec(`
			INSERT INTO leg_defs
				(scenario, flt_no, carrier, orig, dest, dep_time, arr_time, capacity, distance)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			sc.Name, leg.FltNo, leg.Carrier, leg.Orig, leg.Dest,
			leg.DepTime, leg.ArrTime, leg.Capacity, leg.Distance,
		); err != nil {
			return fmt.Errorf("failed to insert leg def: %w", err)
		}
	}
	for _, f := range sc.Fares {
		if _, err := tx.Exec(`
			INSERT INTO fare_defs
				(scenario, fare_id, carrier, orig, dest, booking_class,
				 price, adv_purchase, restrictions, category)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			sc.Name, f.ID, f.Carrier, f.Orig, f.Dest, f.BookingClass,
			f.Price, f.AdvancePurchase, strings.Join(f.Restrictions, ","), f.Category,
		); err != nil {
			return fmt.Errorf("failed to insert fare def: %w", err)
		}
	}
	return tx.Commit()
}

// Write appends one record to its table, batching rows into shared
// transactions.
func (s *SQLiteSink) Write(rec sim.Record) error {
	if s.fast {
		switch rec.(type) {
		case sim.LegDetail, sim.LegBucketDetail, sim.FareDetail, sim.DemandDetail:
			return nil
		}
	}
	if s.tx == nil {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		s.tx = tx
	}
	if err := s.insert(rec); err != nil {
		return err
	}
	s.pending++
	if s.pending >= batchSize {
		return s.flush()
	}
	return nil
}

func (s *SQLiteSink) insert(rec sim.Record) error {
	var err error
	switch r := rec.(type) {
	case sim.LegDetail:
		_, err = s.tx.Exec(`
			INSERT INTO leg_detail
				(scenario, trial, sample, days_prior, flt_no, sold, revenue, demand, fcst_mean, bid_price)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			r.Scenario, r.Trial, r.Sample, r.DaysPrior, r.FltNo,
			r.Sold, r.Revenue, r.Demand, r.FcstMean, r.BidPrice)
	case sim.LegBucketDetail:
		_, err = s.tx.Exec(`
			INSERT INTO leg_bucket_detail
				(scenario, trial, sample, days_prior, flt_no, bucket_number,
				 name, auth, sold, revenue, fcst_mean, fcst_stdev)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			r.Scenario, r.Trial, r.Sample, r.DaysPrior, r.FltNo, r.BucketNumber,
			r.Name, r.Auth, r.Sold, r.Revenue, r.FcstMean, r.FcstStdev)
	case sim.DemandDetail:
		_, err = s.tx.Exec(`
			INSERT INTO demand_detail
				(scenario, trial, sample, orig, dest, segment, sample_demand, sold, no_go, revenue)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			r.Scenario, r.Trial, r.Sample, r.Orig, r.Dest, r.Segment,
			r.SampleDemand, r.Sold, r.NoGo, r.Revenue)
	case sim.FareDetail:
		_, err = s.tx.Exec(`
			INSERT INTO fare_detail
				(scenario, trial, sample, days_prior, fare_id, sold, sold_business)
			VALUES (?,?,?,?,?,?,?)`,
			r.Scenario, r.Trial, r.Sample, r.DaysPrior, r.FareID, r.Sold, r.SoldBusiness)
	case sim.BookingsByTimeframe:
		_, err = s.tx.Exec(`
			INSERT INTO bookings_by_timeframe
				(scenario, trial, carrier, booking_class, days_prior,
				 tot_sold, avg_sold, avg_business, avg_leisure, avg_revenue, avg_price)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			r.Scenario, r.Trial, r.Carrier, r.BookingClass, r.DaysPrior,
			r.TotSold, r.AvgSold, r.AvgBusiness, r.AvgLeisure, r.AvgRevenue, r.AvgPrice)
	case sim.LegSummary:
		_, err = s.tx.Exec(`
			INSERT INTO leg_summary
				(scenario, flt_no, carrier, orig, dest, avg_sold, avg_revenue, load_factor)
			VALUES (?,?,?,?,?,?,?,?)`,
			r.Scenario, r.FltNo, r.Carrier, r.Orig, r.Dest,
			r.AvgSold, r.AvgRevenue, r.LoadFactor)
	case sim.CarrierSummary:
		_, err = s.tx.Exec(`
			INSERT INTO carrier_summary
				(scenario, carrier, avg_revenue, avg_sold, load_factor, yield)
			VALUES (?,?,?,?,?,?)`,
			r.Scenario, r.Carrier, r.AvgRevenue, r.AvgSold, r.LoadFactor, r.Yield)
	default:
		return fmt.Errorf("unknown record type %T", rec)
	}
	if err != nil {
		return fmt.Errorf("failed to insert %s row: %w", rec.Table(), err)
	}
	return nil
}

func (s *SQLiteSink) flush() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	s.pending = 0
	if err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Close commits any pending batch and closes the database.
func (s *SQLiteSink) Close() error {
	if err := s.flush(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}
