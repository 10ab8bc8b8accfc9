// Package specs serves aircraft performance data and operating-manual
// topics from an embedded sqlite database. The schema is created and
// seeded on open, so a fresh in-memory store is fully usable; a file path
// lets deployments ship an extended database.
package specs

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound marks a missing aircraft or manual topic.
var ErrNotFound = errors.New("not found")

// Aircraft is one aircraft's performance record.
type Aircraft struct {
	TailNumber    string  `json:"tail_number"`
	Type          string  `json:"type"`
	MaxFuelGal    float64 `json:"max_fuel"`
	UsefulLoadLbs float64 `json:"useful_load"`
	CruiseSpeedKt float64 `json:"cruise_speed"`
	MaxRangeNM    float64 `json:"max_range"`
	BurnRateGPH   float64 `json:"burn_rate_gph"`
}

// ManualEntry is one operating-manual topic.
type ManualEntry struct {
	Topic string `json:"topic"`
	Text  string `json:"result"`
}

const schema = `
CREATE TABLE IF NOT EXISTS aircraft (
	tail_number   TEXT PRIMARY KEY,
	type          TEXT NOT NULL,
	max_fuel      REAL NOT NULL,
	useful_load   REAL NOT NULL,
	cruise_speed  REAL NOT NULL,
	max_range     REAL NOT NULL,
	burn_rate_gph REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS manual_topics (
	topic TEXT PRIMARY KEY,
	body  TEXT NOT NULL
);
`

var seedAircraft = []Aircraft{
	{"N12345", "Cessna 172", 53, 1100, 120, 450, 5.0},
	{"N67890", "Piper Cherokee", 48, 1050, 110, 400, 5.5},
}

var seedManual = []ManualEntry{
	{"crosswind_limits", "Maximum crosswind: 12 knots for Cessna 172. Demonstrated crosswind: 15 knots."},
	{"runway_requirements", "Minimum runway: 1500ft. Recommended: 2000ft for soft field operations."},
	{"weight_balance", "Check weight and balance before every flight. Max GW: 2450 lbs."},
}

// Store wraps the specs database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at dbPath. Empty or ":memory:" uses an
// in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open specs db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create specs schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.seed(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed specs db: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) seed() error {
	for _, a := range seedAircraft {
		_, err := s.db.Exec(`
			INSERT OR IGNORE INTO aircraft
				(tail_number, type, max_fuel, useful_load, cruise_speed, max_range, burn_rate_gph)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.TailNumber, a.Type, a.MaxFuelGal, a.UsefulLoadLbs, a.CruiseSpeedKt, a.MaxRangeNM, a.BurnRateGPH,
		)
		if err != nil {
			return err
		}
	}
	for _, m := range seedManual {
		if _, err := s.db.Exec(`INSERT OR IGNORE INTO manual_topics (topic, body) VALUES (?, ?)`, m.Topic, m.Text); err != nil {
			return err
		}
	}
	return nil
}

// Aircraft looks up an aircraft by tail number.
func (s *Store) Aircraft(tailNumber string) (*Aircraft, error) {
	var a Aircraft
	err := s.db.QueryRow(`
		SELECT tail_number, type, max_fuel, useful_load, cruise_speed, max_range, burn_rate_gph
		FROM aircraft WHERE tail_number = ?`, tailNumber,
	).Scan(&a.TailNumber, &a.Type, &a.MaxFuelGal, &a.UsefulLoadLbs, &a.CruiseSpeedKt, &a.MaxRangeNM, &a.BurnRateGPH)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("aircraft %s: %w", tailNumber, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query aircraft %s: %w", tailNumber, err)
	}
	return &a, nil
}

// BurnRateForType returns the fuel burn rate for an aircraft type name,
// falling back to 5.0 gph for unknown types.
func (s *Store) BurnRateForType(aircraftType string) float64 {
	var rate float64
	err := s.db.QueryRow(`SELECT burn_rate_gph FROM aircraft WHERE type = ? LIMIT 1`, aircraftType).Scan(&rate)
	if err != nil {
		return 5.0
	}
	return rate
}

// Manual looks up a manual topic.
func (s *Store) Manual(topic string) (*ManualEntry, error) {
	var m ManualEntry
	err := s.db.QueryRow(`SELECT topic, body FROM manual_topics WHERE topic = ?`, topic).Scan(&m.Topic, &m.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("topic %s: %w", topic, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query topic %s: %w", topic, err)
	}
	return &m, nil
}

// Topics lists all manual topics.
func (s *Store) Topics() ([]string, error) {
	rows, err := s.db.Query(`SELECT topic FROM manual_topics ORDER BY topic`)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var topics []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			continue
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}
