package archive

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"
	_ "modernc.org/sqlite" // SQLite driver
)

// RunMeta describes an archived run.
type RunMeta struct {
	ID                  string    `json:"id"`
	CreatedAt           time.Time `json:"created_at"`
	Rounds              int       `json:"rounds"`
	SimulationsPerRound int       `json:"simulations_per_round"`
	Seed                uint64    `json:"seed"`
	Observation         []float64 `json:"observation"`
	Config              string    `json:"config,omitempty"`
}

// StoredRound is one archived round record.
type StoredRound struct {
	Round       int         `json:"round"`
	ProposalTag string      `json:"proposal_tag"`
	Theta       [][]float64 `json:"theta"`
	Obs         [][]float64 `json:"observations"`
}

// SQLiteArchive persists runs in a SQLite database at <dir>/sequor.db.
type SQLiteArchive struct {
	mu     sync.RWMutex
	db     *sql.DB
	dir    string
	dbPath string
}

// Open creates or opens the archive rooted at dir.
func Open(dir string) (*SQLiteArchive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	dbPath := filepath.Join(dir, "sequor.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteArchive{db: db, dir: dir, dbPath: dbPath}, nil
}

// Close closes the underlying database.
func (a *SQLiteArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.db.Close()
}

// Dir returns the archive directory.
func (a *SQLiteArchive) Dir() string { return a.dir }

// NewRunID derives a short content-addressed run identifier.
func NewRunID(seed uint64, createdAt time.Time) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%d/%s", seed, createdAt.UTC().Format(time.RFC3339Nano))))
	return "run-" + hex.EncodeToString(h[:6])
}

// CreateRun records run metadata and returns the stored meta.
func (a *SQLiteArchive) CreateRun(ctx context.Context, meta RunMeta) (RunMeta, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	if meta.ID == "" {
		meta.ID = NewRunID(meta.Seed, meta.CreatedAt)
	}

	obsJSON, err := json.Marshal(meta.Observation)
	if err != nil {
		return RunMeta{}, fmt.Errorf("encoding observation: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, rounds, simulations_per_round, seed, observation, config)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.CreatedAt.Format(time.RFC3339Nano), meta.Rounds,
		meta.SimulationsPerRound, int64(meta.Seed), string(obsJSON), meta.Config)
	if err != nil {
		return RunMeta{}, fmt.Errorf("inserting run %s: %w", meta.ID, err)
	}
	return meta, nil
}

// AppendRound archives one round's training data.
func (a *SQLiteArchive) AppendRound(ctx context.Context, runID string, round int, tag string, theta, obs *mat.Dense) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	thetaJSON, err := json.Marshal(matrixRows(theta))
	if err != nil {
		return fmt.Errorf("encoding theta: %w", err)
	}
	obsJSON, err := json.Marshal(matrixRows(obs))
	if err != nil {
		return fmt.Errorf("encoding observations: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO round_records (run_id, round, proposal_tag, theta, observations)
		VALUES (?, ?, ?, ?, ?)`,
		runID, round, tag, string(thetaJSON), string(obsJSON))
	if err != nil {
		return fmt.Errorf("inserting round %d of run %s: %w", round, runID, err)
	}
	return nil
}

// SavePosterior archives the fitted model for one round. The model must be
// JSON-serializable.
func (a *SQLiteArchive) SavePosterior(ctx context.Context, runID string, round int, model any) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("encoding model: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO posteriors (run_id, round, model) VALUES (?, ?, ?)`,
		runID, round, string(data))
	if err != nil {
		return fmt.Errorf("inserting posterior %d of run %s: %w", round, runID, err)
	}
	return nil
}

// ListRuns returns all archived runs, newest first.
func (a *SQLiteArchive) ListRuns(ctx context.Context) ([]RunMeta, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, created_at, rounds, simulations_per_round, seed, observation, COALESCE(config, '')
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunMeta
	for rows.Next() {
		meta, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

// GetRun returns a single archived run by ID.
func (a *SQLiteArchive) GetRun(ctx context.Context, runID string) (RunMeta, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	row := a.db.QueryRowContext(ctx, `
		SELECT id, created_at, rounds, simulations_per_round, seed, observation, COALESCE(config, '')
		FROM runs WHERE id = ?`, runID)
	meta, err := scanRun(row)
	if err == sql.ErrNoRows {
		return RunMeta{}, fmt.Errorf("run %s not found", runID)
	}
	return meta, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(r rowScanner) (RunMeta, error) {
	var meta RunMeta
	var createdAt, obsJSON string
	var seed int64
	if err := r.Scan(&meta.ID, &createdAt, &meta.Rounds, &meta.SimulationsPerRound, &seed, &obsJSON, &meta.Config); err != nil {
		return RunMeta{}, err
	}
	meta.Seed = uint64(seed)

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return RunMeta{}, fmt.Errorf("parsing created_at of run %s: %w", meta.ID, err)
	}
	meta.CreatedAt = ts

	if err := json.Unmarshal([]byte(obsJSON), &meta.Observation); err != nil {
		return RunMeta{}, fmt.Errorf("decoding observation of run %s: %w", meta.ID, err)
	}
	return meta, nil
}

// LoadRounds returns all archived rounds of a run in round order.
func (a *SQLiteArchive) LoadRounds(ctx context.Context, runID string) ([]StoredRound, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rows, err := a.db.QueryContext(ctx, `
		SELECT round, proposal_tag, theta, observations
		FROM round_records WHERE run_id = ? ORDER BY round`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying rounds of run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []StoredRound
	for rows.Next() {
		var sr StoredRound
		var thetaJSON, obsJSON string
		if err := rows.Scan(&sr.Round, &sr.ProposalTag, &thetaJSON, &obsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(thetaJSON), &sr.Theta); err != nil {
			return nil, fmt.Errorf("decoding theta of round %d: %w", sr.Round, err)
		}
		if err := json.Unmarshal([]byte(obsJSON), &sr.Obs); err != nil {
			return nil, fmt.Errorf("decoding observations of round %d: %w", sr.Round, err)
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

// LoadPosterior decodes the archived model of one round into model.
// round < 1 selects the final round.
func (a *SQLiteArchive) LoadPosterior(ctx context.Context, runID string, round int, model any) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var data string
	var err error
	if round < 1 {
		err = a.db.QueryRowContext(ctx, `
			SELECT model FROM posteriors WHERE run_id = ? ORDER BY round DESC LIMIT 1`, runID).Scan(&data)
	} else {
		err = a.db.QueryRowContext(ctx, `
			SELECT model FROM posteriors WHERE run_id = ? AND round = ?`, runID, round).Scan(&data)
	}
	if err == sql.ErrNoRows {
		return fmt.Errorf("no archived posterior for run %s round %d", runID, round)
	}
	if err != nil {
		return fmt.Errorf("querying posterior of run %s: %w", runID, err)
	}

	if err := json.Unmarshal([]byte(data), model); err != nil {
		return fmt.Errorf("decoding posterior of run %s: %w", runID, err)
	}
	return nil
}

func matrixRows(m *mat.Dense) [][]float64 {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		rows[i] = make([]float64, c)
		copy(rows[i], m.RawRowView(i))
	}
	return rows
}
