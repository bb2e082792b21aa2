// Package predictions implements the prediction log backing the
// /predictions endpoints. Every proxied model invocation appends one record.
package predictions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mlinsightlab/mlil/pkg/types"
)

// Store persists prediction records in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New initializes the schema on db and returns a Store.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		model_name TEXT NOT NULL,
		model_flavor TEXT NOT NULL,
		model_version TEXT NOT NULL,
		request BLOB NOT NULL,
		response BLOB NOT NULL,
		recorded INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_predictions_model ON predictions(model_name, model_flavor, model_version);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends one prediction for key.
func (s *Store) Record(ctx context.Context, key types.ModelKey, request, response json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO predictions (model_name, model_flavor, model_version, request, response, recorded) VALUES (?, ?, ?, ?, ?, ?)",
		key.Name, key.Flavor, key.Version, []byte(request), []byte(response), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// ForModel retrieves all predictions recorded for key, oldest first.
func (s *Store) ForModel(ctx context.Context, key types.ModelKey) ([]types.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT request, response, recorded FROM predictions
		 WHERE model_name = ? AND model_flavor = ? AND model_version = ? ORDER BY id`,
		key.Name, key.Flavor, key.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []types.Prediction
	for rows.Next() {
		p := types.Prediction{ModelKey: key}
		var req, resp []byte
		if err := rows.Scan(&req, &resp, &p.RecordedUnix); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		p.Request = json.RawMessage(req)
		p.Response = json.RawMessage(resp)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Models lists the distinct model keys that have stored predictions.
func (s *Store) Models(ctx context.Context) ([]types.ModelKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT model_name, model_flavor, model_version FROM predictions
		 ORDER BY model_name, model_flavor, model_version`,
	)
	if err != nil {
		return nil, fmt.Errorf("query prediction models: %w", err)
	}
	defer rows.Close()

	var out []types.ModelKey
	for rows.Next() {
		var k types.ModelKey
		if err := rows.Scan(&k.Name, &k.Flavor, &k.Version); err != nil {
			return nil, fmt.Errorf("scan model key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
