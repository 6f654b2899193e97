// Package store persists the canonical customer record set. The whole
// set lives as one JSON array in a single slot of a key/value settings
// table; every mutation is a full read-modify-rewrite of that slot.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lkhoram/patrascan/models"
)

const recordsSlot = "records_json"

// Store wraps the SQLite-backed settings table. A single mutex
// serializes every load-modify-persist cycle; last writer wins.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens (creating if needed) the record database in dataDir.
func NewStore(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "patrascan.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open record db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate settings table: %w", err)
	}
	return nil
}

// GetSetting reads one settings slot; absent keys yield "".
func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting rewrites one settings slot.
func (s *Store) SetSetting(key, value string) error {
	if _, err := s.db.Exec(`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value); err != nil {
		return fmt.Errorf("write setting %q: %w", key, err)
	}
	return nil
}

// Load deserializes the persisted record set. An absent slot or a
// payload that is not a JSON array yields an empty set; individually
// damaged entries are defaulted field by field rather than aborting
// the load.
func (s *Store) Load() ([]*models.CustomerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]*models.CustomerRecord, error) {
	raw, err := s.GetSetting(recordsSlot)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return []*models.CustomerRecord{}, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return []*models.CustomerRecord{}, nil
	}

	records := make([]*models.CustomerRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, decodeRecord(entry))
	}
	return records, nil
}

// decodeRecord tolerates missing or mistyped fields: strings default
// to "" and an unknown status name falls back to pending.
func decodeRecord(raw json.RawMessage) *models.CustomerRecord {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return &models.CustomerRecord{Status: models.StatusPending}
	}

	optString := func(key string) string {
		var v string
		if data, ok := fields[key]; ok {
			_ = json.Unmarshal(data, &v)
		}
		return v
	}

	return &models.CustomerRecord{
		Name:           optString("name"),
		Mobile:         optString("mobile"),
		Phone:          optString("phone"),
		Province:       optString("province"),
		City:           optString("city"),
		PostalCode:     optString("postalCode"),
		Address:        optString("address"),
		Notes:          optString("notes"),
		RegisteredAt:   optString("registeredAt"),
		Seller:         optString("seller"),
		DeliveryStatus: optString("deliveryStatus"),
		OperatorNotes:  optString("operatorNotes"),
		Status:         models.ParseStatus(optString("status")),
	}
}

func (s *Store) save(records []*models.CustomerRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode record set: %w", err)
	}
	return s.SetSetting(recordsSlot, string(data))
}

// UpsertAll merges a scraped batch into the stored set and persists
// the result. Unseen keys are appended and counted; existing keys take
// the incoming scraped fields while keeping the stored record's status
// and operator notes. The stored ordering is preserved, with new
// records appended in batch order.
func (s *Store) UpsertAll(incoming []*models.CustomerRecord) ([]*models.CustomerRecord, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		return nil, 0, err
	}

	index := make(map[string]int, len(existing))
	merged := make([]*models.CustomerRecord, len(existing))
	copy(merged, existing)
	for i, r := range merged {
		index[r.Key()] = i
	}

	added := 0
	for _, record := range incoming {
		key := record.Key()
		i, ok := index[key]
		if !ok {
			index[key] = len(merged)
			merged = append(merged, record)
			added++
			continue
		}
		updated := *record
		updated.Status = merged[i].Status
		updated.OperatorNotes = merged[i].OperatorNotes
		merged[i] = &updated
	}

	if err := s.save(merged); err != nil {
		return nil, 0, err
	}
	return merged, added, nil
}

// UpdateStatus replaces the triage status of the record matching key
// and persists the full set. Absent keys leave the set unchanged (but
// still rewritten).
func (s *Store) UpdateStatus(records []*models.CustomerRecord, key string, status models.Status) ([]*models.CustomerRecord, error) {
	return s.updateOne(records, key, func(r *models.CustomerRecord) {
		r.Status = status
	})
}

// UpdateOperatorNotes replaces the operator notes of the record
// matching key and persists the full set.
func (s *Store) UpdateOperatorNotes(records []*models.CustomerRecord, key, notes string) ([]*models.CustomerRecord, error) {
	return s.updateOne(records, key, func(r *models.CustomerRecord) {
		r.OperatorNotes = notes
	})
}

func (s *Store) updateOne(records []*models.CustomerRecord, key string, mutate func(*models.CustomerRecord)) ([]*models.CustomerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]*models.CustomerRecord, len(records))
	for i, record := range records {
		if record.Key() == key {
			clone := *record
			mutate(&clone)
			updated[i] = &clone
		} else {
			updated[i] = record
		}
	}

	if err := s.save(updated); err != nil {
		return nil, err
	}
	return updated, nil
}
