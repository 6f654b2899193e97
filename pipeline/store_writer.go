package pipeline

import (
	"sync"

	"github.com/lkhoram/patrascan/models"
)

// RecordSink is the slice of the store the pipeline needs: batch
// upsert returning the merged set and the count of brand-new keys.
type RecordSink interface {
	UpsertAll(incoming []*models.CustomerRecord) ([]*models.CustomerRecord, int, error)
}

// StoreWriter merges pipeline batches into the record store and keeps
// the running added-count plus the last merged snapshot.
type StoreWriter struct {
	sink RecordSink

	mu     sync.Mutex
	merged []*models.CustomerRecord
	added  int
}

// NewStoreWriter wraps a record sink as an OutputWriter.
func NewStoreWriter(sink RecordSink) *StoreWriter {
	return &StoreWriter{sink: sink}
}

// Write upserts one batch into the store.
func (sw *StoreWriter) Write(records []*models.CustomerRecord) error {
	merged, added, err := sw.sink.UpsertAll(records)
	if err != nil {
		return err
	}
	sw.mu.Lock()
	sw.merged = merged
	sw.added += added
	sw.mu.Unlock()
	return nil
}

// Close is a no-op; the store's lifetime belongs to the caller.
func (sw *StoreWriter) Close() error {
	return nil
}

// Validate is a no-op; merge outcomes are reported through Added.
func (sw *StoreWriter) Validate() error {
	return nil
}

// Added returns how many brand-new records the run inserted.
func (sw *StoreWriter) Added() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.added
}

// Merged returns the merged record set after the last written batch.
func (sw *StoreWriter) Merged() []*models.CustomerRecord {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.merged
}
