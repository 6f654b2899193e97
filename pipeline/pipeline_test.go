package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lkhoram/patrascan/models"
)

type mockWriter struct {
	mu      sync.Mutex
	records []*models.CustomerRecord
	batches int
	writeFn func([]*models.CustomerRecord) error
}

func (m *mockWriter) Write(records []*models.CustomerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeFn != nil {
		if err := m.writeFn(records); err != nil {
			return err
		}
	}
	m.records = append(m.records, records...)
	m.batches++
	return nil
}

func (m *mockWriter) Close() error    { return nil }
func (m *mockWriter) Validate() error { return nil }

func (m *mockWriter) written() []*models.CustomerRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.CustomerRecord, len(m.records))
	copy(out, m.records)
	return out
}

func (m *mockWriter) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

func record(name, mobile string) *models.CustomerRecord {
	return &models.CustomerRecord{Name: name, Mobile: mobile}
}

func TestPipelineProcessesRecords(t *testing.T) {
	writer := &mockWriter{}
	p := NewPipeline(writer)
	p.Start(1)

	if err := p.Process([]*models.CustomerRecord{
		record("الف", "0911"),
		record("ب", "0912"),
	}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	written := writer.written()
	if len(written) != 2 {
		t.Fatalf("wrote %d records, want 2", len(written))
	}
	if written[0].Name != "الف" || written[1].Name != "ب" {
		t.Errorf("order lost: %q then %q", written[0].Name, written[1].Name)
	}

	processed := p.GetMetrics()["processed_records"].(int64)
	if processed != 2 {
		t.Errorf("processed_records = %d, want 2", processed)
	}
}

func TestPipelineDropsInvalidRecords(t *testing.T) {
	writer := &mockWriter{}
	p := NewPipeline(writer)
	p.Start(1)

	if err := p.Process([]*models.CustomerRecord{
		record("  ", " "), // blank identity key
		nil,
		record("الف", "0911"),
	}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := len(writer.written()); got != 1 {
		t.Fatalf("wrote %d records, want 1", got)
	}
	validation := p.GetMetrics()["validation_errors"].(map[string]int)
	if validation["unmergeable_record"] != 1 {
		t.Errorf("unmergeable_record = %d, want 1", validation["unmergeable_record"])
	}
}

func TestPipelineDeduplicatesByKey(t *testing.T) {
	writer := &mockWriter{}
	p := NewPipeline(writer)
	p.Start(1)

	if err := p.Process([]*models.CustomerRecord{
		record("علی رضایی", "0912 000 0000"),
		record("علی  رضایی", "09120000000"), // same identity, different spacing
		record("ب", "0913"),
	}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := len(writer.written()); got != 2 {
		t.Fatalf("wrote %d records, want 2", got)
	}
	validation := p.GetMetrics()["validation_errors"].(map[string]int)
	if validation["duplicate_key"] != 1 {
		t.Errorf("duplicate_key = %d, want 1", validation["duplicate_key"])
	}
}

func TestPipelineNormalizesDeliveryStatus(t *testing.T) {
	writer := &mockWriter{}
	p := NewPipeline(writer)
	p.Start(1)

	r := record("الف", "0911")
	r.DeliveryStatus = "در انتظار  تحویل"
	if err := p.Process([]*models.CustomerRecord{r}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	written := writer.written()
	if len(written) != 1 {
		t.Fatalf("wrote %d records, want 1", len(written))
	}
	if written[0].DeliveryStatus != "در انتظار تحویل" {
		t.Errorf("delivery status = %q, want normalized form", written[0].DeliveryStatus)
	}
	if written[0].Status != models.StatusPending {
		t.Errorf("status = %q, want pending default", written[0].Status)
	}
}

func TestPipelineBatchesWrites(t *testing.T) {
	writer := &mockWriter{}
	p := NewPipeline(writer)
	p.Start(1)

	records := make([]*models.CustomerRecord, 0, 65)
	for i := 0; i < 65; i++ {
		records = append(records, record(fmt.Sprintf("مشتری%d", i), fmt.Sprintf("09%09d", i)))
	}
	if err := p.Process(records); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := len(writer.written()); got != 65 {
		t.Fatalf("wrote %d records, want 65", got)
	}
	// 64 records fill the first batch; the leftover flushes at close.
	if got := writer.batchCount(); got != 2 {
		t.Errorf("batch count = %d, want 2", got)
	}
}

func TestPipelineSurfacesWriterError(t *testing.T) {
	wantErr := errors.New("disk full")
	writer := &mockWriter{writeFn: func([]*models.CustomerRecord) error {
		return wantErr
	}}
	p := NewPipeline(writer)
	p.Start(1)

	_ = p.Process([]*models.CustomerRecord{record("الف", "0911")})
	err := p.Close()
	if err == nil || !errors.Is(err, wantErr) {
		t.Fatalf("Close() = %v, want wrapped %v", err, wantErr)
	}
}

func TestProcessAfterCloseFails(t *testing.T) {
	writer := &mockWriter{}
	p := NewPipeline(writer)
	p.Start(1)
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	err := p.Process([]*models.CustomerRecord{record("الف", "0911")})
	if !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("Process() after close = %v, want ErrPipelineClosed", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	writer := &mockWriter{}
	p := NewPipeline(writer)
	p.Start(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Close()
		_ = p.Close()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("double Close deadlocked")
	}
}
