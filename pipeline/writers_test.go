package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lkhoram/patrascan/models"
)

func sampleRecord() *models.CustomerRecord {
	return &models.CustomerRecord{
		Name:           "علی رضایی",
		Mobile:         "09120000000",
		Phone:          "02100000000",
		Province:       "تهران",
		City:           "تهران",
		PostalCode:     "1234567890",
		Address:        "خیابان اول، پلاک ۲",
		Notes:          "توضیح",
		RegisteredAt:   "1402/01/01",
		Seller:         "فروشنده",
		DeliveryStatus: "وصولی",
		OperatorNotes:  "یادداشت",
		Status:         models.StatusAccepted,
	}
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("new csv writer: %v", err)
	}

	if err := writer.Write([]*models.CustomerRecord{sampleRecord()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header plus one record", len(rows))
	}
	if rows[0][0] != "name" || rows[0][12] != "status" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "علی رضایی" || rows[1][10] != "وصولی" || rows[1][12] != "ACCEPTED" {
		t.Errorf("unexpected row: %v", rows[1])
	}
}

func TestJSONWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("new json writer: %v", err)
	}

	want := sampleRecord()
	if err := writer.Write([]*models.CustomerRecord{want, want}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var got models.CustomerRecord
		if err := json.Unmarshal(scanner.Bytes(), &got); err != nil {
			t.Fatalf("decode line %d: %v", lines+1, err)
		}
		if got != *want {
			t.Errorf("line %d mismatch:\n got %+v\nwant %+v", lines+1, got, *want)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("got %d JSONL lines, want 2", lines)
	}
}

func TestDualWriter(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "records.csv")
	jsonPath := filepath.Join(dir, "records.json")

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("new dual writer: %v", err)
	}
	if err := writer.Write([]*models.CustomerRecord{sampleRecord()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, path := range []string{csvPath, jsonPath} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", path)
		}
	}
}

func TestWritersCreateMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "records.csv")
	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("new csv writer: %v", err)
	}
	writer.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
}

type fakeSink struct {
	set  []*models.CustomerRecord
	err  error
	seen map[string]int
}

func (f *fakeSink) UpsertAll(incoming []*models.CustomerRecord) ([]*models.CustomerRecord, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	if f.seen == nil {
		f.seen = make(map[string]int)
	}
	added := 0
	for _, r := range incoming {
		if _, ok := f.seen[r.Key()]; !ok {
			f.seen[r.Key()] = len(f.set)
			f.set = append(f.set, r)
			added++
		}
	}
	return f.set, added, nil
}

func TestStoreWriterAccumulatesAdded(t *testing.T) {
	sink := &fakeSink{}
	writer := NewStoreWriter(sink)

	first := []*models.CustomerRecord{
		{Name: "الف", Mobile: "0911"},
		{Name: "ب", Mobile: "0912"},
	}
	if err := writer.Write(first); err != nil {
		t.Fatalf("write: %v", err)
	}
	second := []*models.CustomerRecord{
		{Name: "ب", Mobile: "0912"},
		{Name: "ج", Mobile: "0913"},
	}
	if err := writer.Write(second); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := writer.Added(); got != 3 {
		t.Errorf("Added() = %d, want 3", got)
	}
	if got := len(writer.Merged()); got != 3 {
		t.Errorf("Merged() has %d records, want 3", got)
	}
	if err := writer.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestStoreWriterPropagatesSinkError(t *testing.T) {
	wantErr := errors.New("db locked")
	writer := NewStoreWriter(&fakeSink{err: wantErr})

	err := writer.Write([]*models.CustomerRecord{{Name: "الف", Mobile: "0911"}})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Write() = %v, want %v", err, wantErr)
	}
	if got := writer.Added(); got != 0 {
		t.Errorf("Added() = %d after failed write, want 0", got)
	}
}
