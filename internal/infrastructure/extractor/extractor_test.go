package extractor

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

type fakeStorage struct {
	data map[string][]byte
}

func (f *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.data == nil {
		f.data = make(map[string][]byte)
	}
	f.data[key] = raw
	return nil
}

func (f *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data[key])), nil
}

func TestExtractPlaintextSingleUnit(t *testing.T) {
	storage := &fakeStorage{data: map[string][]byte{
		"k1": []byte("  Hypertension basics.\nControl your blood pressure.  "),
	}}
	ex := New(storage)

	doc := &domain.Document{Filename: "guide.txt", StoragePath: "k1"}
	units, err := ex.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	if units[0] != "Hypertension basics.\nControl your blood pressure." {
		t.Fatalf("unexpected unit: %q", units[0])
	}
}

func TestExtractCSVOneUnitPerRow(t *testing.T) {
	csvData := "condition,treatment\nhypertension,ACE inhibitors\ndiabetes,metformin\n"
	storage := &fakeStorage{data: map[string][]byte{"k2": []byte(csvData)}}
	ex := New(storage)

	doc := &domain.Document{Filename: "treatments.csv", StoragePath: "k2"}
	units, err := ex.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 row units, got %d: %v", len(units), units)
	}
	if units[0] != "condition: hypertension | treatment: ACE inhibitors" {
		t.Fatalf("unexpected row unit: %q", units[0])
	}
	if units[1] != "condition: diabetes | treatment: metformin" {
		t.Fatalf("unexpected row unit: %q", units[1])
	}
}

func TestExtractRejectsBinaryUnknownFormat(t *testing.T) {
	storage := &fakeStorage{data: map[string][]byte{"k3": {0xff, 0xfe, 0x00, 0x01}}}
	ex := New(storage)

	doc := &domain.Document{Filename: "blob.bin", StoragePath: "k3"}
	_, err := ex.Extract(context.Background(), doc)
	if err == nil {
		t.Fatal("expected error for binary content")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input kind, got %v", err)
	}
}

func TestRowTextFallsBackToColumnNumbers(t *testing.T) {
	got := rowText([]string{"name", ""}, []string{"aspirin", "100mg"})
	if got != "name: aspirin | col2: 100mg" {
		t.Fatalf("unexpected row text: %q", got)
	}
}
