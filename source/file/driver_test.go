package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"beanexport/internal/ledger"
)

const doc = `
- kind: open
  date: 2020-01-01
  account: Assets:Cash
  currencies: [EUR]
- kind: transaction
  date: 2020-01-02
  flag: "*"
  narration: coffee
  postings:
    - account: Expenses:Coffee
      units: 3.20 EUR
    - account: Assets:Cash
      units: -3.20 EUR
`

func TestDriver_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	d := New()
	if err := d.Configure(Config{Path: path}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	got, err := d.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 || got[1].Kind() != ledger.KindTransaction {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestDriver_DashReadsStdin(t *testing.T) {
	d := &driver{stdin: strings.NewReader(doc)}
	if err := d.Configure(Config{Path: "-"}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	got, err := d.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
}

func TestDriver_Errors(t *testing.T) {
	if err := New().Configure(Config{}); err == nil {
		t.Fatal("expected empty path error")
	}
	d := New()
	_ = d.Configure(Config{Path: filepath.Join(t.TempDir(), "missing.yml")})
	if _, err := d.Read(context.Background()); err == nil {
		t.Fatal("expected open error")
	}
}
