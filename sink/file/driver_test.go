package file

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"beanexport/internal/ledger"
)

var entries = ledger.Entries{
	ledger.Price{
		Header:   ledger.Header{Date: time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)},
		Currency: "BTC",
		Amount:   ledger.MustAmount("16850.10", "USD"),
	},
}

func TestDriver_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yml")
	d := New()
	if err := d.Configure(Config{Path: path}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := d.Write(context.Background(), entries); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	got, err := ledger.Decode(f)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 1 || got[0].(ledger.Price).Amount.String() != "16850.10 USD" {
		t.Fatalf("unexpected round trip: %+v", got)
	}
}

func TestDriver_DashWritesStdout(t *testing.T) {
	var buf bytes.Buffer
	d := &driver{stdout: &buf}
	if err := d.Configure(Config{}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := d.Write(context.Background(), entries); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "kind: price") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestDriver_RejectsForeignConfig(t *testing.T) {
	if err := New().Configure(struct{}{}); err == nil {
		t.Fatal("expected error")
	}
}
