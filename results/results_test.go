// ============================================================================
// RUN HISTORY STORE VALIDATION SUITE
// ============================================================================
//
// Exercises schema creation, row insertion, and fingerprint stability
// against a throwaway SQLite file.

package results

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dbgroup-nagoya-u/mwcas-benchmark/bench"
)

func testConfig() bench.Config {
	return bench.Config{
		NumExec:    10_000,
		NumThread:  8,
		NumField:   1000,
		NumTarget:  2,
		Skew:       0.5,
		Seed:       42,
		Throughput: true,
	}
}

func TestFingerprintStability(t *testing.T) {
	cfg := testConfig()

	a, err := Fingerprint(cfg, "mwcas")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Fingerprint(cfg, "mwcas")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("identical inputs fingerprinted %q vs %q", a, b)
	}

	other, err := Fingerprint(cfg, "single")
	if err != nil {
		t.Fatal(err)
	}
	if other == a {
		t.Fatal("different targets must not share a fingerprint")
	}

	cfg.Skew = 0.6
	skewed, err := Fingerprint(cfg, "mwcas")
	if err != nil {
		t.Fatal(err)
	}
	if skewed == a {
		t.Fatal("different configs must not share a fingerprint")
	}
}

func TestStoreAppendsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	cfg := testConfig()
	rep := &bench.Report{
		Target:     "mwcas",
		TotalOps:   cfg.NumExec,
		Throughput: 123456.789,
	}

	if err := Store(path, cfg, rep); err != nil {
		t.Fatal(err)
	}
	if err := Store(path, cfg, rep); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("stored %d rows, want 2", count)
	}

	want, err := Fingerprint(cfg, rep.Target)
	if err != nil {
		t.Fatal(err)
	}
	var distinct int
	if err := db.QueryRow(
		`SELECT COUNT(DISTINCT fingerprint) FROM runs WHERE fingerprint = ?`, want,
	).Scan(&distinct); err != nil {
		t.Fatal(err)
	}
	if distinct != 1 {
		t.Fatalf("fingerprint rows = %d, want 1 shared fingerprint", distinct)
	}
}
