// ════════════════════════════════════════════════════════════════════════════════════════════════
// Run History Store
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: MwCAS Benchmark
// Component: SQLite-Backed Result Persistence
//
// Description:
//   Appends every benchmark run to a local SQLite file so parameter sweeps can be compared
//   across invocations. Each row carries the full configuration as JSON plus a BLAKE2b
//   fingerprint of (configuration, target): identical setups share a fingerprint, which makes
//   "all runs of this exact config" a single indexed lookup.
//
// Failure semantics:
//   Persistence is an accessory to a run that already happened — errors are returned for the
//   caller to log, never allowed to abort reporting.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package results

import (
	"database/sql"
	"encoding/hex"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/crypto/blake2b"

	"github.com/dbgroup-nagoya-u/mwcas-benchmark/bench"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	fingerprint TEXT    NOT NULL,
	recorded_at TEXT    NOT NULL,
	target      TEXT    NOT NULL,
	config      TEXT    NOT NULL,
	total_ops   INTEGER NOT NULL,
	throughput  REAL,
	lat_min     INTEGER,
	lat_p90     INTEGER,
	lat_p95     INTEGER,
	lat_p99     INTEGER,
	lat_max     INTEGER
);
CREATE INDEX IF NOT EXISTS runs_fingerprint ON runs (fingerprint);
`

// Fingerprint derives the stable identity of (config, target). The first
// 16 bytes of the BLAKE2b-256 digest are plenty for sweep-sized corpora.
func Fingerprint(cfg bench.Config, target string) (string, error) {
	blob, err := sonnet.Marshal(cfg)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(append(blob, target...))
	return hex.EncodeToString(sum[:16]), nil
}

// Store appends one run to the history database at path, creating the
// file and schema on first use.
func Store(path string, cfg bench.Config, rep *bench.Report) error {
	fp, err := Fingerprint(cfg, rep.Target)
	if err != nil {
		return err
	}
	blob, err := sonnet.Marshal(cfg)
	if err != nil {
		return err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return err
	}

	_, err = db.Exec(
		`INSERT INTO runs
		 (fingerprint, recorded_at, target, config, total_ops,
		  throughput, lat_min, lat_p90, lat_p95, lat_p99, lat_max)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fp,
		time.Now().UTC().Format(time.RFC3339),
		rep.Target,
		string(blob),
		rep.TotalOps,
		rep.Throughput,
		rep.LatMin,
		rep.LatP90,
		rep.LatP95,
		rep.LatP99,
		rep.LatMax,
	)
	return err
}
