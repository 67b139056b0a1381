// ════════════════════════════════════════════════════════════════════════════════════════════════
// MwCAS Benchmark - Main Entry Point
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: MwCAS Benchmark
// Component: CLI Surface & Run Orchestration
//
// Description:
//   Parses the run configuration, executes each selected implementation through the driver,
//   and emits results as text, CSV, or JSON — optionally appending every run to a SQLite
//   history database for cross-invocation comparison.
//
// Phases:
//   - Phase 0: flag parsing and validation (config errors exit non-zero)
//   - Phase 1: one driver run per selected target
//   - Phase 2: report emission and optional persistence
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package main

import (
	"flag"
	"os"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"github.com/dbgroup-nagoya-u/mwcas-benchmark/bench"
	"github.com/dbgroup-nagoya-u/mwcas-benchmark/debug"
	"github.com/dbgroup-nagoya-u/mwcas-benchmark/results"
	"github.com/dbgroup-nagoya-u/mwcas-benchmark/utils"
)

func main() {
	var (
		numExec   = flag.Int("num_exec", 10000, "total number of operations per run")
		numThread = flag.Int("num_thread", 8, "number of worker threads")
		numField  = flag.Int("num_field", 1000, "number of shared target fields")
		numTarget = flag.Int("num_target", 2, "number of MwCAS targets per operation")
		skew      = flag.Float64("skew_parameter", 0, "Zipf skew for target selection")
		seed      = flag.Int64("seed", -1, "base random seed (random when negative)")

		ours   = flag.Bool("ours", true, "run the in-memory MwCAS implementation")
		pmwcas = flag.Bool("pmwcas", false, "accepted for compatibility; persistent MwCAS is not built in and is skipped")
		single = flag.Bool("single", false, "run the single-word CAS implementation")
		qkind  = flag.String("queue", "", "run the queue workload instead: cas, mwcas, or mutex")

		csvOut     = flag.Bool("csv", false, "emit results as CSV instead of text")
		jsonOut    = flag.Bool("json", false, "emit results as JSON instead of text")
		throughput = flag.Bool("throughput", true, "measure throughput (false: latency percentiles)")
		dbPath     = flag.String("db", "", "append results to this SQLite history database")
	)
	flag.Parse()

	cfg := bench.Config{
		NumExec:    *numExec,
		NumThread:  *numThread,
		NumField:   *numField,
		NumTarget:  *numTarget,
		Skew:       *skew,
		Throughput: *throughput,
		Queue:      bench.QueueKind(*qkind),
	}
	if *seed >= 0 {
		cfg.Seed = uint64(*seed)
	} else {
		cfg.Seed = uint64(time.Now().UnixNano())
	}

	if *csvOut && *jsonOut {
		debug.DropMessage("CONFIG", "csv and json are mutually exclusive")
		os.Exit(1)
	}
	text := !*csvOut && !*jsonOut

	// Target selection. The queue workload replaces the field benchmark;
	// otherwise ours/single may both run in one invocation.
	var targets []bench.Target
	if cfg.Queue != bench.QueueNone {
		targets = append(targets, bench.TargetQueue)
	} else {
		if *ours {
			targets = append(targets, bench.TargetOurs)
		}
		if *single {
			targets = append(targets, bench.TargetSingle)
		}
	}
	if *pmwcas {
		debug.DropMessage("SKIP", "persistent MwCAS is not built into this binary")
	}
	if len(targets) == 0 {
		debug.DropMessage("CONFIG", "no implementation selected")
		os.Exit(1)
	}

	b, err := bench.New(cfg)
	if err != nil {
		debug.DropError("CONFIG", err)
		os.Exit(1)
	}

	var reports []*bench.Report
	for _, target := range targets {
		if text {
			if cfg.Throughput {
				debug.DropMessage(target.String(), "Run workers to measure throughput...")
			} else {
				debug.DropMessage(target.String(), "Run workers to measure latency...")
			}
		}

		rep := b.Run(target)
		reports = append(reports, rep)

		if text {
			debug.DropMessage(target.String(), "Finish running...")
		}
		if rep.ZeroTimeWorkers > 0 {
			debug.DropMessage("ANOMALY", utils.Itoa(rep.ZeroTimeWorkers)+" workers reported zero wall time")
		}

		switch {
		case *csvOut:
			utils.PrintOut(csvRow(cfg, rep) + "\n")
		case !*jsonOut:
			printText(cfg, rep)
		}

		if *dbPath != "" {
			if err := results.Store(*dbPath, cfg, rep); err != nil {
				debug.DropError("RESULTS", err)
			}
		}
	}

	if *jsonOut {
		blob, err := sonnet.Marshal(reports)
		if err != nil {
			debug.DropError("JSON", err)
			os.Exit(1)
		}
		utils.PrintOut(utils.B2s(blob) + "\n")
	}
}

// printText emits the human-readable report block for one run.
func printText(cfg bench.Config, rep *bench.Report) {
	if cfg.Throughput {
		utils.PrintOut("Throughput [Ops/s]: " + utils.Ftoa(rep.Throughput, 3) + "\n")
		return
	}
	utils.PrintOut("Percentiled Latencies [ns]:\n")
	utils.PrintOut("  MIN: " + utils.Utoa(rep.LatMin) + "\n")
	utils.PrintOut("  90%: " + utils.Utoa(rep.LatP90) + "\n")
	utils.PrintOut("  95%: " + utils.Utoa(rep.LatP95) + "\n")
	utils.PrintOut("  99%: " + utils.Utoa(rep.LatP99) + "\n")
	utils.PrintOut("  MAX: " + utils.Utoa(rep.LatMax) + "\n")
}

// csvRow emits one run as a single comma-separated row.
func csvRow(cfg bench.Config, rep *bench.Report) string {
	if cfg.Throughput {
		return utils.Ftoa(rep.Throughput, 3)
	}
	return utils.Utoa(rep.LatMin) + "," +
		utils.Utoa(rep.LatP90) + "," +
		utils.Utoa(rep.LatP95) + "," +
		utils.Utoa(rep.LatP99) + "," +
		utils.Utoa(rep.LatMax)
}
