// ════════════════════════════════════════════════════════════════════════════════════════════════
// Benchmark Configuration
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: MwCAS Benchmark
// Component: Run Parameters & Validation
//
// Description:
//   One value holding every knob of a run, validated once at the driver boundary. The rest of
//   the system treats a Config as immutable; nothing reads flags or globals past this point.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package bench

import (
	"errors"

	"github.com/dbgroup-nagoya-u/mwcas-benchmark/constants"
	"github.com/dbgroup-nagoya-u/mwcas-benchmark/utils"
)

// QueueKind selects the container under test in queue mode.
type QueueKind string

// Queue benchmark variants.
const (
	QueueNone  QueueKind = ""      // MwCAS/CAS field benchmark, no container
	QueueCAS   QueueKind = "cas"   // single-word CAS Michael–Scott queue
	QueueMwCAS QueueKind = "mwcas" // MwCAS-push queue
	QueueMutex QueueKind = "mutex" // RWMutex baseline
)

// Config captures one benchmark run.
type Config struct {
	NumExec    int       `json:"num_exec"`       // total operations across all workers
	NumThread  int       `json:"num_thread"`     // worker count
	NumField   int       `json:"num_field"`      // size of the shared field array
	NumTarget  int       `json:"num_target"`     // MwCAS arity per operation
	Skew       float64   `json:"skew_parameter"` // Zipf skew for target selection
	Seed       uint64    `json:"seed"`           // base random seed
	Throughput bool      `json:"throughput"`     // throughput (true) or latency mode
	Queue      QueueKind `json:"queue"`          // container mode; empty = field benchmark
}

// Validate rejects configurations the engine cannot honor. Returned errors
// surface on the CLI with a non-zero exit.
func (c *Config) Validate() error {
	switch {
	case c.NumExec <= 0:
		return errors.New("num_exec must be positive")
	case c.NumThread <= 0 || c.NumThread > constants.MaxWorkers:
		return errors.New("num_thread must be in [1, " + utils.Itoa(constants.MaxWorkers) + "]")
	case c.NumField <= 0:
		return errors.New("num_field must be positive")
	case c.NumTarget <= 0 || c.NumTarget > constants.MaxTargets:
		return errors.New("num_target must be in [1, " + utils.Itoa(constants.MaxTargets) + "]")
	case c.NumTarget > c.NumField:
		return errors.New("num_target cannot exceed num_field")
	case c.Skew < 0:
		return errors.New("skew_parameter must be non-negative")
	}
	switch c.Queue {
	case QueueNone, QueueCAS, QueueMwCAS, QueueMutex:
	default:
		return errors.New("queue must be one of: cas, mwcas, mutex")
	}
	return nil
}
