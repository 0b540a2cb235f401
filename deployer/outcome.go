package deployer

import (
	"fmt"
	"io"
)

// Status is the terminal state a unit reaches within one run.
// Transitions: pending -> skipped, or pending -> packaging -> packaged
// -> deployed | deploy-failed. No state is re-entered within a run.
type Status string

const (
	StatusSkipped      Status = "skipped"
	StatusPackaged     Status = "packaged"
	StatusDeployed     Status = "deployed"
	StatusDeployFailed Status = "deploy-failed"
)

// Outcome records the terminal state of one unit.
type Outcome struct {
	Unit    string
	Status  Status
	Version string // published remote version, set on StatusDeployed
	Reason  string // failure detail, set on skipped/deploy-failed
}

// Succeeded reports whether this outcome counts as a success.
// A packaged-only outcome (dry run) counts as success: the unit made
// it through the whole local pipeline.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusDeployed || o.Status == StatusPackaged
}

// Summary accumulates unit outcomes across a run. It is threaded
// through the unit loop as a value, not shared module state.
type Summary struct {
	RunID       string
	Environment string
	Outcomes    []Outcome
	Succeeded   int
	Failed      int
	FailedUnits []string
}

// record appends an outcome and updates the counters. Each unit name
// maps to exactly one outcome per run.
func (s *Summary) record(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	if o.Succeeded() {
		s.Succeeded++
		return
	}
	s.Failed++
	s.FailedUnits = append(s.FailedUnits, o.Unit)
}

// Write prints the run summary in the fixed format CI systems grep.
func (s *Summary) Write(w io.Writer) {
	fmt.Fprintf(w, "\nDeployment summary (environment: %s)\n", s.Environment)
	for _, o := range s.Outcomes {
		switch o.Status {
		case StatusDeployed:
			fmt.Fprintf(w, "  ok    %-24s version %s\n", o.Unit, o.Version)
		case StatusPackaged:
			fmt.Fprintf(w, "  ok    %-24s packaged (dry run)\n", o.Unit)
		default:
			fmt.Fprintf(w, "  fail  %-24s %s\n", o.Unit, o.Reason)
		}
	}
	fmt.Fprintf(w, "Successful: %d\n", s.Succeeded)
	fmt.Fprintf(w, "Failed: %d\n", s.Failed)
	for _, name := range s.FailedUnits {
		fmt.Fprintf(w, "  - %s\n", name)
	}
}
