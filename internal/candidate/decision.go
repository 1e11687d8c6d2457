package candidate

import (
	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/mohamedkhairy/stock-isolator/internal/rules"
)

// Status is the outcome of filtering one instrument
type Status int

const (
	StatusRejected Status = iota
	StatusAccepted
)

func (s Status) String() string {
	if s == StatusAccepted {
		return "accepted"
	}
	return "rejected"
}

// Reason explains a rejection
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonMissingInput Reason = "missing_input"
	ReasonCoverage     Reason = "coverage"
	ReasonThreshold    Reason = "threshold"
	ReasonComputeError Reason = "compute_error"
)

// Decision records what happened to one instrument
type Decision struct {
	Symbol    string
	Status    Status
	Reason    Reason
	Violation *rules.Violation // set for ReasonThreshold
	Err       error            // set for ReasonComputeError

	// Series is the window-truncated copy, set only when accepted
	Series *models.InstrumentSeries
}

// Accepted reports whether the instrument passed every check
func (d Decision) Accepted() bool {
	return d.Status == StatusAccepted
}

func accept(symbol string, series *models.InstrumentSeries) Decision {
	return Decision{Symbol: symbol, Status: StatusAccepted, Series: series}
}

func reject(symbol string, reason Reason) Decision {
	return Decision{Symbol: symbol, Status: StatusRejected, Reason: reason}
}

// Result is the outcome of a filter run
type Result struct {
	Candidates *models.CandidateSet
	// Decisions is in universe order, one per symbol
	Decisions []Decision
}

// Counts returns the number of decisions per rejection reason. Accepted
// instruments are counted under ReasonNone.
func (r *Result) Counts() map[Reason]int {
	counts := make(map[Reason]int)
	for _, d := range r.Decisions {
		counts[d.Reason]++
	}
	return counts
}

// Rejected returns the decisions rejected for the given reason
func (r *Result) Rejected(reason Reason) []Decision {
	var out []Decision
	for _, d := range r.Decisions {
		if !d.Accepted() && d.Reason == reason {
			out = append(out, d)
		}
	}
	return out
}
