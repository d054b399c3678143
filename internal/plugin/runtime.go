/*
Responsibilities

- Hold the registered analyzer set, sorted by ascending priority
- Run every analyzer against one URL's context, isolating panics and errors
- Buffer findings/report rows in memory and hand the batch back for one flush

The runtime owns no storage; Run's caller is responsible for persisting the
returned Outcome through the storage package.
*/
package plugin

import (
	"context"
	"fmt"
	"sort"
)

// Runtime holds a project's registered analyzers and runs them, in ascending
// priority order, against each crawled URL.
type Runtime struct {
	analyzers []Analyzer
}

// NewRuntime builds a Runtime with analyzers sorted once at construction
// time; Register after construction re-sorts.
func NewRuntime(analyzers ...Analyzer) *Runtime {
	r := &Runtime{analyzers: append([]Analyzer(nil), analyzers...)}
	r.sort()
	return r
}

// Register adds an analyzer to the runtime, keeping the set sorted by
// ascending priority.
func (r *Runtime) Register(a Analyzer) {
	r.analyzers = append(r.analyzers, a)
	r.sort()
}

func (r *Runtime) sort() {
	sort.SliceStable(r.analyzers, func(i, j int) bool {
		return r.analyzers[i].Priority() < r.analyzers[j].Priority()
	})
}

// Outcome is the batch of findings/report rows collected from one Run call,
// ready for a single persistence flush.
type Outcome struct {
	Findings []Finding
	Reports  []ReportRow
	Errors   []*AnalyzerError
}

// Run executes every registered analyzer against a fresh UrlContext built
// from the supplied fields, in ascending priority order. An analyzer that
// returns an error, or panics, is recorded in Outcome.Errors and does not
// prevent the remaining analyzers from running.
func (r *Runtime) Run(ctx context.Context, base UrlContext) Outcome {
	findingSink := &bufferedFindingSink{}
	reportSink := &bufferedReportSink{}

	uc := base
	uc.Findings = findingSink
	uc.Reports = reportSink

	var outcome Outcome

	for _, analyzer := range r.analyzers {
		if ctx.Err() != nil {
			break
		}
		if err := runOne(ctx, analyzer, &uc); err != nil {
			outcome.Errors = append(outcome.Errors, err)
		}
	}

	outcome.Findings = findingSink.items
	outcome.Reports = reportSink.items
	return outcome
}

// runOne executes a single analyzer, converting both a returned error and a
// recovered panic into an *AnalyzerError so Run's loop never has to
// special-case either failure mode.
func runOne(ctx context.Context, analyzer Analyzer, uc *UrlContext) (result *AnalyzerError) {
	defer func() {
		if p := recover(); p != nil {
			result = &AnalyzerError{
				AnalyzerKey: analyzer.Key(),
				Message:     fmt.Sprintf("%v", p),
				Cause:       ErrCauseAnalyzerPanicked,
			}
		}
	}()

	if err := analyzer.Execute(ctx, uc); err != nil {
		return &AnalyzerError{
			AnalyzerKey: analyzer.Key(),
			Message:     err.Error(),
			Cause:       ErrCauseAnalyzerFailed,
		}
	}
	return nil
}
