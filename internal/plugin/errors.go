package plugin

import (
	"fmt"

	"github.com/wraithcrawl/seoscan/pkg/failure"
)

type PluginErrorCause string

const (
	ErrCauseAnalyzerPanicked PluginErrorCause = "analyzer panicked"
	ErrCauseAnalyzerFailed   PluginErrorCause = "analyzer returned an error"
)

// AnalyzerError reports one analyzer's failure during a Runtime.Run pass.
// It is always non-fatal to the overall pass: one analyzer's failure never
// stops the rest from running.
type AnalyzerError struct {
	AnalyzerKey string
	Message     string
	Cause       PluginErrorCause
}

func (e *AnalyzerError) Error() string {
	return fmt.Sprintf("plugin error: analyzer %s: %s: %s", e.AnalyzerKey, e.Cause, e.Message)
}

func (e *AnalyzerError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}
