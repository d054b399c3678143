package plugin

import "context"

// IndexabilityAnalyzer flags pages the robots directives exclude from
// search indexes, and pages that redirect or error without ever resolving to
// indexable content.
type IndexabilityAnalyzer struct{}

func (IndexabilityAnalyzer) Key() string         { return "indexability" }
func (IndexabilityAnalyzer) DisplayName() string { return "Indexability" }
func (IndexabilityAnalyzer) Priority() int       { return 200 }

func (a IndexabilityAnalyzer) Execute(_ context.Context, uc *UrlContext) error {
	if uc.Metadata.RobotsNoindex != nil && *uc.Metadata.RobotsNoindex {
		uc.Findings.Add(Finding{
			TaskKey: a.Key(), Severity: SeverityInfo, Code: "noindex",
			Message: "page is excluded from search indexes by a robots directive",
		})
	}
	if uc.Metadata.RobotsNofollow != nil && *uc.Metadata.RobotsNofollow {
		uc.Findings.Add(Finding{
			TaskKey: a.Key(), Severity: SeverityInfo, Code: "nofollow",
			Message: "outbound links on this page will not be followed for indexing weight",
		})
	}
	if uc.Metadata.HasMetaRefresh {
		uc.Findings.Add(Finding{
			TaskKey: a.Key(), Severity: SeverityWarning, Code: "meta_refresh",
			Message: "page uses a meta refresh redirect, which search engines treat inconsistently",
		})
	}
	if uc.Metadata.StatusCode >= 400 {
		uc.Findings.Add(Finding{
			TaskKey: a.Key(), Severity: SeverityError, Code: "error_status",
			Message: "page returned an error status and cannot be indexed",
		})
	}
	return nil
}
