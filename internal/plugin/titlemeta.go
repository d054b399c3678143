package plugin

import (
	"context"
	"strconv"
)

// titleMaxLength/titleMinLength and descMaxLength/descMinLength are the
// conventional SERP-snippet bounds this analyzer flags pages outside of.
const (
	titleMinLength = 10
	titleMaxLength = 60
	descMinLength  = 50
	descMaxLength  = 160
)

// TitleMetaAnalyzer flags missing or poorly sized <title> and meta
// description values. Everything beyond the two built-in analyzers
// (broken-link checking, sitemap coverage, ...) is left to external
// Analyzer implementations registered at startup.
type TitleMetaAnalyzer struct{}

func (TitleMetaAnalyzer) Key() string         { return "title-meta" }
func (TitleMetaAnalyzer) DisplayName() string { return "Title & Meta Description" }
func (TitleMetaAnalyzer) Priority() int       { return 100 }

func (a TitleMetaAnalyzer) Execute(_ context.Context, uc *UrlContext) error {
	title := uc.Metadata.Title
	switch {
	case title == "":
		uc.Findings.Add(Finding{
			TaskKey: a.Key(), Severity: SeverityError, Code: "title_missing",
			Message: "page has no <title> element",
		})
	case len(title) < titleMinLength:
		uc.Findings.Add(Finding{
			TaskKey: a.Key(), Severity: SeverityWarning, Code: "title_too_short",
			Message: "title is shorter than the recommended minimum",
			Details: map[string]string{"length": strconv.Itoa(len(title))},
		})
	case len(title) > titleMaxLength:
		uc.Findings.Add(Finding{
			TaskKey: a.Key(), Severity: SeverityWarning, Code: "title_too_long",
			Message: "title exceeds the recommended maximum and may be truncated in search results",
			Details: map[string]string{"length": strconv.Itoa(len(title))},
		})
	}

	desc := uc.Metadata.MetaDescription
	switch {
	case desc == "":
		uc.Findings.Add(Finding{
			TaskKey: a.Key(), Severity: SeverityWarning, Code: "meta_description_missing",
			Message: "page has no meta description",
		})
	case len(desc) < descMinLength:
		uc.Findings.Add(Finding{
			TaskKey: a.Key(), Severity: SeverityInfo, Code: "meta_description_too_short",
			Message: "meta description is shorter than the recommended minimum",
			Details: map[string]string{"length": strconv.Itoa(len(desc))},
		})
	case len(desc) > descMaxLength:
		uc.Findings.Add(Finding{
			TaskKey: a.Key(), Severity: SeverityInfo, Code: "meta_description_too_long",
			Message: "meta description exceeds the recommended maximum and may be truncated in search results",
			Details: map[string]string{"length": strconv.Itoa(len(desc))},
		})
	}

	uc.Reports.Add(ReportRow{
		TaskKey: a.Key(),
		DataMap: map[string]string{
			"title_length":       strconv.Itoa(len(title)),
			"description_length": strconv.Itoa(len(desc)),
		},
	})

	return nil
}
