package plugin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wraithcrawl/seoscan/internal/plugin"
)

type fakeAnalyzer struct {
	key      string
	priority int
	run      func(uc *plugin.UrlContext) error
}

func (f fakeAnalyzer) Key() string         { return f.key }
func (f fakeAnalyzer) DisplayName() string { return f.key }
func (f fakeAnalyzer) Priority() int       { return f.priority }
func (f fakeAnalyzer) Execute(_ context.Context, uc *plugin.UrlContext) error {
	return f.run(uc)
}

func TestRun_ExecutesAnalyzersInAscendingPriorityOrder(t *testing.T) {
	var order []string
	low := fakeAnalyzer{key: "b", priority: 50, run: func(uc *plugin.UrlContext) error {
		order = append(order, "b")
		return nil
	}}
	high := fakeAnalyzer{key: "a", priority: 10, run: func(uc *plugin.UrlContext) error {
		order = append(order, "a")
		return nil
	}}

	runtime := plugin.NewRuntime(low, high)
	runtime.Run(context.Background(), plugin.UrlContext{})

	assert.Equal(t, []string{"a", "b"}, order)
}

func TestRun_OneAnalyzerErrorDoesNotStopTheRest(t *testing.T) {
	ran := false
	failing := fakeAnalyzer{key: "fails", priority: 1, run: func(uc *plugin.UrlContext) error {
		return errors.New("boom")
	}}
	succeeding := fakeAnalyzer{key: "ok", priority: 2, run: func(uc *plugin.UrlContext) error {
		ran = true
		return nil
	}}

	outcome := plugin.NewRuntime(failing, succeeding).Run(context.Background(), plugin.UrlContext{})

	assert.True(t, ran)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, "fails", outcome.Errors[0].AnalyzerKey)
}

func TestRun_RecoversFromAnalyzerPanic(t *testing.T) {
	panicking := fakeAnalyzer{key: "panics", priority: 1, run: func(uc *plugin.UrlContext) error {
		panic("unexpected")
	}}

	outcome := plugin.NewRuntime(panicking).Run(context.Background(), plugin.UrlContext{})

	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, plugin.ErrCauseAnalyzerPanicked, outcome.Errors[0].Cause)
}

func TestRun_CollectsFindingsAndReportsFromAllAnalyzers(t *testing.T) {
	a := fakeAnalyzer{key: "a", priority: 1, run: func(uc *plugin.UrlContext) error {
		uc.Findings.Add(plugin.Finding{TaskKey: "a", Code: "x"})
		uc.Reports.Add(plugin.ReportRow{TaskKey: "a"})
		return nil
	}}
	b := fakeAnalyzer{key: "b", priority: 2, run: func(uc *plugin.UrlContext) error {
		uc.Findings.Add(plugin.Finding{TaskKey: "b", Code: "y"})
		return nil
	}}

	outcome := plugin.NewRuntime(a, b).Run(context.Background(), plugin.UrlContext{})

	assert.Len(t, outcome.Findings, 2)
	assert.Len(t, outcome.Reports, 1)
}

func TestTitleMetaAnalyzer_FlagsMissingTitleAndDescription(t *testing.T) {
	uc := &plugin.UrlContext{}
	outcome := plugin.NewRuntime(plugin.TitleMetaAnalyzer{}).Run(context.Background(), *uc)

	codes := map[string]bool{}
	for _, f := range outcome.Findings {
		codes[f.Code] = true
	}
	assert.True(t, codes["title_missing"])
	assert.True(t, codes["meta_description_missing"])
}

func TestIndexabilityAnalyzer_FlagsNoindexAndErrorStatus(t *testing.T) {
	noindex := true
	uc := plugin.UrlContext{
		Metadata: plugin.UrlMetadataView{RobotsNoindex: &noindex, StatusCode: 404},
	}
	outcome := plugin.NewRuntime(plugin.IndexabilityAnalyzer{}).Run(context.Background(), uc)

	codes := map[string]bool{}
	for _, f := range outcome.Findings {
		codes[f.Code] = true
	}
	assert.True(t, codes["noindex"])
	assert.True(t, codes["error_status"])
}
