package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wraithcrawl/seoscan/internal/config"
)

func TestNewDefault_BuildsWithDocumentedDefaults(t *testing.T) {
	cfg, err := config.NewDefault("https://example.com").Build()
	require.Nil(t, err)
	assert.Equal(t, "https://example.com", cfg.BaseURL())
	assert.Equal(t, 5, cfg.ConcurrentRequests())
	assert.Equal(t, 5, cfg.MaxCrawlDepth())
	assert.True(t, cfg.RespectRobotsTxt())
	assert.True(t, cfg.UseSitemapXML())
	assert.Nil(t, cfg.Proxy())
}

func TestBuild_RejectsEmptyBaseURL(t *testing.T) {
	_, err := config.NewDefault("").Build()
	require.NotNil(t, err)
	assert.Equal(t, config.ErrCauseInvalidOption, err.(*config.ConfigError).Cause)
}

func TestBuild_RejectsNonPositiveConcurrency(t *testing.T) {
	_, err := config.NewDefault("https://example.com").WithConcurrentRequests(0).Build()
	require.NotNil(t, err)
}

func TestBuild_RejectsNegativeCrawlDelay(t *testing.T) {
	_, err := config.NewDefault("https://example.com").WithCrawlDelaySeconds(-1).Build()
	require.NotNil(t, err)
}

func TestBuild_RejectsProxyEnabledWithoutServer(t *testing.T) {
	_, err := config.NewDefault("https://example.com").
		WithProxy(config.ProxySettings{Enabled: true}).
		Build()
	require.NotNil(t, err)
}

func TestWithProxy_RoundTripsThroughDTO(t *testing.T) {
	cfg, err := config.NewDefault("https://example.com").
		WithProxy(config.ProxySettings{Enabled: true, Server: "proxy:8080", BypassList: []string{"internal.example.com"}}).
		Build()
	require.Nil(t, err)

	blob := cfg.ToDTO()
	decoded, decodeErr := config.FromDTO(blob)
	require.Nil(t, decodeErr)
	require.NotNil(t, decoded.Proxy())
	assert.Equal(t, "proxy:8080", decoded.Proxy().Server)
	assert.Equal(t, []string{"internal.example.com"}, decoded.Proxy().BypassList)
}

func TestFromDTO_AppliesDefaultsForOmittedFields(t *testing.T) {
	decoded, err := config.FromDTO([]byte(`{"base_url":"https://example.com"}`))
	require.Nil(t, err)
	assert.Equal(t, 5, decoded.ConcurrentRequests())
	assert.Equal(t, 30, decoded.TimeoutSeconds())
}

func TestFromDTO_RejectsMalformedJSON(t *testing.T) {
	_, err := config.FromDTO([]byte(`not json`))
	require.NotNil(t, err)
	assert.Equal(t, config.ErrCauseParseFailure, err.(*config.ConfigError).Cause)
}

func TestWithConfigFile_ReportsMissingFile(t *testing.T) {
	_, err := config.WithConfigFile("/nonexistent/path/seoscan.json")
	require.NotNil(t, err)
	assert.Equal(t, config.ErrCauseFileDoesNotExist, err.(*config.ConfigError).Cause)
}
