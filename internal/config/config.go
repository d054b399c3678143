package config

import (
	"encoding/json"
	"os"

	"github.com/wraithcrawl/seoscan/pkg/failure"
)

// ProxySettings carries the outbound proxy the browser pool and fetcher
// attach to every request for a project. Server/Username/Password are
// meaningful only when Enabled is true.
type ProxySettings struct {
	Enabled    bool
	Server     string
	Username   string
	Password   string
	BypassList []string
}

// Config is the immutable, validated settings for one crawl run. It carries
// every project-level field plus the run-level knobs (database path, browser
// binary override, log level, report directory) the crawl commands need.
type Config struct {
	//===============
	// Crawl scope
	//===============
	baseURL string

	//===============
	// Limits
	//===============
	maxCrawlDepth  int
	maxURLsToCrawl int

	//===============
	// Politeness
	//===============
	concurrentRequests int
	crawlDelaySeconds  float64
	timeoutSeconds     int

	//===============
	// Policy
	//===============
	respectRobotsTxt bool
	useSitemapXML    bool
	userAgent        string
	proxy            *ProxySettings

	//===============
	// Run-level knobs
	//===============
	databasePath    string
	browserExecPath string
	logLevel        string
	reportOutputDir string
}

type proxySettingsDTO struct {
	Enabled    bool     `json:"enabled"`
	Server     string   `json:"server,omitempty"`
	Username   string   `json:"username,omitempty"`
	Password   string   `json:"password,omitempty"`
	BypassList []string `json:"bypass_list,omitempty"`
}

type configDTO struct {
	BaseURL            string            `json:"base_url"`
	MaxCrawlDepth      int               `json:"max_crawl_depth,omitempty"`
	MaxURLsToCrawl     int               `json:"max_urls_to_crawl,omitempty"`
	ConcurrentRequests int               `json:"concurrent_requests,omitempty"`
	CrawlDelaySeconds  float64           `json:"crawl_delay_seconds,omitempty"`
	TimeoutSeconds     int               `json:"timeout_seconds,omitempty"`
	RespectRobotsTxt   bool              `json:"respect_robots_txt"`
	UseSitemapXML      bool              `json:"use_sitemap_xml"`
	UserAgent          string            `json:"user_agent,omitempty"`
	Proxy              *proxySettingsDTO `json:"proxy,omitempty"`
	DatabasePath       string            `json:"database_path,omitempty"`
	BrowserExecPath    string            `json:"browser_exec_path,omitempty"`
	LogLevel           string            `json:"log_level,omitempty"`
	ReportOutputDir    string            `json:"report_output_dir,omitempty"`
}

// ToDTO serializes c the same way a Project row's settings_blob is stored.
func (c Config) ToDTO() []byte {
	dto := configDTO{
		BaseURL:            c.baseURL,
		MaxCrawlDepth:      c.maxCrawlDepth,
		MaxURLsToCrawl:     c.maxURLsToCrawl,
		ConcurrentRequests: c.concurrentRequests,
		CrawlDelaySeconds:  c.crawlDelaySeconds,
		TimeoutSeconds:     c.timeoutSeconds,
		RespectRobotsTxt:   c.respectRobotsTxt,
		UseSitemapXML:      c.useSitemapXML,
		UserAgent:          c.userAgent,
		DatabasePath:       c.databasePath,
		BrowserExecPath:    c.browserExecPath,
		LogLevel:           c.logLevel,
		ReportOutputDir:    c.reportOutputDir,
	}
	if c.proxy != nil {
		dto.Proxy = &proxySettingsDTO{
			Enabled:    c.proxy.Enabled,
			Server:     c.proxy.Server,
			Username:   c.proxy.Username,
			Password:   c.proxy.Password,
			BypassList: c.proxy.BypassList,
		}
	}
	// Marshal errors only ever come from unsupported types, which Config
	// never contains; dropping the error keeps ToDTO usable as a plain
	// []byte producer at call sites that already hold a validated Config.
	blob, _ := json.Marshal(dto)
	return blob
}

// FromDTO decodes a settings_blob into a validated Config.
func FromDTO(blob []byte) (*Config, failure.ClassifiedError) {
	var dto configDTO
	if err := json.Unmarshal(blob, &dto); err != nil {
		return nil, &ConfigError{Message: err.Error(), Cause: ErrCauseParseFailure}
	}

	builder := NewDefault(dto.BaseURL)
	if dto.MaxCrawlDepth != 0 {
		builder = builder.WithMaxCrawlDepth(dto.MaxCrawlDepth)
	}
	if dto.MaxURLsToCrawl != 0 {
		builder = builder.WithMaxURLsToCrawl(dto.MaxURLsToCrawl)
	}
	if dto.ConcurrentRequests != 0 {
		builder = builder.WithConcurrentRequests(dto.ConcurrentRequests)
	}
	if dto.CrawlDelaySeconds != 0 {
		builder = builder.WithCrawlDelaySeconds(dto.CrawlDelaySeconds)
	}
	if dto.TimeoutSeconds != 0 {
		builder = builder.WithTimeoutSeconds(dto.TimeoutSeconds)
	}
	builder = builder.WithRespectRobotsTxt(dto.RespectRobotsTxt).WithUseSitemapXML(dto.UseSitemapXML)
	if dto.UserAgent != "" {
		builder = builder.WithUserAgent(dto.UserAgent)
	}
	if dto.Proxy != nil {
		builder = builder.WithProxy(ProxySettings{
			Enabled:    dto.Proxy.Enabled,
			Server:     dto.Proxy.Server,
			Username:   dto.Proxy.Username,
			Password:   dto.Proxy.Password,
			BypassList: dto.Proxy.BypassList,
		})
	}
	if dto.DatabasePath != "" {
		builder = builder.WithDatabasePath(dto.DatabasePath)
	}
	if dto.BrowserExecPath != "" {
		builder = builder.WithBrowserExecPath(dto.BrowserExecPath)
	}
	if dto.LogLevel != "" {
		builder = builder.WithLogLevel(dto.LogLevel)
	}
	if dto.ReportOutputDir != "" {
		builder = builder.WithReportOutputDir(dto.ReportOutputDir)
	}

	return builder.Build()
}

// WithConfigFile reads a JSON settings_blob from disk and validates it into
// a Config, the resume-path counterpart to FromDTO.
func WithConfigFile(path string) (*Config, failure.ClassifiedError) {
	if _, err := os.Stat(path); err != nil {
		return nil, &ConfigError{Message: err.Error(), Cause: ErrCauseFileDoesNotExist}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Message: err.Error(), Cause: ErrCauseReadFailure}
	}
	return FromDTO(content)
}

// NewDefault creates a builder seeded with the baseURL and conservative
// defaults for everything else.
func NewDefault(baseURL string) *Config {
	return &Config{
		baseURL:            baseURL,
		maxCrawlDepth:      5,
		maxURLsToCrawl:     1000,
		concurrentRequests: 5,
		crawlDelaySeconds:  0.5,
		timeoutSeconds:     30,
		respectRobotsTxt:   true,
		useSitemapXML:      true,
		userAgent:          "seoscan/1.0",
		databasePath:       "seoscan.db",
		logLevel:           "info",
		reportOutputDir:    "reports",
	}
}

func (c *Config) WithBaseURL(baseURL string) *Config {
	c.baseURL = baseURL
	return c
}

func (c *Config) WithConcurrentRequests(n int) *Config {
	c.concurrentRequests = n
	return c
}

func (c *Config) WithMaxCrawlDepth(depth int) *Config {
	c.maxCrawlDepth = depth
	return c
}

func (c *Config) WithMaxURLsToCrawl(n int) *Config {
	c.maxURLsToCrawl = n
	return c
}

func (c *Config) WithCrawlDelaySeconds(delay float64) *Config {
	c.crawlDelaySeconds = delay
	return c
}

func (c *Config) WithTimeoutSeconds(seconds int) *Config {
	c.timeoutSeconds = seconds
	return c
}

func (c *Config) WithRespectRobotsTxt(respect bool) *Config {
	c.respectRobotsTxt = respect
	return c
}

func (c *Config) WithUseSitemapXML(use bool) *Config {
	c.useSitemapXML = use
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithProxy(proxy ProxySettings) *Config {
	c.proxy = &proxy
	return c
}

func (c *Config) WithDatabasePath(path string) *Config {
	c.databasePath = path
	return c
}

func (c *Config) WithBrowserExecPath(path string) *Config {
	c.browserExecPath = path
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithReportOutputDir(dir string) *Config {
	c.reportOutputDir = dir
	return c
}

// Build validates c, returning the first violation found.
func (c *Config) Build() (*Config, failure.ClassifiedError) {
	if c.baseURL == "" {
		return nil, &ConfigError{Message: "base_url is required", Cause: ErrCauseInvalidOption}
	}
	if c.concurrentRequests < 1 {
		return nil, &ConfigError{Message: "concurrent_requests must be >= 1", Cause: ErrCauseInvalidOption}
	}
	if c.maxCrawlDepth < 0 {
		return nil, &ConfigError{Message: "max_crawl_depth must be >= 0", Cause: ErrCauseInvalidOption}
	}
	if c.maxURLsToCrawl < 1 {
		return nil, &ConfigError{Message: "max_urls_to_crawl must be >= 1", Cause: ErrCauseInvalidOption}
	}
	if c.crawlDelaySeconds < 0 {
		return nil, &ConfigError{Message: "crawl_delay_seconds must be >= 0", Cause: ErrCauseInvalidOption}
	}
	if c.timeoutSeconds <= 0 {
		return nil, &ConfigError{Message: "timeout_seconds must be > 0", Cause: ErrCauseInvalidOption}
	}
	if c.userAgent == "" {
		c.userAgent = "seoscan/1.0"
	}
	if c.proxy != nil && c.proxy.Enabled && c.proxy.Server == "" {
		return nil, &ConfigError{Message: "proxy.server is required when proxy.enabled", Cause: ErrCauseInvalidOption}
	}
	return c, nil
}

func (c *Config) BaseURL() string            { return c.baseURL }
func (c *Config) ConcurrentRequests() int    { return c.concurrentRequests }
func (c *Config) MaxCrawlDepth() int         { return c.maxCrawlDepth }
func (c *Config) MaxURLsToCrawl() int        { return c.maxURLsToCrawl }
func (c *Config) CrawlDelaySeconds() float64 { return c.crawlDelaySeconds }
func (c *Config) TimeoutSeconds() int        { return c.timeoutSeconds }
func (c *Config) RespectRobotsTxt() bool     { return c.respectRobotsTxt }
func (c *Config) UseSitemapXML() bool        { return c.useSitemapXML }
func (c *Config) UserAgent() string          { return c.userAgent }
func (c *Config) DatabasePath() string       { return c.databasePath }
func (c *Config) BrowserExecPath() string    { return c.browserExecPath }
func (c *Config) LogLevel() string           { return c.logLevel }
func (c *Config) ReportOutputDir() string    { return c.reportOutputDir }

// Proxy returns a copy of the configured proxy settings, or nil if none was set.
func (c *Config) Proxy() *ProxySettings {
	if c.proxy == nil {
		return nil
	}
	proxy := *c.proxy
	proxy.BypassList = append([]string(nil), c.proxy.BypassList...)
	return &proxy
}
