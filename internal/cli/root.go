/*
Responsibilities

- Parse CLI flags into a validated Config via config's functional-options
  builder
- Expose the flags and resume key (--project) the cmd/seoscan entrypoint
  needs to open a database, build a Controller and start a run
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wraithcrawl/seoscan/internal/config"
)

var (
	cfgFile          string
	projectName      string
	baseURL          string
	concurrency      int
	maxDepth         int
	maxURLs          int
	crawlDelay       float64
	timeoutSeconds   int
	respectRobots    bool
	noRespectRobots  bool
	useSitemap       bool
	noUseSitemap     bool
	userAgent        string
	dbPath           string
	browserExecPath  string
	logLevel         string
	reportOutputDir  string
	proxyServer      string
	proxyUsername    string
	proxyPassword    string
)

// rootCmd is the base command; crawl and resume are registered on it in
// crawl.go's init().
var rootCmd = &cobra.Command{
	Use:   "seoscan",
	Short: "A local-only, headless-browser SEO auditing crawler.",
	Long: `seoscan crawls a single site with a headless browser, extracts
on-page SEO facts (titles, meta tags, structured data, links),
runs a pluggable set of analyzers over every page, and persists findings
and link-graph data to a local sqlite database for reporting.`,
}

// Execute adds all child commands to rootCmd and runs it. Called once by
// cmd/seoscan's main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (JSON settings_blob)")
	rootCmd.PersistentFlags().StringVar(&projectName, "project", "", "project name; resumes an existing crawl_queue of the same name")
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "", "base URL to crawl (required unless --config-file is set)")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "number of concurrent fetch workers")
	rootCmd.PersistentFlags().IntVar(&maxDepth, "max-depth", 0, "maximum link depth from the base URL")
	rootCmd.PersistentFlags().IntVar(&maxURLs, "max-urls", 0, "maximum number of URLs to crawl (0 uses the default)")
	rootCmd.PersistentFlags().Float64Var(&crawlDelay, "crawl-delay", 0, "minimum seconds between requests to the same host")
	rootCmd.PersistentFlags().IntVar(&timeoutSeconds, "timeout", 0, "per-request timeout in seconds")
	rootCmd.PersistentFlags().BoolVar(&respectRobots, "respect-robots", false, "force robots.txt compliance on")
	rootCmd.PersistentFlags().BoolVar(&noRespectRobots, "no-respect-robots", false, "force robots.txt compliance off")
	rootCmd.PersistentFlags().BoolVar(&useSitemap, "use-sitemap", false, "force sitemap.xml discovery on")
	rootCmd.PersistentFlags().BoolVar(&noUseSitemap, "no-use-sitemap", false, "force sitemap.xml discovery off")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for HTTP and browser requests")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database path")
	rootCmd.PersistentFlags().StringVar(&browserExecPath, "browser-exec-path", "", "path to a Chromium-compatible browser binary")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "zerolog level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&reportOutputDir, "report-output-dir", "", "directory reports are written to")
	rootCmd.PersistentFlags().StringVar(&proxyServer, "proxy-server", "", "upstream proxy address (host:port)")
	rootCmd.PersistentFlags().StringVar(&proxyUsername, "proxy-username", "", "upstream proxy username")
	rootCmd.PersistentFlags().StringVar(&proxyPassword, "proxy-password", "", "upstream proxy password")
}

// InitConfig builds a Config from --config-file or the CLI flags, exiting
// the process on failure. baseURL must be non-empty unless --config-file
// was given.
func InitConfig() *config.Config {
	cfg, err := InitConfigWithError()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// InitConfigWithError is InitConfig's testable counterpart.
func InitConfigWithError() (*config.Config, error) {
	if cfgFile != "" {
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	if baseURL == "" {
		return nil, fmt.Errorf("--url is required unless --config-file is set")
	}

	builder := config.NewDefault(baseURL)
	if concurrency > 0 {
		builder = builder.WithConcurrentRequests(concurrency)
	}
	if maxDepth > 0 {
		builder = builder.WithMaxCrawlDepth(maxDepth)
	}
	if maxURLs > 0 {
		builder = builder.WithMaxURLsToCrawl(maxURLs)
	}
	if crawlDelay > 0 {
		builder = builder.WithCrawlDelaySeconds(crawlDelay)
	}
	if timeoutSeconds > 0 {
		builder = builder.WithTimeoutSeconds(timeoutSeconds)
	}
	if respectRobots {
		builder = builder.WithRespectRobotsTxt(true)
	}
	if noRespectRobots {
		builder = builder.WithRespectRobotsTxt(false)
	}
	if useSitemap {
		builder = builder.WithUseSitemapXML(true)
	}
	if noUseSitemap {
		builder = builder.WithUseSitemapXML(false)
	}
	if userAgent != "" {
		builder = builder.WithUserAgent(userAgent)
	}
	if dbPath != "" {
		builder = builder.WithDatabasePath(dbPath)
	}
	if browserExecPath != "" {
		builder = builder.WithBrowserExecPath(browserExecPath)
	}
	if logLevel != "" {
		builder = builder.WithLogLevel(logLevel)
	}
	if reportOutputDir != "" {
		builder = builder.WithReportOutputDir(reportOutputDir)
	}
	if proxyServer != "" {
		builder = builder.WithProxy(config.ProxySettings{
			Enabled:  true,
			Server:   proxyServer,
			Username: proxyUsername,
			Password: proxyPassword,
		})
	}

	cfg, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProjectName returns the resume key --project resolved to, defaulting to
// the configured base URL when --project was not given.
func ProjectName(cfg *config.Config) string {
	if projectName != "" {
		return projectName
	}
	return cfg.BaseURL()
}

func ResetFlags() {
	cfgFile = ""
	projectName = ""
	baseURL = ""
	concurrency = 0
	maxDepth = 0
	maxURLs = 0
	crawlDelay = 0
	timeoutSeconds = 0
	respectRobots = false
	noRespectRobots = false
	useSitemap = false
	noUseSitemap = false
	userAgent = ""
	dbPath = ""
	browserExecPath = ""
	logLevel = ""
	reportOutputDir = ""
	proxyServer = ""
	proxyUsername = ""
	proxyPassword = ""
}

// Test helpers to set flag values directly without going through cobra.
func SetConfigFileForTest(path string)  { cfgFile = path }
func SetProjectNameForTest(name string) { projectName = name }
func SetBaseURLForTest(url string)      { baseURL = url }
func SetConcurrencyForTest(n int)       { concurrency = n }
func SetMaxDepthForTest(n int)          { maxDepth = n }
func SetMaxURLsForTest(n int)           { maxURLs = n }
func SetCrawlDelayForTest(d float64)    { crawlDelay = d }
func SetTimeoutForTest(seconds int)     { timeoutSeconds = seconds }
func SetRespectRobotsForTest(v bool)    { respectRobots = v }
func SetNoRespectRobotsForTest(v bool)  { noRespectRobots = v }
func SetUseSitemapForTest(v bool)       { useSitemap = v }
func SetNoUseSitemapForTest(v bool)     { noUseSitemap = v }
func SetUserAgentForTest(agent string)  { userAgent = agent }
func SetDBPathForTest(path string)      { dbPath = path }
