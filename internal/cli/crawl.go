package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wraithcrawl/seoscan/internal/browser"
	"github.com/wraithcrawl/seoscan/internal/config"
	"github.com/wraithcrawl/seoscan/internal/controller"
	"github.com/wraithcrawl/seoscan/internal/db"
	"github.com/wraithcrawl/seoscan/internal/extractor"
	"github.com/wraithcrawl/seoscan/internal/fetcher"
	"github.com/wraithcrawl/seoscan/internal/frontier"
	"github.com/wraithcrawl/seoscan/internal/metadata"
	"github.com/wraithcrawl/seoscan/internal/plugin"
	"github.com/wraithcrawl/seoscan/internal/politeness"
	"github.com/wraithcrawl/seoscan/internal/robots"
	"github.com/wraithcrawl/seoscan/internal/sitemap"
	"github.com/wraithcrawl/seoscan/internal/storage"
	"github.com/wraithcrawl/seoscan/internal/urlnorm"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Start (or resume) a crawl of --url / --project and block until it completes",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := InitConfig()
		runCrawl(cfg)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a previously started crawl by --project name, reloading its stored settings",
	Run: func(cmd *cobra.Command, args []string) {
		if projectName == "" {
			fmt.Fprintln(os.Stderr, "Error: --project is required")
			os.Exit(1)
		}
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		resumeDBPath := dbPath
		if resumeDBPath == "" {
			resumeDBPath = config.NewDefault("").DatabasePath()
		}
		database, err := db.Open(resumeDBPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open database")
		}
		defer database.Close()

		sink := metadata.NewRecorder(os.Stderr, zerolog.InfoLevel)
		store := storage.NewStore(database, sink)

		projectID, blob, err := store.LoadProjectSettings(context.Background(), projectName)
		if err != nil {
			logger.Fatal().Err(err).Msg("no such project")
		}
		cfg, cfgErr := config.FromDTO(blob)
		if cfgErr != nil {
			logger.Fatal().Err(cfgErr).Msg("stored settings_blob failed to parse")
		}

		runCrawlAs(cfg, projectID, projectName)
	},
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(resumeCmd)
}

func parseLogLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return parsed
}

// runCrawl wires every collaborator package behind a Controller and runs
// one crawl to completion, printing a progress line at each tick. It is the
// crawl subcommand's entrypoint: it ensures the project row itself, then
// delegates to runCrawlAs.
func runCrawl(cfg *config.Config) {
	logger := zerolog.New(os.Stderr).Level(parseLogLevel(cfg.LogLevel())).With().Timestamp().Logger()

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}

	sink := metadata.NewRecorder(os.Stderr, parseLogLevel(cfg.LogLevel()))
	store := storage.NewStore(database, sink)
	name := ProjectName(cfg)
	projectID, err := store.EnsureProject(context.Background(), name, cfg.ToDTO())
	database.Close()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure project row")
	}

	runCrawlAs(cfg, projectID, name)
}

// runCrawlAs runs one crawl to completion against an already-resolved
// project id, printing a progress line at each tick. Shared by the crawl
// and resume subcommands.
func runCrawlAs(cfg *config.Config, projectID int64, projectName string) {
	logger := zerolog.New(os.Stderr).Level(parseLogLevel(cfg.LogLevel())).With().Str("project", projectName).Timestamp().Logger()

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer database.Close()

	sink := metadata.NewRecorder(os.Stderr, parseLogLevel(cfg.LogLevel()))
	store := storage.NewStore(database, sink)

	base, err := url.Parse(cfg.BaseURL())
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid --url")
	}

	var proxyCfg *browser.ProxyConfig
	if p := cfg.Proxy(); p != nil && p.Enabled {
		proxyCfg = &browser.ProxyConfig{Server: p.Server, Username: p.Username, Password: p.Password}
	}

	front := frontier.NewFrontier(database, sink)
	gate := politeness.NewGate(secondsToDuration(cfg.CrawlDelaySeconds()))
	pool := browser.NewPool(cfg.BrowserExecPath(), proxyCfg)
	fetch := fetcher.NewFetcher(pool)
	robot := robots.NewCachedRobot(sink)
	robot.Init(cfg.UserAgent())
	disc := sitemap.NewDiscoverer(sink, cfg.UserAgent())
	norm := urlnorm.NewNormalizer(base, sink)
	extr := extractor.NewExtractor(sink)
	rt := plugin.NewRuntime(plugin.TitleMetaAnalyzer{}, plugin.IndexabilityAnalyzer{})

	ctrl := controller.New(cfg, front, gate, pool, fetch, robot, disc, norm, extr, store, rt, sink, sink, logger)

	runCtx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("shutdown requested, stopping after in-flight fetches")
		ctrl.Stop()
		cancel()
	}()
	defer signal.Stop(sigCh)

	runErr := ctrl.Start(runCtx, projectID, func(p controller.Progress) {
		fmt.Fprintf(os.Stderr, "\rcrawled=%d discovered=%d queue=%d workers=%d errors=%d elapsed=%s %s",
			p.URLsCrawled, p.TotalDiscovered, p.QueueSize, p.ActiveWorkers, p.ErrorCount, p.Elapsed.Round(1e8), p.LastCrawledURL)
	})
	fmt.Fprintln(os.Stderr)

	if shutErr := pool.Shutdown(context.Background()); shutErr != nil {
		logger.Warn().Err(shutErr).Msg("browser pool shutdown did not complete cleanly")
	}

	if runErr != nil {
		logger.Fatal().Err(runErr).Msg("crawl failed")
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
