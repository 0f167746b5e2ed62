package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kass/go-skytrack/pkg/api"
	"github.com/kass/go-skytrack/pkg/config"
	"github.com/kass/go-skytrack/pkg/feed"
	"github.com/kass/go-skytrack/pkg/models"
	"github.com/kass/go-skytrack/pkg/pipeline"
	"github.com/kass/go-skytrack/pkg/poi"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "skytrack",
	Short: "Aerial-asset tracking with nearest-POI proximity matching",
	Long: `Skytrack ingests periodic balloon position snapshots, reconstructs
per-asset histories, retrieves points of interest for a viewport and
computes nearest-POI links for each tracked asset.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the refresh pipeline and the HTTP API",
	Run:   runServe,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch one snapshot offset and print the validated records",
	Run:   runFetch,
}

var poisCmd = &cobra.Command{
	Use:   "pois",
	Short: "Query the POIs of one bounding box",
	Run:   runPOIs,
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run one full cycle and print the nearest-POI links",
	Run:   runMatch,
}

var (
	fetchOffset int
	boxSouth    float64
	boxWest     float64
	boxNorth    float64
	boxEast     float64
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	fetchCmd.Flags().IntVarP(&fetchOffset, "offset", "o", 0, "Snapshot offset, 0 = most recent")

	poisCmd.Flags().Float64Var(&boxSouth, "south", 0, "Southern bound in degrees")
	poisCmd.Flags().Float64Var(&boxWest, "west", 0, "Western bound in degrees")
	poisCmd.Flags().Float64Var(&boxNorth, "north", 0, "Northern bound in degrees")
	poisCmd.Flags().Float64Var(&boxEast, "east", 0, "Eastern bound in degrees")
	for _, name := range []string{"south", "west", "north", "east"} {
		_ = poisCmd.MarkFlagRequired(name)
	}

	rootCmd.AddCommand(serveCmd, fetchCmd, poisCmd, matchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadSettings() config.Settings {
	if cfgFile == "" {
		return config.Default()
	}
	cfg, err := config.New(cfgFile)
	if err != nil {
		log.Fatalf("Loading config failed: %v", err)
	}
	return cfg
}

func configureLogging(cfg config.Settings) {
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(cfg.GetLogLevel())
	}

	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: false})
	log.SetOutput(os.Stdout)

	if cfg.LogFilePath != "" {
		logDir := filepath.Dir(cfg.LogFilePath)
		if _, err := os.Stat(logDir); os.IsNotExist(err) {
			if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
				log.Fatalf("Creating log directory failed: %v", err)
			}
		}

		lumberjackLogger := &lumberjack.Logger{
			Filename:   cfg.LogFilePath,
			MaxSize:    100,
			MaxBackups: 30,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}

		fileFmt := &log.TextFormatter{DisableColors: true, FullTimestamp: true}
		hook := lfshook.NewHook(lfshook.WriterMap{
			log.PanicLevel: lumberjackLogger,
			log.FatalLevel: lumberjackLogger,
			log.ErrorLevel: lumberjackLogger,
			log.WarnLevel:  lumberjackLogger,
			log.InfoLevel:  lumberjackLogger,
			log.DebugLevel: lumberjackLogger,
		}, fileFmt)

		log.AddHook(hook)
	}
}

func buildComponents(cfg config.Settings) (*feed.Fetcher, *poi.Store, *pipeline.Pipeline) {
	fetcher := feed.NewFetcher(cfg.Feed.BaseURL, cfg.GetFeedTimeout())
	assembler := feed.NewAssembler(fetcher, cfg.Feed.OffsetWindow, cfg.Feed.AssetLimit)

	client := poi.NewClient(cfg.POI.URL, cfg.POI.Selector, cfg.POI.QueryTimeoutSec)
	cache := poi.NewCache(cfg.GetCacheTTL(), nil)
	store := poi.NewStore(client, cache, cfg.POI.MaxSpanDegrees, cfg.GetFallbackPOIs())

	pipe := pipeline.New(assembler, store, cfg.Pipeline.Viewport, cfg.GetRefreshInterval())
	return fetcher, store, pipe
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadSettings()
	configureLogging(cfg)

	fetcher, store, pipe := buildComponents(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go pipe.Run(ctx)

	srv := api.NewServer(fetcher, store, pipe)
	if err := srv.Run(ctx, cfg.ListenAddress); err != nil {
		log.Fatalf("API server failed: %v", err)
	}
}

func runFetch(cmd *cobra.Command, args []string) {
	cfg := loadSettings()
	configureLogging(cfg)

	fetcher := feed.NewFetcher(cfg.Feed.BaseURL, cfg.GetFeedTimeout())
	samples := fetcher.FetchOffset(context.Background(), fetchOffset)

	printJSON(samples)
}

func runPOIs(cmd *cobra.Command, args []string) {
	cfg := loadSettings()
	configureLogging(cfg)

	_, store, _ := buildComponents(cfg)
	box := models.BoundingBox{South: boxSouth, West: boxWest, North: boxNorth, East: boxEast}
	pois := store.Query(context.Background(), box)

	printJSON(pois)
}

func runMatch(cmd *cobra.Command, args []string) {
	cfg := loadSettings()
	configureLogging(cfg)

	_, _, pipe := buildComponents(cfg)
	pipe.RunCycle(context.Background())

	printLinks(pipe.Links())
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Encoding output failed: %v", err)
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	assetStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func printLinks(links []models.Link) {
	styled := isatty.IsTerminal(os.Stdout.Fd())
	paint := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	if len(links) == 0 {
		fmt.Println(paint(dimStyle, "no links computed (no assets or no POIs in viewport)"))
		return
	}

	fmt.Println(paint(headerStyle, fmt.Sprintf("%-12s %-28s %12s %10s", "ASSET", "NEAREST POI", "METERS", "MILES")))
	for _, l := range links {
		name := l.POI.Name
		if name == "" {
			name = l.POI.ID
		}
		if len(name) > 28 {
			name = name[:25] + "..."
		}
		fmt.Printf("%s %-28s %12.0f %10.2f\n",
			paint(assetStyle, fmt.Sprintf("%-12s", l.AssetID)), name, l.DistanceM, l.DistanceMi)
	}
	fmt.Println(paint(dimStyle, fmt.Sprintf("%d links", len(links))))
}
