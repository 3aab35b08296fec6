package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"kardashev/internal/dashboard"
	"kardashev/internal/indicators"
	"kardashev/internal/kardashev"
	"kardashev/internal/model"
)

const defaultLoggingConfig = "<root>=INFO"

var logger = loggo.GetLogger("kardashev.publisher")

type metaFile struct {
	GeneratedAt     string `json:"generated_at"`
	RankingPeriod   string `json:"ranking_period"`
	EnergyAvailable bool   `json:"energy_available"`
}

type dashboardFile struct {
	dashboard.Snapshot
	PopulationTrend model.Series         `json:"population_trend"`
	PovertyTrend    model.Series         `json:"poverty_trend"`
	Types           []kardashev.TypeInfo `json:"types"`
}

type timelineFile struct {
	Milestones []timelineEntry `json:"milestones"`
}

type timelineEntry struct {
	kardashev.Milestone
	Label string `json:"label"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "build":
		build(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func build(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	outDir := fs.String("out", "site/data", "output directory")
	timeout := fs.Duration("timeout", time.Minute, "overall deadline for the upstream requests")
	verbose := fs.Bool("verbose", false, "log at DEBUG")
	fs.Parse(args)

	if err := configureLogging(*verbose); err != nil {
		fmt.Fprintln(os.Stderr, "invalid logging config:", err)
		os.Exit(2)
	}

	svc, err := indicators.ServiceFromEnv(indicators.NewMetricsCollector())
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build indicator service:", err)
		os.Exit(1)
	}
	loader, err := dashboard.NewLoader(svc, clock.WallClock)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build loader:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := publish(ctx, loader, svc.RankingPeriod(), *outDir); err != nil {
		fmt.Fprintln(os.Stderr, "publisher build failed:", err)
		os.Exit(1)
	}
	fmt.Printf("publisher build complete (out=%s)\n", *outDir)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: publisher build [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options:")
	fmt.Fprintln(os.Stderr, "  -out       output directory (default: site/data)")
	fmt.Fprintln(os.Stderr, "  -timeout   overall deadline for the upstream requests (default: 1m)")
	fmt.Fprintln(os.Stderr, "  -verbose   log at DEBUG")
}

func configureLogging(verbose bool) error {
	config := strings.TrimSpace(os.Getenv("KARDASHEV_LOGGING_CONFIG"))
	if config == "" {
		config = defaultLoggingConfig
	}
	if err := loggo.ConfigureLoggers(config); err != nil {
		return errors.Trace(err)
	}
	if verbose {
		loggo.GetLogger("kardashev").SetLogLevel(loggo.DEBUG)
	}
	return nil
}

// publish loads one snapshot and writes meta.json, dashboard.json and
// timeline.json into outDir.
func publish(ctx context.Context, loader *dashboard.Loader, rankingPeriod, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Annotate(err, "creating output dir")
	}

	timeline, err := kardashev.Timeline()
	if err != nil {
		return errors.Annotate(err, "loading timeline")
	}

	snapshot := loader.Load(ctx)
	logger.Debugf("loaded snapshot generated at %s", snapshot.GeneratedAt)

	meta := metaFile{
		GeneratedAt:     snapshot.GeneratedAt.Format(time.RFC3339),
		RankingPeriod:   rankingPeriod,
		EnergyAvailable: snapshot.EnergyHistory.Available || snapshot.EnergyProjections.Available,
	}
	if err := writeJSON(filepath.Join(outDir, "meta.json"), meta); err != nil {
		return errors.Annotate(err, "writing meta.json")
	}

	board := dashboardFile{
		Snapshot:        snapshot,
		PopulationTrend: snapshot.PopulationTrend(),
		PovertyTrend:    snapshot.PovertyTrend(),
		Types:           kardashev.Types(),
	}
	if err := writeJSON(filepath.Join(outDir, "dashboard.json"), board); err != nil {
		return errors.Annotate(err, "writing dashboard.json")
	}

	entries := make([]timelineEntry, 0, len(timeline))
	for _, milestone := range timeline {
		entries = append(entries, timelineEntry{Milestone: milestone, Label: kardashev.FormatYear(milestone.Year)})
	}
	if err := writeJSON(filepath.Join(outDir, "timeline.json"), timelineFile{Milestones: entries}); err != nil {
		return errors.Annotate(err, "writing timeline.json")
	}
	return nil
}

func writeJSON(path string, value any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
