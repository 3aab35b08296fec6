package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"kardashev/internal/dashboard"
	"kardashev/internal/indicators"
	"kardashev/internal/kardashev"
	"kardashev/internal/model"
	"kardashev/internal/store"
	"kardashev/internal/store/sqlite"
)

const (
	defaultLoggingConfig = "<root>=INFO"

	// archiveTimeout bounds the sqlite writes, independently of -timeout.
	archiveTimeout = 30 * time.Second
)

var logger = loggo.GetLogger("kardashev.collector")

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		run(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func run(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dbPath := fs.String("db", "", "sqlite archive path (empty disables archiving)")
	timeout := fs.Duration("timeout", time.Minute, "overall deadline for the upstream requests")
	verbose := fs.Bool("verbose", false, "log at DEBUG and print every observation")
	fs.Parse(args)

	if err := configureLogging(*verbose); err != nil {
		fmt.Fprintln(os.Stderr, "invalid logging config:", err)
		os.Exit(2)
	}

	if err := runCollector(*dbPath, *timeout, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "collector run failed:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: collector run [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options:")
	fmt.Fprintln(os.Stderr, "  -db        sqlite archive path (default: none)")
	fmt.Fprintln(os.Stderr, "  -timeout   overall deadline for the upstream requests (default: 1m)")
	fmt.Fprintln(os.Stderr, "  -verbose   log at DEBUG and print every observation")
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

func runCollector(dbPath string, timeout time.Duration, verbose bool) error {
	svc, err := indicators.ServiceFromEnv(indicators.NewMetricsCollector())
	if err != nil {
		return errors.Trace(err)
	}
	loader, err := dashboard.NewLoader(svc, clock.WallClock)
	if err != nil {
		return errors.Trace(err)
	}

	st, err := openStore(dbPath)
	if err != nil {
		return errors.Trace(err)
	}
	defer st.Close()

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), timeout)
	snapshot := loader.Load(loadCtx)
	cancelLoad()
	printSummary(os.Stdout, snapshot, verbose)

	if strings.TrimSpace(dbPath) == "" {
		return nil
	}
	archiveCtx, cancelArchive := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancelArchive()
	archiveRun := store.NewRun(clock.WallClock, svc.RankingPeriod())
	if err := store.ArchiveSnapshot(archiveCtx, st, archiveRun, snapshot); err != nil {
		return errors.Trace(err)
	}
	logger.Infof("archived snapshot as run %s in %s", archiveRun.ID, dbPath)
	fmt.Printf("collector archived run=%s\n", archiveRun.ID)
	return nil
}

func openStore(path string) (store.Store, error) {
	if strings.TrimSpace(path) == "" {
		return &store.NopStore{}, nil
	}
	return sqlite.New(path)
}

func printSummary(w io.Writer, snapshot dashboard.Snapshot, verbose bool) {
	headline := snapshot.Headline
	fmt.Fprintf(w, "population       %s\n", statLine(headline.Population))
	fmt.Fprintf(w, "life expectancy  %s\n", statLine(headline.LifeExpectancy))
	fmt.Fprintf(w, "energy use       %s\n", statLine(headline.EnergyUsage))
	if headline.Kardashev != nil {
		fmt.Fprintf(w, "kardashev        %.4f (%s, %s)\n",
			headline.Kardashev.Value,
			humanize.SIWithDigits(headline.Kardashev.Watts, 2, "W"),
			headline.Kardashev.Period,
		)
	} else {
		fmt.Fprintln(w, "kardashev        unavailable")
	}

	fmt.Fprintf(w, "top life expectancy (%s):\n", snapshot.TopLifeExpectancy.Period)
	for i, entry := range snapshot.TopLifeExpectancy.Entries {
		fmt.Fprintf(w, "  %d. %s %.1f\n", i+1, entry.CountryLabel, *entry.Value)
	}

	counts := []struct {
		accessor string
		size     int
	}{
		{indicators.AccessorPopulation, len(snapshot.Population)},
		{indicators.AccessorPovertyRate, len(snapshot.PovertyRate)},
		{indicators.AccessorLifeExpectancy, len(snapshot.LifeExpectancy)},
		{indicators.AccessorEnergyUsage, len(snapshot.EnergyUsage)},
		{indicators.AccessorTopLifeExpectancy, len(snapshot.TopLifeExpectancy.Entries)},
		{indicators.AccessorEnergyHistory, energyCount(snapshot.EnergyHistory)},
		{indicators.AccessorEnergyProjections, energyCount(snapshot.EnergyProjections)},
	}
	for _, count := range counts {
		if count.size < 0 {
			fmt.Fprintf(w, "%-30s unavailable\n", count.accessor)
			continue
		}
		fmt.Fprintf(w, "%-30s %s\n", count.accessor, humanize.Comma(int64(count.size)))
	}

	if verbose {
		for _, observation := range snapshot.PopulationTrend() {
			fmt.Fprintf(w, "%s %s %s %s\n",
				observation.IndicatorID,
				observation.CountryCode,
				observation.Period,
				dashboard.FormatStat(*observation.Value),
			)
		}
		if milestone, ok := nearestMilestone(snapshot); ok {
			fmt.Fprintf(w, "nearest milestone %s: %s\n", kardashev.FormatYear(milestone.Year), milestone.Title)
		}
	}

	fmt.Fprintf(w, "collector run complete (generated_at=%s)\n", snapshot.GeneratedAt.Format(time.RFC3339))
}

func statLine(stat *dashboard.Stat) string {
	if stat == nil {
		return "unavailable"
	}
	return fmt.Sprintf("%s (%s)", stat.Display, stat.Period)
}

func energyCount(series model.EnergySeries) int {
	if !series.Available {
		return -1
	}
	return len(series.Records)
}

// nearestMilestone finds the timeline milestone closest to the latest
// population period.
func nearestMilestone(snapshot dashboard.Snapshot) (kardashev.Milestone, bool) {
	if snapshot.Headline.Population == nil {
		return kardashev.Milestone{}, false
	}
	year, ok := model.PeriodKey(snapshot.Headline.Population.Period)
	if !ok {
		return kardashev.Milestone{}, false
	}
	timeline, err := kardashev.Timeline()
	if err != nil {
		logger.Warningf("loading timeline: %v", err)
		return kardashev.Milestone{}, false
	}
	return kardashev.Nearest(timeline, year)
}
