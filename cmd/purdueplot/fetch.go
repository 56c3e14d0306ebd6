package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/InfiniteAengus/vista-purdue-plot/internal/scraper"
	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

var fetchLag int

var fetchCmd = &cobra.Command{
	Use:   "fetch [timestamp]",
	Short: "Fetch and print one minute of VISTA data",
	Long: `Requests the signal cycles and detector events for a single minute and
prints what was decoded. The CSV files are not touched.

The timestamp is a UTC minute as "YYYY-MM-DD HH:MM" (quote it). Without one
the current minute minus the configured lag is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().IntVar(&fetchLag, "lag", -1, "hours behind now to request when no timestamp is given (overrides config)")
	rootCmd.AddCommand(fetchCmd)
}

// parseMinute accepts "YYYY-MM-DD HH:MM" or "YYYY-MM-DD HH:MM:SS" in UTC
// and truncates to the minute
func parseMinute(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02 15:04", scraper.RequestTimeLayout, "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.Truncate(time.Minute), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp: %s (use \"YYYY-MM-DD HH:MM\")", s)
}

func runFetch(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Fetch started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var minute time.Time
	if len(args) == 1 {
		minute, err = parseMinute(args[0])
		if err != nil {
			return err
		}
	} else {
		lag := cfg.GetHourLag()
		if fetchLag >= 0 {
			lag = fetchLag
		}
		minute = time.Now().UTC().Truncate(time.Minute).Add(-time.Duration(lag) * time.Hour)
	}

	client := scraper.NewVistaClient(cfg.CyclesURL, cfg.TrafficURL, cfg.GetRequestTimeout())

	var (
		cycles models.CycleData
		events models.EventData
	)
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		data, err := client.FetchCycles(ctx, minute)
		if err != nil {
			return fmt.Errorf("fetching cycles: %w", err)
		}
		cycles = data
		return nil
	})
	g.Go(func() error {
		data, err := client.FetchEvents(ctx, minute)
		if err != nil {
			return fmt.Errorf("fetching traffic: %w", err)
		}
		events = data
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("Minute: %s UTC\n", minute.Format(scraper.RequestTimeLayout))

	fmt.Printf("\nCycles (%d locations):\n", len(cycles))
	fmt.Println("----------------------------------------")
	for _, loc := range sortLocations(cycles) {
		for _, ct := range cycles[loc] {
			fmt.Printf("%-14s", loc)
			for _, color := range models.Colors {
				v := "-"
				if ct.Has(color) {
					v = ct[color].Format("15:04:05.000")
				}
				fmt.Printf("  %s=%s", color, v)
			}
			fmt.Println()
		}
	}

	fmt.Printf("\nDetector events (%d locations):\n", len(events))
	fmt.Println("----------------------------------------")
	total := 0
	for _, loc := range sortLocations(events) {
		stamps := make([]string, 0, len(events[loc]))
		for _, t := range events[loc] {
			stamps = append(stamps, t.Format("15:04:05.000"))
		}
		total += len(stamps)
		fmt.Printf("%-14s  %3d  %s\n", loc, len(stamps), strings.Join(stamps, " "))
	}
	fmt.Println("----------------------------------------")
	fmt.Printf("Total: %d events\n", total)

	return nil
}

func sortLocations[V any](m map[models.Location]V) []models.Location {
	locs := make([]models.Location, 0, len(m))
	for loc := range m {
		locs = append(locs, loc)
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i].Less(locs[j]) })
	return locs
}
