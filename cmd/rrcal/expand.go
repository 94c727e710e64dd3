package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"rrcal/internal/calendar"
	"rrcal/internal/config"
	"rrcal/internal/ics"
	appLog "rrcal/internal/log"
	"rrcal/internal/model"
)

type expandOptions struct {
	from, to string
	days     int
	limit    int
	tz       string
	json     bool
}

func newExpandCmd() *cobra.Command {
	var opts expandOptions
	cmd := &cobra.Command{
		Use:   "expand [file|url ...]",
		Short: "Print the merged occurrences of one or more calendars",
		Long: `Print every occurrence within [--from, --to) in time order.

Without arguments the sources listed in the config file are used.
--from/--to accept DATE, DATE-TIME, RFC 3339, YYYY-MM-DD or phrases such
as "tomorrow" or "next monday".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(cmd, args, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.from, "from", "", "window start (default now)")
	f.StringVar(&opts.to, "to", "", "window end, exclusive (default from + days)")
	f.IntVarP(&opts.days, "days", "d", 7, "window length when --to is not given")
	f.IntVarP(&opts.limit, "limit", "n", 0, "stop after this many entries (0 = config max_entries)")
	f.StringVar(&opts.tz, "tz", "", "display timezone (default: each event's own)")
	f.BoolVar(&opts.json, "json", false, "print JSON instead of text lines")
	return cmd
}

func init() {
	rootCmd.AddCommand(newExpandCmd())
}

func runExpand(cmd *cobra.Command, args []string, opts expandOptions) error {
	cfg, sources, err := resolveSources(args)
	if err != nil {
		return err
	}

	var display *time.Location
	if opts.tz != "" {
		if display, err = time.LoadLocation(opts.tz); err != nil {
			return fmt.Errorf("--tz: %w", err)
		}
	}
	winLoc, err := loadLocation(cfg.Timezone)
	if err != nil {
		winLoc = time.Local
	}
	if display != nil {
		winLoc = display
	}
	begin, end, err := window(opts.from, opts.to, opts.days, time.Now(), winLoc)
	if err != nil {
		return err
	}

	cals, err := ics.NewFetcher(cfg.CacheDir).LoadAll(cmd.Context(), sources)
	if err != nil {
		if len(cals) == 0 {
			return err
		}
		appLog.Warn("some sources failed", "err", err)
	}

	limit := opts.limit
	if limit <= 0 {
		limit = cfg.MaxEntries
	}
	it := calendar.NewIter(calendar.Events(cals...), begin, end)
	entries, more := calendar.Collect(it, limit)
	if more {
		appLog.Warn("output truncated", "limit", limit)
	}

	return printEntries(cmd.OutOrStdout(), entries, display, opts.json)
}

// resolveSources turns positional arguments into sources, or falls back
// to the config file when there are none.
func resolveSources(args []string) (*config.Config, []ics.Source, error) {
	if len(args) == 0 {
		cfg, err := loadConfig()
		if err != nil {
			return nil, nil, err
		}
		sources := ics.SourcesFromConfig(cfg.Sources)
		if len(sources) == 0 {
			return nil, nil, errors.New("no sources: pass files or URLs, or list them in the config")
		}
		return cfg, sources, nil
	}

	cfg := config.DefaultConfig()
	sources := make([]ics.Source, 0, len(args))
	for _, a := range args {
		name := filepath.Base(a)
		sources = append(sources, ics.Source{ID: name, Name: name, URL: a})
	}
	return cfg, sources, nil
}

func printEntries(w io.Writer, entries []calendar.Entry, loc *time.Location, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(model.FromEntries(entries, loc))
	}
	for _, e := range entries {
		if loc != nil {
			e.Start = e.Start.In(loc)
		}
		if _, err := fmt.Fprintln(w, e.String()); err != nil {
			return err
		}
	}
	return nil
}
