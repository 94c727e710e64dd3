package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rrcal/internal/datetime"
	"rrcal/internal/rrule"
)

func newRuleCmd() *cobra.Command {
	var (
		start   string
		tz      string
		wkst    string
		count   int
		exclude []string
	)
	cmd := &cobra.Command{
		Use:   "rule RRULE",
		Short: "Parse a recurrence rule, print it normalized and list its first occurrences",
		Example: `  rrcal rule "FREQ=MONTHLY;BYDAY=-1FR" --start 20200101T090000Z --count 5
  rrcal rule "RRULE:FREQ=WEEKLY;BYDAY=MO,WE" --start 20200106T083000 --tz Europe/Berlin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := loadLocation(tz)
			if err != nil {
				return fmt.Errorf("--tz: %w", err)
			}
			if tz == "" {
				loc = time.UTC
			}
			dtstart, err := datetime.Parse(start, loc)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}

			rule, err := rrule.Parse(args[0], dtstart)
			if err != nil {
				return err
			}
			if !strings.Contains(strings.ToUpper(args[0]), "WKST=") {
				if rule.WeekStart, err = weekStart(wkst); err != nil {
					return err
				}
			}

			excl := rrule.NewExclusions()
			for _, x := range exclude {
				t, err := datetime.Parse(x, loc)
				if err != nil {
					return fmt.Errorf("--exclude: %w", err)
				}
				excl.Add(t)
			}

			it, err := rule.Iterator(dtstart, excl)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, rule.String())
			for i := 0; i < count; i++ {
				t, ok := it.Next()
				if !ok {
					break
				}
				fmt.Fprintln(out, datetime.Format(t))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&start, "start", time.Now().UTC().Format("20060102T150405Z"), "DTSTART as DATE or DATE-TIME")
	f.StringVar(&tz, "tz", "", "location for a floating --start (default UTC)")
	f.StringVar(&wkst, "wkst", "", "week start when the rule has no WKST: monday or sunday (default config week_start)")
	f.IntVarP(&count, "count", "n", 10, "number of occurrences to print")
	f.StringSliceVar(&exclude, "exclude", nil, "EXDATE values to skip")
	return cmd
}

func init() {
	rootCmd.AddCommand(newRuleCmd())
}

// weekStart resolves the --wkst value, falling back to week_start of an
// existing config file, then to Monday.
func weekStart(flag string) (rrule.Weekday, error) {
	name := flag
	if name == "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return rrule.Monday, nil
		}
		cfg, err := loadConfig()
		if err != nil {
			return rrule.Monday, err
		}
		name = cfg.WeekStart
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "monday", "mo":
		return rrule.Monday, nil
	case "sunday", "su":
		return rrule.Sunday, nil
	}
	return rrule.Monday, fmt.Errorf("week start %q: want monday or sunday", name)
}
