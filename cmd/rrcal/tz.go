package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rrcal/internal/ics"
	appLog "rrcal/internal/log"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "tz [file|url ...]",
		Short: "Dump the VTIMEZONE table of each calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sources, err := resolveSources(args)
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

			out := cmd.OutOrStdout()
			for _, c := range cals {
				fmt.Fprintf(out, "# %s (%d)\n", c.Name, c.TZ.Len())
				fmt.Fprint(out, c.TZ.String())
			}
			return nil
		},
	})
}
