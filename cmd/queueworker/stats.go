package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print every known document's current state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			q, _, err := buildQueue(cfg)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tSTATE\tLAST UPDATE")
			for esi := range q.GetStates(context.Background()) {
				fmt.Fprintf(w, "%s\t%s\t%d\n", esi.Key, esi.StateInfo.State, esi.StateInfo.LastUpdateUnix)
			}
			return w.Flush()
		},
	}
}
