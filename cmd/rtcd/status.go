package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/rtcd/internal/adapters/fs"
	"github.com/bft-labs/rtcd/internal/cliconfig"
	"github.com/bft-labs/rtcd/internal/domain"
)

func newStatusCommand() *cobra.Command {
	var (
		stateDir string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the last status written by a running or stopped rtcd",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := fs.NewStatusFileRepository(stateDir)
			status, err := repo.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load status: %w", err)
			}
			if status == nil {
				return fmt.Errorf("no status at %s", repo.Path())
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}
			return printStatus(cmd.OutOrStdout(), status, time.Now())
		},
	}

	cmd.Flags().StringVar(&stateDir, "state-dir", cliconfig.DefaultStateDir(), "directory containing status.json")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON snapshot")
	return cmd
}

// printStatus renders one table per execution context.
func printStatus(w io.Writer, status []domain.ContextStatus, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, st := range status {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		running := "stopped"
		if st.Running {
			running = "running"
		}
		fmt.Fprintf(tw, "%s\t%s\t%g Hz\t%s\tcycles=%d\tage=%s\n",
			st.Name, st.Kind, st.Rate, running, st.Cycles, now.Sub(st.UpdatedAt).Round(time.Millisecond))
		if st.Owner != "" {
			fmt.Fprintf(tw, "  owner\t%s\n", st.Owner)
		}
		for _, p := range st.Participants {
			fmt.Fprintf(tw, "  %s\t%d\t%s\t%s\n", p.Name, p.ContextID, p.State, p.Capabilities)
		}
	}
	return tw.Flush()
}
