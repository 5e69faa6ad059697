package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/loykin/apicall"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errNoStore = errors.New("history store is not configured (use --store or the store section of the config)")

func newHistoryCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded interactions, newest first",
		Args:  rangeArgs(0, 0),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, _, err := setup(cmd, v)
			if err != nil {
				return err
			}
			sc := doc.Store.ToStoreConfig()
			if sc == nil {
				return errNoStore
			}
			ctx := cmd.Context()
			st, err := apicall.OpenStore(ctx, *sc)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			runs, err := st.ListRuns(ctx, v.GetInt("limit"))
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum number of runs to show (0 = all)")
	bindFlags(v, cmd.Flags(), "limit")
	return cmd
}

func printRuns(w io.Writer, runs []apicall.RunRecord) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "No interactions recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tRAN AT\tAPI\tMETHOD\tSTATUS\tATTEMPTS\tDURATION\tRESULT\tENDPOINT")
	for _, r := range runs {
		result := "ok"
		if r.Failed {
			result = "failed"
		}
		status := "-"
		if r.StatusCode != 0 {
			status = fmt.Sprintf("%d", r.StatusCode)
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%dms\t%s\t%s\n",
			r.ID, r.RanAt, r.APIName, r.Method, status, r.Attempts, r.DurationMS, result, r.Endpoint)
	}
	_ = tw.Flush()
	for _, r := range runs {
		if r.Failed && r.Error != "" {
			_, _ = fmt.Fprintf(w, "run %d: %s\n", r.ID, r.Error)
		}
	}
}
