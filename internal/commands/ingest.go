package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/acctree/internal/importer"
)

func newIngestCommand() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Import ledger exports from import/ as reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, "error")
			if err != nil {
				return err
			}
			defer r.logger.Sync()

			results, err := importer.New(r.store, r.rules).Ingest(cmd.Context(), r.root, user)
			out := cmd.OutOrStdout()
			for _, res := range results {
				fmt.Fprintf(out, "%s -> %s: %d records (%s), %d tagged by rules\n",
					res.File, res.ReportID, res.Records, res.Format, res.RuleTagged)
			}
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "Nothing to import")
				return nil
			}

			if r.git != nil {
				hash, err := r.git.CommitAll(cmd.Context(), fmt.Sprintf("ingest: %d report(s)", len(results)))
				if err != nil {
					return err
				}
				if hash != "" {
					fmt.Fprintf(out, "Committed %s\n", hash)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "acctree", "user recorded in the audit log")

	return cmd
}
