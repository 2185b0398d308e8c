package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/acctree/internal/model"
	"github.com/cleared-dev/acctree/internal/service"
)

func newValidateCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate <reportId>...",
		Short: "Check every account family of one or more reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, "error")
			if err != nil {
				return err
			}
			defer r.logger.Sync()

			results, err := r.svc.BatchFamilies(cmd.Context(), args)
			if err != nil {
				return err
			}
			if asJSON {
				return writeIndented(cmd.OutOrStdout(), results)
			}
			for _, res := range results {
				printFamilies(cmd.OutOrStdout(), res)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")

	return cmd
}

func printFamilies(out io.Writer, res service.FamiliesResult) {
	s := res.Summary
	fmt.Fprintf(out, "Report %s: %d families, %d perfect, impact %s\n",
		res.ReportID, s.TotalFamilies, s.PerfectFamilies, s.TotalFinancialImpact.StringFixed(2))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FAMILY\tNAME\tTOTAL\tCOMPLETE\tAPPROACH\tISSUES")
	for _, f := range res.Families {
		types := make([]string, 0, len(f.Issues))
		for _, is := range f.Issues {
			types = append(types, string(is.ErrorType))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\t%s\t%s\n",
			f.FamilyCode, f.FamilyName, f.TotalAmount.StringFixed(2), f.CompletenessPercentage,
			f.RecommendedApproach, strings.Join(types, ","))
	}
	tw.Flush()

	for _, f := range res.Families {
		for _, is := range f.Issues {
			fmt.Fprintf(out, "  [%s] %s: %s\n", is.Severity, is.ErrorType, is.Message)
		}
	}
	for _, w := range res.Warnings {
		printWarning(out, w)
	}
}

func printWarning(out io.Writer, w model.Warning) {
	fmt.Fprintf(out, "  warning %s %s: %s\n", w.Kind, w.Code, w.Message)
}

func newRecommendCommand() *cobra.Command {
	var concept string

	cmd := &cobra.Command{
		Use:   "recommend <reportId> <code>",
		Short: "Suggest a classification for an account from its siblings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, "error")
			if err != nil {
				return err
			}
			defer r.logger.Sync()

			rec, err := r.svc.Recommend(cmd.Context(), service.RecommendRequest{
				ReportID: args[0],
				Code:     model.AccountCode(args[1]),
				Concept:  concept,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", rec.Code, rec.Concept)
			if rec.Classification != nil {
				t := rec.Classification.Wire()
				fmt.Fprintf(out, "  suggestion: %s / %s / %s / %s (confidence %.2f)\n",
					t.Tipo, t.Categoria, t.Subcategoria, t.Clasificacion, rec.Confidence)
			} else {
				fmt.Fprintln(out, "  no suggestion")
			}
			fmt.Fprintf(out, "  source: %s\n  %s\n", rec.Source, rec.Reasoning)
			return nil
		},
	}

	cmd.Flags().StringVar(&concept, "concept", "", "concept to report when the code is not in the report")

	return cmd
}

func newReconcileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile <reportId>",
		Short: "Compare classified totals with the control accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, "error")
			if err != nil {
				return err
			}
			defer r.logger.Sync()

			res, err := r.svc.Reconcile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIPO\tCONTROL\tCONTROL TOTAL\tCLASSIFIED\tDIFFERENCE\tBALANCED")
			for _, c := range res.Controls {
				control := string(c.ControlCode)
				if !c.ControlPresent {
					control += " (missing)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n", c.Tipo, control,
					c.ControlTotal.StringFixed(2), c.ClassifiedTotal.StringFixed(2), c.Difference.StringFixed(2), c.Balanced)
			}
			tw.Flush()
			if !res.Balanced {
				return fmt.Errorf("report %s is out of balance", res.ReportID)
			}
			return nil
		},
	}

	return cmd
}

func writeIndented(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
