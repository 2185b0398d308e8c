package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/acctree/internal/model"
	"github.com/cleared-dev/acctree/internal/rules"
)

func newRulesCommand() *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Classification rule operations",
	}
	rulesCmd.AddCommand(newRulesListCommand(), newRulesCreateCommand(), newRulesUpdateCommand())
	return rulesCmd
}

func newRulesListCommand() *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List classification rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, "error")
			if err != nil {
				return err
			}
			defer r.logger.Sync()

			list, err := r.svc.ListRules(cmd.Context(), activeOnly)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCODE\tTIPO\tCATEGORIA\tCLASIFICACION\tACTIVE\tFROM\tREPORTS")
			for _, rule := range list {
				t := rule.Tag.Wire()
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\t%s\t%d\n", rule.ID, rule.AccountCode,
					t.Tipo, t.Categoria, t.Clasificacion, rule.IsActive,
					rule.EffectiveFrom.Format("2006-01-02"), rule.AppliesToReportsCount)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "only rules in force now")

	return cmd
}

// tagFlags are the tag fields shared by rules create and rules update.
type tagFlags struct {
	tipo, categoria, subcategoria, clasificacion string
}

func (f *tagFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.tipo, "tipo", "", "Ingresos or Egresos")
	cmd.Flags().StringVar(&f.categoria, "categoria", "", "categoria_1")
	cmd.Flags().StringVar(&f.subcategoria, "subcategoria", "", "sub_categoria")
	cmd.Flags().StringVar(&f.clasificacion, "clasificacion", "", "clasificacion")
}

// update returns only the fields whose flags were given.
func (f *tagFlags) update(cmd *cobra.Command) model.TagUpdate {
	var u model.TagUpdate
	set := func(name string, v string, dst **string) {
		if cmd.Flags().Changed(name) {
			*dst = &v
		}
	}
	set("tipo", f.tipo, &u.Tipo)
	set("categoria", f.categoria, &u.Categoria)
	set("subcategoria", f.subcategoria, &u.Subcategoria)
	set("clasificacion", f.clasificacion, &u.Clasificacion)
	return u
}

func newRulesCreateCommand() *cobra.Command {
	var tags tagFlags
	var reason, user string

	cmd := &cobra.Command{
		Use:   "create <code>",
		Short: "Create the first classification rule for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, "error")
			if err != nil {
				return err
			}
			defer r.logger.Sync()

			rule, err := r.svc.CreateRule(cmd.Context(), rules.CreateRequest{
				AccountCode: model.AccountCode(args[0]),
				Tag:         model.NewTag(tags.tipo, tags.categoria, tags.subcategoria, tags.clasificacion),
				UserID:      user,
				Reason:      reason,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created rule %s for %s\n", rule.ID, rule.AccountCode)
			return nil
		},
	}

	tags.register(cmd)
	cmd.Flags().StringVar(&reason, "reason", "", "why the account is classified this way")
	cmd.Flags().StringVar(&user, "user", "", "reviewer (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newRulesUpdateCommand() *cobra.Command {
	var tags tagFlags
	var reason, user string
	var retroactive bool

	cmd := &cobra.Command{
		Use:   "update <ruleId>",
		Short: "Change a classification rule",
		Long: "Change a classification rule. With --retroactive every stored record of the\n" +
			"account is retagged; otherwise a new rule version applies to future imports only.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd, "error")
			if err != nil {
				return err
			}
			defer r.logger.Sync()

			res, err := r.svc.UpdateRules(cmd.Context(), rules.UpdateRequest{
				UserID: user,
				Changes: []rules.Change{{
					RuleID:             args[0],
					TagUpdates:         tags.update(cmd),
					ApplyRetroactively: retroactive,
					Reason:             reason,
				}},
			})
			var pe *model.PropagationError
			if errors.As(err, &pe) {
				if len(pe.Updated) > 0 {
					return fmt.Errorf("rollback for %s was incomplete; %d records kept the new tag: %w", pe.Code, len(pe.Updated), err)
				}
				return fmt.Errorf("nothing was changed for %s; %d records kept their tags: %w", pe.Code, len(pe.NotUpdated), err)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, c := range res.Changes {
				if c.Retroactive {
					fmt.Fprintf(out, "Rule %s: retagged %d records in %d reports\n", c.RuleID, c.AffectedRecords, c.AffectedReports)
				} else {
					fmt.Fprintf(out, "Rule %s superseded by %s for future imports\n", c.RuleID, c.NewRuleID)
				}
			}
			return nil
		},
	}

	tags.register(cmd)
	cmd.Flags().BoolVar(&retroactive, "retroactive", false, "retag every stored record of the account")
	cmd.Flags().StringVar(&reason, "reason", "", "why the rule changes (required)")
	cmd.Flags().StringVar(&user, "user", "", "reviewer (required)")
	_ = cmd.MarkFlagRequired("reason")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
