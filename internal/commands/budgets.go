package commands

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/budgie-app/budgie/internal/model"
	"github.com/budgie-app/budgie/internal/money"
	"github.com/budgie-app/budgie/internal/mutation"
	"github.com/budgie-app/budgie/internal/period"
)

func newBudgetsCommand(a *app) *cobra.Command {
	budgetCmd := &cobra.Command{
		Use:   "budgets",
		Short: "Manage monthly category budgets",
	}
	budgetCmd.AddCommand(
		newBudgetsListCommand(a),
		newBudgetsAddCommand(a),
		newBudgetsEditCommand(a),
		newBudgetsDeleteCommand(a),
		newBudgetsUsageCommand(a),
	)
	return budgetCmd
}

func newBudgetsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.connect(cmd); err != nil {
				return err
			}
			budgets, err := a.store.Budgets(cmd.Context())
			if err != nil {
				return err
			}
			idx, err := a.categories(cmd)
			if err != nil {
				return err
			}
			t := newTable("ID", "PERIOD", "CATEGORY", "AMOUNT")
			for _, b := range budgets {
				t.add(b.ID, b.Period.String(), idx.Name(b.CategoryID), money.Format(b.AmountCents))
			}
			return a.render(cmd.OutOrStdout(), budgets, t)
		},
	}
}

type budgetFlags struct {
	category string
	amount   string
	period   string
}

func (bf *budgetFlags) register(cmd *cobra.Command, defaults bool) {
	p := ""
	if defaults {
		p = period.Of(time.Now()).String()
	}
	cmd.Flags().StringVar(&bf.category, "category", "", "category id or name")
	cmd.Flags().StringVar(&bf.amount, "amount", "", "monthly limit, e.g. 250.00")
	cmd.Flags().StringVar(&bf.period, "period", p, "month (YYYY-MM)")
}

func (bf *budgetFlags) apply(a *app, cmd *cobra.Command, form *mutation.BudgetForm, all bool) error {
	set := func(name string) bool { return all || cmd.Flags().Changed(name) }
	if set("amount") {
		form.Amount = bf.amount
	}
	if set("period") {
		form.Period = bf.period
	}
	if set("category") && bf.category != "" {
		c, err := a.resolveCategory(cmd, bf.category)
		if err != nil {
			return err
		}
		form.CategoryID = c.ID
	}
	return nil
}

func newBudgetsAddCommand(a *app) *cobra.Command {
	var bf budgetFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Set a budget for a category and month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.connect(cmd); err != nil {
				return err
			}
			var form mutation.BudgetForm
			if err := bf.apply(a, cmd, &form, true); err != nil {
				return err
			}
			b, err := a.dispatcher.CreateBudget(cmd.Context(), form)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s: %s %s\n", b.ID, b.Period, money.Format(b.AmountCents))
			return nil
		},
	}

	bf.register(cmd, true)

	return cmd
}

func newBudgetsEditCommand(a *app) *cobra.Command {
	var bf budgetFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd); err != nil {
				return err
			}
			budgets, err := a.store.Budgets(cmd.Context())
			if err != nil {
				return err
			}
			i := slices.IndexFunc(budgets, func(b model.Budget) bool { return b.ID == args[0] })
			if i < 0 {
				return fmt.Errorf("budget %s not found", args[0])
			}
			cur := budgets[i]
			form := mutation.BudgetForm{
				CategoryID: cur.CategoryID,
				Amount:     money.String(cur.AmountCents),
				Period:     cur.Period.String(),
			}
			if err := bf.apply(a, cmd, &form, false); err != nil {
				return err
			}
			b, err := a.dispatcher.UpdateBudget(cmd.Context(), cur.ID, form)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s %s\n", b.ID, b.Period, money.Format(b.AmountCents))
			return nil
		},
	}

	bf.register(cmd, false)

	return cmd
}

func newBudgetsDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd); err != nil {
				return err
			}
			if err := a.dispatcher.DeleteBudget(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newBudgetsUsageCommand(a *app) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show spending against each budget for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := period.Of(time.Now())
			if month != "" {
				var err error
				if p, err = period.Parse(month); err != nil {
					return err
				}
			}
			if err := a.connect(cmd); err != nil {
				return err
			}
			usage, err := a.store.Utilization(cmd.Context(), p)
			if err != nil {
				return err
			}
			idx, err := a.categories(cmd)
			if err != nil {
				return err
			}
			t := newTable("CATEGORY", "BUDGET", "SPENT", "REMAINING")
			for _, u := range usage {
				t.add(idx.Name(u.CategoryID), money.Format(u.AmountCents), money.Format(u.UtilizationCents), money.Format(u.RemainingCents()))
			}
			return a.render(cmd.OutOrStdout(), usage, t)
		},
	}

	cmd.Flags().StringVar(&month, "period", "", "month (YYYY-MM, default current)")

	return cmd
}
