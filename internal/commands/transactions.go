package commands

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/budgie-app/budgie/internal/category"
	"github.com/budgie-app/budgie/internal/export"
	"github.com/budgie-app/budgie/internal/model"
	"github.com/budgie-app/budgie/internal/money"
	"github.com/budgie-app/budgie/internal/mutation"
	"github.com/budgie-app/budgie/internal/period"
	"github.com/budgie-app/budgie/internal/store"
)

func newTransactionsCommand(a *app) *cobra.Command {
	txnCmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txn"},
		Short:   "List and edit transactions",
	}
	txnCmd.AddCommand(
		newTransactionsListCommand(a),
		newTransactionsAddCommand(a),
		newTransactionsEditCommand(a),
		newTransactionsDeleteCommand(a),
		newTransactionsExportCommand(a),
	)
	return txnCmd
}

// filterFlags are the list filters shared by list and export.
type filterFlags struct {
	category string
	period   string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.category, "category", "", "only this category (id or name)")
	cmd.Flags().StringVar(&f.period, "period", "", "only this month (YYYY-MM)")
}

func (f *filterFlags) filter(a *app, cmd *cobra.Command) (store.Filter, error) {
	var out store.Filter
	if f.category != "" {
		c, err := a.resolveCategory(cmd, f.category)
		if err != nil {
			return out, err
		}
		out.CategoryID = c.ID
	}
	if f.period != "" {
		p, err := period.Parse(f.period)
		if err != nil {
			return out, err
		}
		out.Period = p
	}
	return out, nil
}

func newTransactionsListCommand(a *app) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.connect(cmd); err != nil {
				return err
			}
			f, err := ff.filter(a, cmd)
			if err != nil {
				return err
			}
			txns, err := a.store.Transactions(cmd.Context(), f)
			if err != nil {
				return err
			}
			idx, err := a.categories(cmd)
			if err != nil {
				return err
			}

			t := newTable("ID", "DATE", "TYPE", "VENDOR", "CATEGORY", "AMOUNT")
			for _, txn := range txns {
				name := txn.CategoryName
				if name == "" {
					name = idx.Name(txn.CategoryID)
				}
				t.add(txn.ID, txn.Date.UTC().Format(time.DateOnly), string(txn.Type), txn.Vendor, name, money.Format(txn.AmountCents))
			}
			return a.render(cmd.OutOrStdout(), txns, t)
		},
	}

	ff.register(cmd)

	return cmd
}

// transactionFlags are the editable fields of a transaction.
type transactionFlags struct {
	vendor      string
	description string
	category    string
	amount      string
	txnType     string
	date        string
}

func (tf *transactionFlags) register(cmd *cobra.Command, defaults bool) {
	date, txnType, cat := "", "", ""
	if defaults {
		date = time.Now().Format(time.DateOnly)
		txnType = string(model.TypeExpense)
		cat = category.UncategorizedName
	}
	cmd.Flags().StringVar(&tf.vendor, "vendor", "", "who the money went to or came from")
	cmd.Flags().StringVar(&tf.description, "description", "", "free-form note")
	cmd.Flags().StringVar(&tf.category, "category", cat, "category id or name")
	cmd.Flags().StringVar(&tf.amount, "amount", "", "amount, e.g. 12.34")
	cmd.Flags().StringVar(&tf.txnType, "type", txnType, "income or expense")
	cmd.Flags().StringVar(&tf.date, "date", date, "date, e.g. 2025-03-04")
}

// apply copies the flags set on cmd onto form. With all set, every flag is
// copied.
func (tf *transactionFlags) apply(a *app, cmd *cobra.Command, form *mutation.TransactionForm, all bool) error {
	set := func(name string) bool { return all || cmd.Flags().Changed(name) }
	if set("vendor") {
		form.Vendor = tf.vendor
	}
	if set("description") {
		form.Description = tf.description
	}
	if set("amount") {
		form.Amount = tf.amount
	}
	if set("type") {
		form.Type = model.TransactionType(tf.txnType)
	}
	if set("date") {
		form.Date = tf.date
	}
	if set("category") {
		c, err := a.resolveCategory(cmd, tf.category)
		if err != nil {
			return err
		}
		form.CategoryID = c.ID
	}
	return nil
}

func newTransactionsAddCommand(a *app) *cobra.Command {
	var tf transactionFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.connect(cmd); err != nil {
				return err
			}
			var form mutation.TransactionForm
			if err := tf.apply(a, cmd, &form, true); err != nil {
				return err
			}
			txn, err := a.dispatcher.CreateTransaction(cmd.Context(), form)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s: %s %s (%s)\n", txn.ID, txn.Vendor, money.Format(txn.AmountCents), txn.Type)
			return nil
		},
	}

	tf.register(cmd, true)

	return cmd
}

func newTransactionsEditCommand(a *app) *cobra.Command {
	var tf transactionFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd); err != nil {
				return err
			}
			txns, err := a.store.Transactions(cmd.Context(), store.Filter{})
			if err != nil {
				return err
			}
			i := slices.IndexFunc(txns, func(t model.Transaction) bool { return t.ID == args[0] })
			if i < 0 {
				return fmt.Errorf("transaction %s not found", args[0])
			}
			cur := txns[i]
			form := mutation.TransactionForm{
				Vendor:      cur.Vendor,
				Description: cur.Description,
				CategoryID:  cur.CategoryID,
				Amount:      money.String(cur.AmountCents),
				Type:        cur.Type,
				Date:        cur.Date.UTC().Format(time.RFC3339),
			}
			if err := tf.apply(a, cmd, &form, false); err != nil {
				return err
			}
			txn, err := a.dispatcher.UpdateTransaction(cmd.Context(), cur.ID, form)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s %s (%s)\n", txn.ID, txn.Vendor, money.Format(txn.AmountCents), txn.Type)
			return nil
		},
	}

	tf.register(cmd, false)

	return cmd
}

func newTransactionsDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd); err != nil {
				return err
			}
			if err := a.dispatcher.DeleteTransaction(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newTransactionsExportCommand(a *app) *cobra.Command {
	var ff filterFlags
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write transactions as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.connect(cmd); err != nil {
				return err
			}
			f, err := ff.filter(a, cmd)
			if err != nil {
				return err
			}
			txns, err := a.store.Transactions(cmd.Context(), f)
			if err != nil {
				return err
			}
			idx, err := a.categories(cmd)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return export.WriteTransactions(cmd.OutOrStdout(), txns, idx)
			}
			out, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			if err := export.WriteTransactions(out, txns, idx); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", output, err)
			}
			a.logger.Info("exported transactions", "count", len(txns), "file", output)
			return nil
		},
	}

	ff.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")

	return cmd
}
