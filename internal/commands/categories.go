package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/budgie-app/budgie/internal/category"
	"github.com/budgie-app/budgie/internal/mutation"
)

func newCategoriesCommand(a *app) *cobra.Command {
	catCmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "Manage categories",
	}
	catCmd.AddCommand(
		newCategoriesListCommand(a),
		newCategoriesAddCommand(a),
		newCategoriesRenameCommand(a),
		newCategoriesDeleteCommand(a),
		newCategoriesSeedCommand(a),
	)
	return catCmd
}

func newCategoriesListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.connect(cmd); err != nil {
				return err
			}
			cats, err := a.store.Categories(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable("ID", "NAME")
			for _, c := range cats {
				t.add(c.ID, c.Name)
			}
			return a.render(cmd.OutOrStdout(), cats, t)
		},
	}
}

func newCategoriesAddCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd); err != nil {
				return err
			}
			c, err := a.dispatcher.CreateCategory(cmd.Context(), mutation.CategoryForm{Name: args[0]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s: %s\n", c.ID, c.Name)
			return nil
		},
	}
}

func newCategoriesRenameCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id|name> <new-name>",
		Short: "Rename a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd); err != nil {
				return err
			}
			cur, err := a.resolveCategory(cmd, args[0])
			if err != nil {
				return err
			}
			c, err := a.dispatcher.UpdateCategory(cmd.Context(), cur.ID, mutation.CategoryForm{Name: args[1]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s: %s -> %s\n", c.ID, cur.Name, c.Name)
			return nil
		},
	}
}

func newCategoriesDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd); err != nil {
				return err
			}
			cur, err := a.resolveCategory(cmd, args[0])
			if err != nil {
				return err
			}
			if err := a.dispatcher.DeleteCategory(cmd.Context(), cur.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s: %s\n", cur.ID, cur.Name)
			return nil
		},
	}
}

func newCategoriesSeedCommand(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the starter categories that do not exist yet",
		Long: "Creates the built-in starter set, or the names listed in a one-column CSV with a\n" +
			"\"name\" header. Names that already exist are left alone.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names := category.DefaultNames()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("opening %s: %w", file, err)
				}
				defer f.Close()
				if names, err = category.ReadNames(f); err != nil {
					return err
				}
			}

			if err := a.connect(cmd); err != nil {
				return err
			}
			idx, err := a.categories(cmd)
			if err != nil {
				return err
			}
			missing := idx.Missing(names)
			for _, name := range missing {
				c, err := a.dispatcher.CreateCategory(cmd.Context(), mutation.CategoryForm{Name: name})
				if err != nil {
					return fmt.Errorf("creating %q: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s: %s\n", c.ID, c.Name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d created, %d already present\n", len(missing), len(names)-len(missing))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV of category names")

	return cmd
}
