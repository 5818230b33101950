package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/actionforge/actportal-cli/core"
)

var (
	flagCatalogCategories []string
	flagCatalogFeatured   bool
	flagCatalogSort       string
	flagCatalogDesc       bool
)

var cmdCatalog = &cobra.Command{
	Use:   "catalog [query]",
	Short: "List the actions available in the catalog.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			printUserError(err)
			return err
		}

		query := ""
		if len(args) > 0 {
			query = args[0]
		}

		actions := catalog.Filter(core.FilterOptions{
			Query:        query,
			Categories:   flagCatalogCategories,
			FeaturedOnly: flagCatalogFeatured,
			SortBy:       core.SortKey(flagCatalogSort),
			Descending:   flagCatalogDesc,
		})

		if len(actions) == 0 {
			fmt.Println("No actions match.")
			return nil
		}

		bold := color.New(color.Bold).SprintFunc()

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", bold("ID"), bold("NAME"), bold("REPOSITORY"), bold("CATEGORY"), bold("TAGS"))
		for _, action := range actions {
			featured := ""
			if action.Featured {
				featured = " *"
			}
			fmt.Fprintf(w, "%s\t%s%s\t%s\t%s\t%s\n",
				action.ID, action.Name, featured, action.Repository,
				action.Category, strings.Join(action.Tags, ","))
		}
		return w.Flush()
	},
}

func init() {
	cmdCatalog.Flags().StringSliceVar(&flagCatalogCategories, "category", nil, "Only show actions in these categories")
	cmdCatalog.Flags().BoolVar(&flagCatalogFeatured, "featured", false, "Only show featured actions")
	cmdCatalog.Flags().StringVar(&flagCatalogSort, "sort", "name", "Sort key: name, lastUpdated or category")
	cmdCatalog.Flags().BoolVar(&flagCatalogDesc, "desc", false, "Sort in descending order")

	cmdRoot.AddCommand(cmdCatalog)
}
