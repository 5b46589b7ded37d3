package cli

import (
	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		categories, err := service.ListCategories(cmd.Context())
		if err != nil {
			return err
		}
		if len(categories) == 0 {
			cmd.Println("No categories.")
			return nil
		}
		for _, c := range categories {
			cmd.Println(c)
		}
		return nil
	},
}

var documentsCmd = &cobra.Command{
	Use:   "documents [category]",
	Short: "List the documents of a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := service.ListDocuments(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, d := range docs {
			state := "indexed"
			switch {
			case !d.Indexed:
				state = "not indexed"
			case !d.HasPdf:
				state = "indexed, upload missing"
			}
			cmd.Printf("%s\t%s\n", d.Filename, state)
		}
		return nil
	},
}

var deleteCategoryCmd = &cobra.Command{
	Use:   "delete-category [category]",
	Short: "Delete a category with its uploads, indexes and history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := service.DeleteCategory(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Printf("deleted category %s\n", args[0])
		return nil
	},
}

var deleteDocumentCmd = &cobra.Command{
	Use:   "delete-document [category] [filename]",
	Short: "Delete one document and its index",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := service.DeleteDocument(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		cmd.Printf("pdf deleted: %t, index deleted: %t\n", res.PdfDeleted, res.IndexDeleted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd, documentsCmd, deleteCategoryCmd, deleteDocumentCmd)
}
