package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/crmimport/internal/auth"
	"github.com/JonMunkholm/crmimport/internal/catalog"
	_ "github.com/JonMunkholm/crmimport/internal/catalog/objects"
	"github.com/JonMunkholm/crmimport/internal/importer"
)

func newFieldsCmd() *cobra.Command {
	var (
		fieldsFile string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "fields <kind>",
		Short: "List the fields CSV columns can be mapped to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := catalog.New()
			if fieldsFile != "" {
				if err := cat.LoadFile(fieldsFile); err != nil {
					return err
				}
			}

			// Mapping fields needs no database, so the models are left out.
			o, err := importer.New(importer.DefaultHandlers(importer.Deps{
				Permissions: auth.Gate{},
				Catalog:     cat,
			}))
			if err != nil {
				return err
			}

			ctx := auth.WithPrincipal(cmd.Context(), auth.System())
			ev, err := o.Initialize(ctx, importer.ParseKind(args[0]))
			if err != nil {
				return err
			}
			mapping, err := o.MapFields(ctx, ev)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(mapping)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, section := range mapping {
				fmt.Fprintf(tw, "%s\n", section.Name)
				for _, f := range section.Fields {
					fmt.Fprintf(tw, "  %s\t%s\n", f.Alias, f.Label)
				}
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&fieldsFile, "fields-file", os.Getenv("CATALOG_FIELDS_FILE"), "YAML file of custom field definitions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the mapping sections as JSON")
	return cmd
}
