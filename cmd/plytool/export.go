package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arloliu/plycol/arrowio"
	"github.com/arloliu/plycol/internal/storage"
)

func newExportArrowCmd(a *app) *cobra.Command {
	var element string
	var ragged bool

	cmd := &cobra.Command{
		Use:   "export-arrow <in> <out.arrow>",
		Short: "Write one element as an Arrow IPC file",
		Long: `Write the columns of one element as a single Arrow record batch.
Scalar properties become primitive arrays, fixed-width lists fixed_size_list
arrays and ragged lists large_list arrays.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.load(cmd.Context(), args[0], ragged)
			if err != nil {
				return err
			}
			el, ok := doc.store.Element(element)
			if !ok {
				return fmt.Errorf("%s has no element %q", args[0], element)
			}

			loc, err := storage.ParseURI(args[1])
			if err != nil {
				return err
			}
			err = a.storage.Put(cmd.Context(), loc, func(w io.Writer) error {
				return arrowio.WriteFile(w, el)
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows, %d columns -> %s\n", element, el.Count(), el.Len(), loc)

			return err
		},
	}

	cmd.Flags().StringVarP(&element, "element", "e", arrowio.DefaultElement, "Element to export")
	cmd.Flags().BoolVar(&ragged, "ragged", false, "Decode list properties of varying length")

	return cmd
}
