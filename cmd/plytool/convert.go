package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arloliu/plycol/format"
)

func newConvertCmd(a *app) *cobra.Command {
	var formatName, compression string
	var ragged bool

	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Re-encode a PLY file",
		Long: `Decode a PLY file and write it again in another body format or container.

Without --compression the container follows the extension of <out>
(.zst, .sz, .lz4, .gz), unless the configuration names one.

Example:
  plytool convert scan.ply s3://scans/scan.ply.zst --format binary_little_endian`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if formatName == "" {
				formatName = a.cfg.Encode.Format
			}
			f, err := format.ParseFormat(formatName)
			if err != nil {
				return err
			}

			if compression == "" {
				compression = a.cfg.Encode.Compression
			}
			ct, err := format.ParseCompression(compression)
			if err != nil {
				return err
			}

			doc, err := a.load(cmd.Context(), args[0], ragged)
			if err != nil {
				return err
			}
			if err := a.save(cmd.Context(), args[1], doc.schema, doc.store, f, ct, compression != ""); err != nil {
				return err
			}

			a.logger.Info("converted",
				zap.String("from", args[0]),
				zap.String("to", args[1]),
				zap.Stringer("format", f),
			)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s)\n", args[0], args[1], f)

			return err
		},
	}

	cmd.Flags().StringVarP(&formatName, "format", "f", "", "Body format: ascii, binary_little_endian or binary_big_endian")
	cmd.Flags().StringVarP(&compression, "compression", "c", "", "Container: none, zstd, s2, lz4 or gzip")
	cmd.Flags().BoolVar(&ragged, "ragged", false, "Decode list properties of varying length")

	return cmd
}
