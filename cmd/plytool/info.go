package main

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type summary struct {
	Location    string           `json:"location" yaml:"location"`
	Format      string           `json:"format" yaml:"format"`
	Version     string           `json:"version" yaml:"version"`
	Compression string           `json:"compression" yaml:"compression"`
	Bytes       int64            `json:"bytes" yaml:"bytes"`
	Fingerprint string           `json:"fingerprint" yaml:"fingerprint"`
	Comments    []string         `json:"comments,omitempty" yaml:"comments,omitempty"`
	ObjInfo     []string         `json:"obj_info,omitempty" yaml:"obj_info,omitempty"`
	Elements    []elementSummary `json:"elements" yaml:"elements"`
}

type elementSummary struct {
	Name       string            `json:"name" yaml:"name"`
	Count      int               `json:"count" yaml:"count"`
	Properties []propertySummary `json:"properties" yaml:"properties"`
}

type propertySummary struct {
	Name      string `json:"name" yaml:"name"`
	Type      string `json:"type" yaml:"type"`
	CountType string `json:"count_type,omitempty" yaml:"count_type,omitempty"`
	Layout    string `json:"layout" yaml:"layout"`
	Shape     []int  `json:"shape" yaml:"shape,flow"`
}

func newInfoCmd(a *app) *cobra.Command {
	var output string
	var ragged bool

	cmd := &cobra.Command{
		Use:   "info <uri>",
		Short: "Print the schema of a PLY file",
		Long: `Print the format, comments, fingerprint and every element of a PLY file.
Elements and properties are listed by name with their types and column shapes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.load(cmd.Context(), args[0], ragged)
			if err != nil {
				return err
			}
			if output == "" {
				output = a.cfg.Output
			}

			return writeSummary(cmd.OutOrStdout(), summarize(doc), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format: text, json or yaml (default from configuration)")
	cmd.Flags().BoolVar(&ragged, "ragged", false, "Decode list properties of varying length")

	return cmd
}

func summarize(doc *document) summary {
	s := summary{
		Location:    doc.loc.String(),
		Format:      doc.schema.Format.String(),
		Version:     doc.schema.Version,
		Compression: doc.compression.String(),
		Bytes:       doc.size,
		Fingerprint: fmt.Sprintf("%016x", doc.schema.Fingerprint()),
		Comments:    doc.schema.Comments,
		ObjInfo:     doc.schema.ObjInfo,
	}

	for _, decl := range doc.schema.Elements {
		es := elementSummary{Name: decl.Name, Count: decl.Count}
		for _, p := range decl.Properties {
			ps := propertySummary{Name: p.Name, Type: p.Kind.String()}
			if p.IsList() {
				ps.CountType = p.CountKind.String()
			}
			if c, ok := doc.store.Column(decl.Name, p.Name); ok {
				ps.Layout = c.Layout().String()
				ps.Shape = c.Shape()
			}
			es.Properties = append(es.Properties, ps)
		}
		slices.SortFunc(es.Properties, func(x, y propertySummary) int { return cmp.Compare(x.Name, y.Name) })
		s.Elements = append(s.Elements, es)
	}
	slices.SortFunc(s.Elements, func(x, y elementSummary) int { return cmp.Compare(x.Name, y.Name) })

	return s
}

func writeSummary(w io.Writer, s summary, output string) error {
	switch output {
	case "json":
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)

		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}

		return enc.Close()
	case "text":
		return writeText(w, s)
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func writeText(w io.Writer, s summary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "location:    %s\n", s.Location)
	fmt.Fprintf(&b, "format:      %s %s\n", s.Format, s.Version)
	fmt.Fprintf(&b, "compression: %s\n", s.Compression)
	if s.Bytes >= 0 {
		fmt.Fprintf(&b, "bytes:       %d\n", s.Bytes)
	}
	fmt.Fprintf(&b, "fingerprint: %s\n", s.Fingerprint)
	for _, c := range s.Comments {
		fmt.Fprintf(&b, "comment:     %s\n", c)
	}
	for _, o := range s.ObjInfo {
		fmt.Fprintf(&b, "obj_info:    %s\n", o)
	}

	for _, e := range s.Elements {
		fmt.Fprintf(&b, "\nelement %s %d\n", e.Name, e.Count)
		for _, p := range e.Properties {
			typ := p.Type
			if p.CountType != "" {
				typ = "list " + p.CountType + " " + p.Type
			}
			fmt.Fprintf(&b, "  %-24s %-20s %-7s %v\n", p.Name, typ, p.Layout, p.Shape)
		}
	}

	_, err := io.WriteString(w, b.String())

	return err
}
