package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/classkit/extproxy/pkg/descriptor"
	"github.com/classkit/extproxy/pkg/proxy"
)

var (
	genDescriptor string
	genDelegate   string
	genContracts  []string
	genOut        string
	genName       string
	genOrdinal    int32
	genServiceID  int64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a proxy class file",
	Long: `Generate reads a YAML descriptor of the delegate hierarchy, resolves
each contract interface against the delegate and writes the proxy class
file.

The class name is taken from --name when given; otherwise --ordinal and
--service-id produce a ranked synthetic name in the delegate's package,
and without either a stable hash-derived name is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := descriptor.LoadFile(genDescriptor)
		if err != nil {
			return err
		}
		reg, err := doc.Build()
		if err != nil {
			return err
		}

		delegate := strings.ReplaceAll(genDelegate, ".", "/")
		className := strings.ReplaceAll(genName, ".", "/")
		if className == "" {
			if cmd.Flags().Changed("ordinal") || cmd.Flags().Changed("service-id") {
				pkg := ""
				if i := strings.LastIndexByte(delegate, '/'); i >= 0 {
					pkg = delegate[:i+1]
				}
				className = pkg + proxy.SimpleName(genOrdinal, genServiceID)
			} else {
				className = proxy.DefaultClassName(delegate, genContracts)
			}
		}

		factory := proxy.New(reg)
		data, err := factory.Generate(className, delegate, genContracts)
		if err != nil {
			return err
		}

		out := genOut
		if out == "" {
			simple := className
			if i := strings.LastIndexByte(simple, '/'); i >= 0 {
				simple = simple[i+1:]
			}
			out = simple + ".class"
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}

		logger.Info().
			Str("class", className).
			Str("delegate", delegate).
			Strs("contracts", genContracts).
			Int("bytes", len(data)).
			Str("out", out).
			Msg("proxy class generated")
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&genDescriptor, "descriptor", "d", "", "YAML descriptor file (required)")
	generateCmd.Flags().StringVar(&genDelegate, "delegate", "", "delegate class name (required)")
	generateCmd.Flags().StringSliceVarP(&genContracts, "contract", "c", nil, "contract interface, repeatable (required)")
	generateCmd.Flags().StringVarP(&genOut, "out", "o", "", "output file (default <SimpleName>.class)")
	generateCmd.Flags().StringVar(&genName, "name", "", "explicit proxy class name")
	generateCmd.Flags().Int32Var(&genOrdinal, "ordinal", 0, "service ranking for the synthetic name")
	generateCmd.Flags().Int64Var(&genServiceID, "service-id", 0, "service id for the synthetic name")

	_ = generateCmd.MarkFlagRequired("descriptor")
	_ = generateCmd.MarkFlagRequired("delegate")
	_ = generateCmd.MarkFlagRequired("contract")
}
