package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gofmu/gofmu/fmi"
)

var validateFile string // modelDescription.xml to check

// validateCmd reads a model description back and prints its variables
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse a model description and print its variables",
	Run: func(cmd *cobra.Command, args []string) {
		if validateFile == "" {
			logrus.Fatalf("--file is required")
		}
		f, err := os.Open(validateFile)
		if err != nil {
			logrus.Fatalf("opening %s: %v", validateFile, err)
		}
		defer f.Close()
		if _, err := validateDescriptor(f, os.Stdout); err != nil {
			logrus.Fatalf("%s: %v", validateFile, err)
		}
	},
}

func validateDescriptor(r io.Reader, w io.Writer) (*fmi.Description, error) {
	desc, err := fmi.ParseDescriptor(r)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "FMI %s model %q, token %s, %d variables\n", desc.FMIVersion, desc.ModelName, desc.Token, len(desc.Variables))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REF\tNAME\tTYPE\tCAUSALITY\tVARIABILITY\tINITIAL\tSTART")
	for _, v := range desc.Variables {
		start := "-"
		if v.Start != nil {
			start = *v.Start
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", v.Reference, v.Name, v.Element, orDash(v.Causality), orDash(v.Variability), orDash(v.Initial), start)
	}
	if err := tw.Flush(); err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "outputs: %d, derivatives: %d, initial unknowns: %d\n", len(desc.Outputs), len(desc.Derivatives), len(desc.InitialUnknowns))
	return desc, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	validateCmd.Flags().StringVar(&validateFile, "file", "", "Path to modelDescription.xml")
}
