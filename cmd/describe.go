package cmd

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gofmu/gofmu/fmi"
)

var (
	describeModel     string // Built-in model name
	describeFile      string // YAML or HCL model file
	describeFMI       string // FMI version override
	describeOut       string // Output path, stdout when empty
	describeToken     string // Explicit guid / instantiationToken
	describeTimestamp bool   // Write generationDateAndTime
)

// describeCmd writes the modelDescription.xml of a model
var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Write the model description (modelDescription.xml) of a model",
	Run: func(cmd *cobra.Command, args []string) {
		src, err := resolveSource(describeModel, describeFile, describeFMI)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		opts := fmi.DescriptorOptions{Token: describeToken}
		if describeTimestamp {
			opts.GeneratedAt = time.Now()
		}

		w := io.Writer(os.Stdout)
		if describeOut != "" {
			f, err := os.Create(describeOut)
			if err != nil {
				logrus.Fatalf("creating %s: %v", describeOut, err)
			}
			defer f.Close()
			w = f
		}
		if err := describe(w, src, opts); err != nil {
			logrus.Fatalf("describing %s: %v", src.name, err)
		}
		if describeOut != "" {
			logrus.Infof("wrote FMI %s description of %s to %s", src.version, src.name, describeOut)
		}
	},
}

func describe(w io.Writer, src *modelSource, opts fmi.DescriptorOptions) error {
	inst, err := src.instantiate(src.name)
	if err != nil {
		return err
	}
	out, err := inst.Descriptor(opts)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func init() {
	describeCmd.Flags().StringVar(&describeModel, "model", "", "Built-in model name (see `gofmu models`)")
	describeCmd.Flags().StringVar(&describeFile, "file", "", "Model file (.yaml, or .hcl for HCL)")
	describeCmd.Flags().StringVar(&describeFMI, "fmi", "", "FMI version (2.0 or 3.0); defaults to the model's")
	describeCmd.Flags().StringVar(&describeOut, "out", "", "Output path (default stdout)")
	describeCmd.Flags().StringVar(&describeToken, "token", "", "guid / instantiationToken (default derived from the content)")
	describeCmd.Flags().BoolVar(&describeTimestamp, "timestamp", false, "Write generationDateAndTime")
}
