package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gofmu/gofmu/models"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the built-in models",
	Run: func(cmd *cobra.Command, args []string) {
		if err := listModels(os.Stdout); err != nil {
			logrus.Fatalf("listing models: %v", err)
		}
	},
}

func listModels(w io.Writer) error {
	for _, name := range models.Names() {
		e, err := models.Lookup(name)
		if err != nil {
			return err
		}
		versions := make([]string, len(e.Versions))
		for i, v := range e.Versions {
			versions[i] = v.String()
		}
		if _, err := fmt.Fprintf(w, "%-16s FMI %-9s %s\n", e.Name, strings.Join(versions, ","), e.Description); err != nil {
			return err
		}
	}
	return nil
}
