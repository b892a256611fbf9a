package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ppiankov/popimport/internal/importer"
	"github.com/ppiankov/popimport/internal/pipeline"
)

var (
	lvFlags            importFlags
	classificationFile string
	populationFile     string
	encoding           string
)

// lvCmd represents the lv command
var lvCmd = &cobra.Command{
	Use:   "lv",
	Short: "Import Latvian populations from Central Statistical Bureau exports",
	Long: `lv reads the ATVK classification (tab separated) and a population
export ("name;count"), joins them by normalized name, finds each place's
Wikidata item by its ATVK code (P1115), and adds the population for the
requested year where it is missing.

Example:
  popimport lv --dry-run -v
  popimport lv --classification klasifikators_29893.txt --population 2017.csv
  popimport lv --encoding windows-1257`,
	Args: cobra.NoArgs,
	RunE: runLV,
}

func init() {
	rootCmd.AddCommand(lvCmd)
	addImportFlags(lvCmd, &lvFlags)

	lvCmd.Flags().StringVar(&classificationFile, "classification", "", "ATVK classification file (default from config)")
	lvCmd.Flags().StringVar(&populationFile, "population", "", "population export file (default from config)")
	lvCmd.Flags().StringVar(&encoding, "encoding", "", "text encoding of both files, e.g. windows-1257 (default from config)")
}

func runLV(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logFile := cfg.LV.LogFile
	lvFlags.apply(cmd.Flags(), cfg, &logFile)

	if cmd.Flags().Changed("classification") {
		cfg.LV.ClassificationFile = classificationFile
	}
	if cmd.Flags().Changed("population") {
		cfg.LV.PopulationFile = populationFile
	}
	if cmd.Flags().Changed("encoding") {
		cfg.LV.Encoding = encoding
	}

	return runImport(cfg, "lv", logFile, func(ctx context.Context, p *pipeline.Pipeline) (importer.Stats, error) {
		return p.RunLV(ctx)
	})
}
