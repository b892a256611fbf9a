package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ppiankov/popimport/internal/importer"
	"github.com/ppiankov/popimport/internal/pipeline"
)

var ltFlags importFlags

// ltCmd represents the lt command
var ltCmd = &cobra.Command{
	Use:   "lt",
	Short: "Import Lithuanian city populations from Statistics Lithuania",
	Long: `lt downloads the M3010210 code list and observations from the
Statistics Lithuania SDMX service, matches each city to the Wikidata item
linked to its lt.wikipedia.org article, and adds the population for the
requested year where it is missing.

Example:
  popimport lt --dry-run -v
  popimport lt --year 2017 --log import-lt.log`,
	Args: cobra.NoArgs,
	RunE: runLT,
}

func init() {
	rootCmd.AddCommand(ltCmd)
	addImportFlags(ltCmd, &ltFlags)
}

// addImportFlags registers the flags shared by lt and lv
func addImportFlags(cmd *cobra.Command, f *importFlags) {
	cmd.Flags().IntVar(&f.year, "year", 2017, "statistics year to import")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "decide what to write without editing Wikidata")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable feed cache (force fresh fetch)")
	cmd.Flags().StringVar(&f.logFile, "log", "", "log file (default from config)")
	cmd.Flags().StringVar(&f.accessDate, "access-date", "", "retrieved date for references, YYYY-MM-DD (default: today)")
}

func runLT(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logFile := cfg.LT.LogFile
	ltFlags.apply(cmd.Flags(), cfg, &logFile)

	return runImport(cfg, "lt", logFile, func(ctx context.Context, p *pipeline.Pipeline) (importer.Stats, error) {
		return p.RunLT(ctx)
	})
}
