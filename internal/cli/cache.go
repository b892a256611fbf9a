package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/popimport/internal/cache"
	"github.com/ppiankov/popimport/internal/model"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the feed document cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached feed document",
	Long: `Remove the on-disk feed cache (cache.dir) so the next lt run fetches
the Statistics Lithuania documents again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := clearCache(cfg); err != nil {
			return err
		}
		fmt.Printf("✓ Cleared feed cache: %s\n", cfg.Cache.Dir)
		return nil
	},
}

func clearCache(cfg *model.Config) error {
	store := cache.NewLayered(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	if err := store.Clear(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
