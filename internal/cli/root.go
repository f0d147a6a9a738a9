// Package cli implements the queryfs command-line interface.
package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mvp-joe/queryfs/internal/config"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "queryfs",
	Short: "QueryFS - a content-addressed user-space filesystem",
	Long: `QueryFS exposes a conventional hierarchical namespace backed by a
content-addressed blob store. File metadata lives in an embedded relational
store; contents are immutable blobs named by the SHA-256 of their bytes,
deduplicated across the whole namespace and versioned per file.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <repository>/.queryfs/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// loadConfig reads the configuration scoped to a repository root, honoring
// an explicit --config file when one was given.
func loadConfig(repoRoot string) (*config.Config, error) {
	return config.NewLoaderWithFile(repoRoot, cfgFile).Load()
}
