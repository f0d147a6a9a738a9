package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/queryfs/internal/fusefs"
	"github.com/mvp-joe/queryfs/internal/queryfs"
	"github.com/mvp-joe/queryfs/internal/repository"
)

var mountCmd = &cobra.Command{
	Use:   "mount <repository> <mountpoint>",
	Short: "Mount a repository as a filesystem",
	Long: `Mount opens the repository and serves it through FUSE at the given
mountpoint. The command runs in the foreground; interrupt it (or unmount the
mountpoint) to stop serving.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoRoot, mountpoint := args[0], args[1]

		cfg, err := loadConfig(repoRoot)
		if err != nil {
			return err
		}

		repo, err := repository.New(repoRoot)
		if err != nil {
			return err
		}
		facade, err := queryfs.NewWithRepository(repo, cfg.Cache.Capacity)
		if err != nil {
			return err
		}
		defer facade.Close()

		join, err := fusefs.Mount(facade, mountpoint)
		if err != nil {
			return err
		}
		return join(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(mountCmd)
}
