package cli

import (
	"github.com/spf13/cobra"

	"github.com/mvp-joe/queryfs/internal/repository"
)

var commitCmd = &cobra.Command{
	Use:   "commit <repository> <path>",
	Short: "Snapshot the current content of a file",
	Long: `Commit advances a file's version chain: the current filenode becomes
immutable history and a copy of it becomes the new head. Later writes update
the head in place; rollback retracts it.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := repository.New(args[0])
		if err != nil {
			return err
		}
		return repo.Commit(args[1])
	},
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback <repository> <path>",
	Short: "Retract the head version of a file",
	Long: `Rollback re-points a file at its previous filenode and unlinks the
abandoned head. History beyond the head is preserved; the head's blob is
collected if nothing else references it.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := repository.New(args[0])
		if err != nil {
			return err
		}
		return repo.Rollback(args[1])
	},
}

func init() {
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(rollbackCmd)
}
