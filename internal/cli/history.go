package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/queryfs/internal/fserr"
	"github.com/mvp-joe/queryfs/internal/repository"
)

var historyCmd = &cobra.Command{
	Use:   "history <repository> <path>",
	Short: "Show the version chain of a file",
	Long: `History walks a file's filenode chain most-recent-first and prints
one line per version: filenode id, content hash, size, and modification
time. The head is the file's current content; older entries are snapshots
created by commit.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := repository.New(args[0])
		if err != nil {
			return err
		}

		entity, err := repo.ResolveEntity(args[1])
		if err != nil {
			return err
		}
		file, ok := entity.(repository.ResolvedFile)
		if !ok {
			return fmt.Errorf("%w: %s", fserr.ErrNotFound, args[1])
		}

		node, err := file.File.Filenode(repo.Store())
		if err != nil {
			return err
		}
		for node != nil {
			mtime := time.Unix(0, int64(node.Mtime*1e9)).Format(time.RFC3339)
			fmt.Printf("%d\t%s\t%d\t%s\n", node.ID, node.Hash, node.Size, mtime)
			node, err = node.Previous(repo.Store())
			if err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
