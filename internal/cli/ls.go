package cli

import (
	"fmt"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/queryfs/internal/ops"
	"github.com/mvp-joe/queryfs/internal/repository"
)

var lsGlob string

var lsCmd = &cobra.Command{
	Use:   "ls <repository> [path]",
	Short: "List a directory from the metadata store",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := repository.New(args[0])
		if err != nil {
			return err
		}
		path := "/"
		if len(args) == 2 {
			path = args[1]
		}

		names, err := ops.ReadDir(repo, path)
		if err != nil {
			return err
		}

		var matcher glob.Glob
		if lsGlob != "" {
			matcher, err = glob.Compile(lsGlob)
			if err != nil {
				return fmt.Errorf("bad glob %q: %w", lsGlob, err)
			}
		}

		for _, name := range names {
			if name == "." || name == ".." {
				continue
			}
			if matcher != nil && !matcher.Match(name) {
				continue
			}
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	lsCmd.Flags().StringVar(&lsGlob, "glob", "", "only list names matching this pattern")
	rootCmd.AddCommand(lsCmd)
}
