package cli

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/queryfs/internal/hashing"
	"github.com/mvp-joe/queryfs/internal/metadata"
	"github.com/mvp-joe/queryfs/internal/repository"
)

var fsckFix bool

var fsckCmd = &cobra.Command{
	Use:   "fsck <repository>",
	Short: "Verify repository invariants",
	Long: `Fsck checks the store invariants: every filenode's blob exists, every
blob is referenced by some filenode, file rows point at live filenodes,
directory rows point at live parents, and names are unique among siblings.
With --fix, unreferenced blobs are deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := repository.New(args[0])
		if err != nil {
			return err
		}
		problems, err := runFsck(repo, fsckFix)
		if err != nil {
			return err
		}
		if problems > 0 {
			return fmt.Errorf("fsck: %d problem(s) found", problems)
		}
		fmt.Println("fsck: clean")
		return nil
	},
}

func init() {
	fsckCmd.Flags().BoolVar(&fsckFix, "fix", false, "delete unreferenced blobs")
	rootCmd.AddCommand(fsckCmd)
}

func runFsck(repo *repository.Repository, fix bool) (int, error) {
	store := repo.Store()
	problems := 0

	nodes, err := metadata.FetchAll(store.Query(metadata.Filenodes).Select(), metadata.ScanFilenode)
	if err != nil {
		return 0, err
	}
	files, err := metadata.FetchAll(store.Query(metadata.Files).Select(), metadata.ScanFile)
	if err != nil {
		return 0, err
	}
	dirs, err := metadata.FetchAll(store.Query(metadata.Directories).Select(), metadata.ScanDirectory)
	if err != nil {
		return 0, err
	}

	nodeByID := make(map[int64]*metadata.Filenode, len(nodes))
	referenced := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		nodeByID[n.ID] = n
		referenced[n.Hash] = true
	}
	dirByID := make(map[int64]*metadata.Directory, len(dirs))
	for _, d := range dirs {
		dirByID[d.ID] = d
	}

	// Every non-empty filenode must have its blob on disk.
	bar := progressbar.Default(int64(len(nodes)), "filenodes")
	for _, n := range nodes {
		if n.Hash != hashing.EmptyHash() {
			if _, err := os.Stat(repo.BlobPath(n.Hash)); err != nil {
				fmt.Printf("filenode %d: missing blob %s\n", n.ID, n.Hash)
				problems++
			}
		}
		if n.PreviousID.Valid {
			if _, ok := nodeByID[n.PreviousID.Int64]; !ok {
				fmt.Printf("filenode %d: dangling previous filenode %d\n", n.ID, n.PreviousID.Int64)
				problems++
			}
		}
		bar.Add(1)
	}

	// Every blob must be referenced by some filenode.
	entries, err := os.ReadDir(repo.Blobs())
	if err != nil {
		return 0, fmt.Errorf("read blobs: %w", err)
	}
	bar = progressbar.Default(int64(len(entries)), "blobs")
	for _, e := range entries {
		name := e.Name()
		if len(name) != hashing.HexLength || !referenced[name] {
			fmt.Printf("blob %s: unreferenced\n", name)
			problems++
			if fix {
				if err := os.Remove(filepath.Join(repo.Blobs(), name)); err != nil {
					return 0, fmt.Errorf("remove orphan blob %s: %w", name, err)
				}
				fmt.Printf("blob %s: removed\n", name)
			}
		}
		bar.Add(1)
	}

	// Referential integrity and sibling uniqueness.
	type scope struct {
		parent sql.NullInt64
		name   string
	}
	seen := make(map[scope]bool, len(files)+len(dirs))

	bar = progressbar.Default(int64(len(files)+len(dirs)), "rows")
	for _, f := range files {
		if _, ok := nodeByID[f.FilenodeID]; !ok {
			fmt.Printf("file %d (%s): dangling filenode %d\n", f.ID, f.Name, f.FilenodeID)
			problems++
		}
		key := scope{parent: f.DirectoryID, name: f.Name}
		if seen[key] {
			fmt.Printf("file %d (%s): duplicate name in scope\n", f.ID, f.Name)
			problems++
		}
		seen[key] = true
		bar.Add(1)
	}
	for _, d := range dirs {
		if d.ParentID.Valid {
			if _, ok := dirByID[d.ParentID.Int64]; !ok {
				fmt.Printf("directory %d (%s): dangling parent %d\n", d.ID, d.Name, d.ParentID.Int64)
				problems++
			}
		}
		key := scope{parent: d.ParentID, name: d.Name}
		if seen[key] {
			fmt.Printf("directory %d (%s): duplicate name in scope\n", d.ID, d.Name)
			problems++
		}
		seen[key] = true
		bar.Add(1)
	}

	return problems, nil
}
