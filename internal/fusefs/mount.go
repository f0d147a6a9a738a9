package fusefs

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/jacobsa/fuse"

	"github.com/mvp-joe/queryfs/internal/queryfs"
)

// Mount mounts a facade at mountpoint and returns a join function that
// blocks until the filesystem is unmounted. SIGINT triggers an unmount, and
// the join returns once the kernel lets go.
func Mount(facade *queryfs.FSFacade, mountpoint string) (func(context.Context) error, error) {
	fs := New(facade)

	mfs, err := fuse.Mount(mountpoint, fs.Server(), &fuse.MountConfig{
		FSName:  "queryfs",
		Subtype: "queryfs",
	})
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", mountpoint, err)
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		<-ch
		fuse.Unmount(mountpoint)
	}()

	return mfs.Join, nil
}
