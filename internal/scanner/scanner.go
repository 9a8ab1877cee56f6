// Package scanner walks a directory tree and hands the files it finds to a
// pool of workers.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/tliron/commonlog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

var log = commonlog.GetLogger("semtok.scanner")

// Scan walks the subtree under root on fs. Files and directories whose name
// begins with "." are skipped, except root itself. Each remaining file that
// keep accepts is read and passed to callback, from up to workers goroutines
// at once. Scan returns once every callback has completed, with the first
// error a callback returned.
func Scan(
	ctx context.Context,
	fs afero.Fs,
	root string,
	workers int,
	keep func(path string) bool,
	callback func(ctx context.Context, path string, data []byte) error,
) error {
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	paths := make(chan string, 100)

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for path := range paths {
				data, err := afero.ReadFile(fs, path)
				if err != nil {
					log.Warningf("read error: %s: %s", path, err.Error())
					continue
				}
				if err := callback(gctx, path, data); err != nil {
					return errors.Errorf("%s: %w", path, err)
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(paths)
		log.Debugf("walking %q", root)
		return afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				if path == root {
					return err
				}
				log.Warningf("walk error: %s", err.Error())
				return nil
			}
			if path != root && strings.HasPrefix(filepath.Base(path), ".") {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if info.IsDir() || !keep(path) {
				return nil
			}

			select {
			case paths <- path:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	return g.Wait()
}
