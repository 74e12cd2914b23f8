package source

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"
	"github.com/sobelfarm/sobelfarm/pkg/frame"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
)

// Dir plays the images of a directory in file name order.
// In follow mode it then waits for new files to appear until closed.
type Dir struct {
	path    string
	queue   []string
	seen    map[string]struct{}
	watcher *fsnotify.Watcher
	log     *logger.Logger
}

func NewDir(path string, follow bool, log *logger.Logger) (*Dir, error) {
	d := &Dir{path: path, seen: map[string]struct{}{}, log: log}
	if follow {
		// watch first, so files created during the scan are not lost
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, err
		}
		if err = watcher.Add(path); err != nil {
			_ = watcher.Close()
			return nil, err
		}
		d.watcher = watcher
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() && isExtAllowed(e.Name()) {
			d.queue = append(d.queue, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(d.queue)
	return d, nil
}

func (d *Dir) NextFrame() (frame.Frame, error) {
	for {
		for len(d.queue) > 0 {
			name := d.queue[0]
			d.queue = d.queue[1:]
			if _, ok := d.seen[name]; ok {
				continue
			}
			f, err := decodeFile(name)
			if err != nil {
				// a file still being written gets another try on its next write event
				d.log.Warn().Err(err).Msgf("skipped %v", name)
				continue
			}
			d.seen[name] = struct{}{}
			return f, nil
		}
		if d.watcher == nil {
			return frame.Frame{}, io.EOF
		}
		if err := d.wait(); err != nil {
			return frame.Frame{}, err
		}
	}
}

// wait blocks until some new image shows up.
func (d *Dir) wait() error {
	for {
		select {
		case event, ok := <-d.watcher.Events:
			if !ok {
				return io.EOF
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isExtAllowed(event.Name) {
				continue
			}
			if _, ok := d.seen[event.Name]; ok {
				continue
			}
			d.queue = append(d.queue, event.Name)
			return nil
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return io.EOF
			}
			d.log.Warn().Err(err).Msg("dir watch")
		}
	}
}

func (d *Dir) Close() error {
	if d.watcher != nil {
		return d.watcher.Close()
	}
	return nil
}
