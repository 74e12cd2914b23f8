package present

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/deepteams/webp"
	"github.com/deepteams/webp/animation"
	"github.com/sobelfarm/sobelfarm/pkg/config"
	"github.com/sobelfarm/sobelfarm/pkg/frame"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
	oss "github.com/sobelfarm/sobelfarm/pkg/os"
)

// WebpFile collects frames into an animated WebP file.
// Frames are queued and encoded on a separate goroutine.
type WebpFile struct {
	*Keys

	path  string
	opts  animation.EncodeOptions
	delay time.Duration
	lock  *oss.Flock
	file  *os.File
	enc   *animation.AnimEncoder

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []frame.Frame
	closed bool
	done   chan error

	meta Manifest
	log  *logger.Logger
}

// NewWebpFile creates the file at path, a .webp extension is added if missing.
func NewWebpFile(path string, conf config.Presenter, keys *Keys, log *logger.Logger) (*WebpFile, error) {
	if filepath.Ext(path) != ".webp" {
		path += ".webp"
	}
	if err := oss.CheckCreateDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	lock, err := oss.NewFileLock(path + ".lock")
	if err != nil {
		return nil, err
	}
	if err = lock.TryLock(); err != nil {
		return nil, fmt.Errorf("output %v: %w", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	if keys == nil {
		keys = NewKeys()
	}
	w := &WebpFile{
		Keys:  keys,
		path:  path,
		opts:  animation.EncodeOptions{Quality: int(conf.Webp.Quality), Lossless: conf.Webp.Lossless},
		delay: conf.Webp.FrameTime,
		lock:  lock,
		file:  file,
		done:  make(chan error, 1),
		meta:  newManifest(KindWebp, filepath.Base(path)),
		log:   log,
	}
	if w.delay <= 0 {
		w.delay = 40 * time.Millisecond
	}
	w.cond = sync.NewCond(&w.mu)
	go w.encode()
	return w, nil
}

func (w *WebpFile) Show(f frame.Frame) {
	w.mu.Lock()
	if !w.closed {
		w.queue = append(w.queue, f)
	}
	w.mu.Unlock()
	w.cond.Signal()
}

func (w *WebpFile) next() (frame.Frame, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.queue) == 0 && !w.closed {
		w.cond.Wait()
	}
	if len(w.queue) == 0 {
		return frame.Frame{}, false
	}
	f := w.queue[0]
	w.queue[0] = frame.Frame{}
	w.queue = w.queue[1:]
	return f, true
}

func (w *WebpFile) encode() {
	var err error
	for {
		f, ok := w.next()
		if !ok {
			break
		}
		if err != nil {
			continue
		}
		if w.enc == nil {
			w.enc = animation.NewEncoder(w.file, f.Width, f.Height, &w.opts)
		}
		var img image.Image = toImage(f)
		if err = w.enc.AddFrame(img, w.delay); err != nil {
			w.log.Error().Err(err).Msg("webp frame")
			continue
		}
		w.meta.seen(f.Width, f.Height)
	}
	if w.enc != nil && err == nil {
		err = w.enc.Close()
	}
	w.done <- err
}

// Close encodes what is queued and finishes the file.
func (w *WebpFile) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.cond.Broadcast()

	err := <-w.done
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	if merr := w.meta.save(filepath.Dir(w.path)); err == nil {
		err = merr
	}
	if uerr := w.lock.Unlock(); err == nil {
		err = uerr
	}
	w.log.Info().Msgf("%d frames saved into %v", w.meta.Frames, w.path)
	return err
}
