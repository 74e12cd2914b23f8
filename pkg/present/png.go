package present

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/sobelfarm/sobelfarm/pkg/frame"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
	oss "github.com/sobelfarm/sobelfarm/pkg/os"
)

const pngFile = "f%07d.png"

type pool struct{ sync.Pool }

func pngBuf() *pool                      { return &pool{sync.Pool{New: func() any { return &png.EncoderBuffer{} }}} }
func (p *pool) Get() *png.EncoderBuffer  { return p.Pool.Get().(*png.EncoderBuffer) }
func (p *pool) Put(b *png.EncoderBuffer) { p.Pool.Put(b) }

// PngDir saves every frame as a numbered PNG file.
// Files are written in the background, Close waits for them.
type PngDir struct {
	*Keys

	dir   string
	e     *png.Encoder
	label bool
	lock  *oss.Flock
	n     int
	wg    sync.WaitGroup
	meta  Manifest
	log   *logger.Logger
}

// NewPngDir takes the output dir, failing if another run writes there.
func NewPngDir(dir string, label bool, keys *Keys, log *logger.Logger) (*PngDir, error) {
	if err := oss.CheckCreateDir(dir); err != nil {
		return nil, err
	}
	lock, err := oss.NewFileLock(filepath.Join(dir, ".lock"))
	if err != nil {
		return nil, err
	}
	if err = lock.TryLock(); err != nil {
		return nil, fmt.Errorf("output dir %v: %w", dir, err)
	}
	if keys == nil {
		keys = NewKeys()
	}
	return &PngDir{
		Keys:  keys,
		dir:   dir,
		e:     &png.Encoder{CompressionLevel: png.BestSpeed, BufferPool: pngBuf()},
		label: label,
		lock:  lock,
		meta:  newManifest(KindPng, pngFile),
		log:   log,
	}, nil
}

func (p *PngDir) Show(f frame.Frame) {
	name := fmt.Sprintf(pngFile, p.n)
	var img image.Image = toImage(f)
	if p.label {
		c := clone(img)
		AddLabel(c, 2, 2, fmt.Sprintf("#%d", p.n))
		img = c
	}
	p.n++
	p.meta.seen(f.Width, f.Height)
	p.wg.Add(1)
	go p.saveImage(name, img)
}

func (p *PngDir) saveImage(fileName string, img image.Image) {
	defer p.wg.Done()
	var buf bytes.Buffer
	buf.Grow(img.Bounds().Dx() * img.Bounds().Dy())
	if err := p.e.Encode(&buf, img); err != nil {
		p.log.Error().Err(err).Msgf("png %v", fileName)
		return
	}
	if err := os.WriteFile(filepath.Join(p.dir, fileName), buf.Bytes(), 0644); err != nil {
		p.log.Error().Err(err).Msgf("png %v", fileName)
	}
}

func (p *PngDir) Close() error {
	p.wg.Wait()
	err := p.meta.save(p.dir)
	if uerr := p.lock.Unlock(); err == nil {
		err = uerr
	}
	p.log.Info().Msgf("%d frames saved into %v", p.n, p.dir)
	return err
}
