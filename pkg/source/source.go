// Package source captures frames from files.
package source

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/sobelfarm/sobelfarm/pkg/config"
	"github.com/sobelfarm/sobelfarm/pkg/frame"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
	oss "github.com/sobelfarm/sobelfarm/pkg/os"
)

// VideoSource yields frames one by one.
// NextFrame returns io.EOF when there are no more frames.
type VideoSource interface {
	NextFrame() (frame.Frame, error)
	io.Closer
}

var ErrUnsupported = errors.New("unsupported video source")

// PatternScheme opens the built-in test pattern instead of a file.
const PatternScheme = "pattern:"

var supported = map[string]struct{}{".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {}}

func isExtAllowed(path string) bool {
	_, ok := supported[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Open picks a source for the path: an animated or still WebP file, an
// image file, a directory of images, a http(s) URL of any of the files
// or the test pattern.
func Open(path string, conf config.Source, log *logger.Logger) (VideoSource, error) {
	log = log.Component("source")

	var src VideoSource
	var err error
	switch {
	case strings.HasPrefix(path, PatternScheme):
		p := conf.Pattern
		src = NewPattern(p.Width, p.Height, p.Frames)
	case isRemote(path):
		var local string
		if local, err = Fetch(path, conf.Cache, log); err != nil {
			return nil, err
		}
		return Open(local, conf, log)
	case oss.IsDir(path):
		src, err = NewDir(path, conf.Follow, log)
	case !oss.Exists(path):
		return nil, fmt.Errorf("%w: %v", oss.ErrNotExist, path)
	case strings.EqualFold(filepath.Ext(path), ".webp"):
		src, err = NewWebP(path)
	case isExtAllowed(path):
		src, err = NewImage(path)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, path)
	}
	if err != nil {
		return nil, err
	}
	log.Info().Msgf("opened %v", path)
	if conf.Fps > 0 {
		src = Throttle(src, conf.Fps)
	}
	return src, nil
}

type throttled struct {
	VideoSource
	tick *time.Ticker
}

// Throttle limits the source to fps frames per second.
func Throttle(src VideoSource, fps float64) VideoSource {
	return &throttled{VideoSource: src, tick: time.NewTicker(time.Duration(float64(time.Second) / fps))}
}

func (t *throttled) NextFrame() (frame.Frame, error) {
	<-t.tick.C
	return t.VideoSource.NextFrame()
}

func (t *throttled) Close() error {
	t.tick.Stop()
	return t.VideoSource.Close()
}
