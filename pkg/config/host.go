package config

import (
	"time"

	"github.com/spf13/pflag"
)

type HostConfig struct {
	Host      Host
	Pipeline  Pipeline
	Transport Transport
	Log       Log
	Shutdown  Shutdown
}

type Host struct {
	// HighWaterMark is the number of frames allowed to be out at workers.
	HighWaterMark int `default:"8"`
	// StallTimeout skips missing frames after the output stood still
	// that long, 0 waits forever.
	StallTimeout time.Duration
	// StatsEvery is the number of results between latency log lines.
	StatsEvery int `default:"50"`
	// LocalWorkers are in-process workers connected over loopback.
	LocalWorkers int
	Monitoring   Monitoring
	Source       Source
	Presenter    Presenter
}

type Source struct {
	// Follow keeps watching an image directory for new files.
	Follow bool
	// Fps limits the capture rate, 0 is as fast as possible.
	Fps float64
	// Cache is where remote videos are downloaded.
	Cache   string `default:"cache"`
	Pattern Pattern
}

// Pattern is the synthetic source used with the pattern: path.
type Pattern struct {
	Width  int `default:"640"`
	Height int `default:"480"`
	Frames int `default:"300"`
}

type Presenter struct {
	// Kind is one of png, webp, discard.
	Kind  string `default:"png"`
	Out   string `default:"out"`
	Label bool
	Webp  struct {
		Quality  float32 `default:"80"`
		Lossless bool
		// FrameTime is the duration of a frame in the animation.
		FrameTime time.Duration `default:"40ms"`
	}
}

// NewHostConfig loads the host config from the default locations
// or from the path dir.
func NewHostConfig(path string) (conf HostConfig, err error) {
	err = LoadConfig(&conf, path)
	return
}

// ParseFlags updates config values from passed runtime flags.
// Returns positional arguments.
func (c *HostConfig) ParseFlags(fs *pflag.FlagSet, args []string) ([]string, error) {
	c.Transport.WithFlags(fs)
	c.Pipeline.WithFlags(fs)
	c.Log.WithFlags(fs)
	fs.IntVar(&c.Host.HighWaterMark, "hwm", c.Host.HighWaterMark, "max frames in flight")
	fs.DurationVar(&c.Host.StallTimeout, "stall", c.Host.StallTimeout, "skip lost frames after this long (0 = never)")
	fs.IntVarP(&c.Host.LocalWorkers, "workers", "w", c.Host.LocalWorkers, "in-process workers")
	fs.IntVar(&c.Host.Monitoring.Port, "monitoring.port", c.Host.Monitoring.Port, "monitoring server port")
	fs.StringVar(&c.Host.Presenter.Kind, "present", c.Host.Presenter.Kind, "presenter: png, webp or discard")
	fs.StringVarP(&c.Host.Presenter.Out, "out", "o", c.Host.Presenter.Out, "presenter output path")
	fs.BoolVar(&c.Host.Presenter.Label, "label", c.Host.Presenter.Label, "print frame numbers on output")
	fs.BoolVar(&c.Host.Source.Follow, "follow", c.Host.Source.Follow, "watch the image directory for new files")
	fs.Float64Var(&c.Host.Source.Fps, "fps", c.Host.Source.Fps, "capture rate limit (0 = unlimited)")
	fs.String("conf", "", "directory of a custom config.yaml")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}
