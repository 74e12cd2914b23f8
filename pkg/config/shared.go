package config

import (
	"time"

	"github.com/spf13/pflag"
)

type Monitoring struct {
	Port             int
	URLPrefix        string
	MetricEnabled    bool `json:"metric_enabled"`
	ProfilingEnabled bool `json:"profiling_enabled"`
}

func (c *Monitoring) IsEnabled() bool { return c.MetricEnabled || c.ProfilingEnabled }

// Transport describes the two websocket endpoints.
// The host binds them on Address, workers dial them there.
type Transport struct {
	Address     string
	TasksPort   int    `default:"5555"`
	ResultsPort int    `default:"5556"`
	TasksPath   string `default:"/tasks"`
	ResultsPath string `default:"/results"`
	// Compress wraps outgoing messages into zstd frames.
	Compress bool
	// PortRoll lets the host take the next free port if the configured one is busy.
	PortRoll bool
	Secure   bool
}

// Pipeline is the edge detector setup.
type Pipeline struct {
	// Engine is one of scalar, vector, auto.
	Engine string `default:"auto"`
	// Stripes per frame, 0 is one per CPU.
	Stripes int
	// Threads limits concurrently processed stripes, 0 is one per CPU.
	Threads int
}

type Log struct {
	Debug bool
	// Json switches the human-friendly console output to JSON lines.
	Json    bool
	NoColor bool
}

type Shutdown struct {
	Timeout time.Duration `default:"5s"`
}

func (t *Transport) WithFlags(fs *pflag.FlagSet) {
	fs.StringVar(&t.Address, "address", t.Address, "transport host address")
	fs.IntVar(&t.TasksPort, "tasks.port", t.TasksPort, "task endpoint port")
	fs.IntVar(&t.ResultsPort, "results.port", t.ResultsPort, "result endpoint port")
	fs.BoolVar(&t.Compress, "compress", t.Compress, "compress messages with zstd")
}

func (p *Pipeline) WithFlags(fs *pflag.FlagSet) {
	fs.StringVar(&p.Engine, "engine", p.Engine, "convolution engine: scalar, vector or auto")
	fs.IntVar(&p.Stripes, "stripes", p.Stripes, "stripes per frame (0 = CPU count)")
	fs.IntVar(&p.Threads, "threads", p.Threads, "concurrent stripes (0 = CPU count)")
}

func (l *Log) WithFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&l.Debug, "debug", "d", l.Debug, "debug logging")
	fs.BoolVar(&l.Json, "json", l.Json, "JSON log output")
}
