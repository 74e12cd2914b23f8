package config

import "github.com/spf13/pflag"

type WorkerConfig struct {
	Worker    Worker
	Pipeline  Pipeline
	Transport Transport
	Log       Log
	Shutdown  Shutdown
}

type Worker struct {
	Monitoring Monitoring
	// Tag is a name shown in the logs and metrics.
	Tag string
}

func NewWorkerConfig(path string) (conf WorkerConfig, err error) {
	err = LoadConfig(&conf, path)
	return
}

// ParseFlags updates config values from passed runtime flags.
func (c *WorkerConfig) ParseFlags(fs *pflag.FlagSet, args []string) error {
	c.Transport.WithFlags(fs)
	c.Pipeline.WithFlags(fs)
	c.Log.WithFlags(fs)
	fs.IntVar(&c.Worker.Monitoring.Port, "monitoring.port", c.Worker.Monitoring.Port, "monitoring server port")
	fs.StringVar(&c.Worker.Tag, "tag", c.Worker.Tag, "worker name")
	fs.String("conf", "", "directory of a custom config.yaml")
	return fs.Parse(args)
}
