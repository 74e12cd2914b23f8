package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sobelfarm/sobelfarm/pkg/config"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
	"github.com/sobelfarm/sobelfarm/pkg/monitoring"
	"github.com/sobelfarm/sobelfarm/pkg/network"
	oss "github.com/sobelfarm/sobelfarm/pkg/os"
	"github.com/sobelfarm/sobelfarm/pkg/service"
	"github.com/sobelfarm/sobelfarm/pkg/worker"
	"github.com/spf13/pflag"
)

var Version = "?"

func main() {
	conf, err := config.NewWorkerConfig(config.Path(os.Args[1:]))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	fs := pflag.NewFlagSet("sobelfarm-worker", pflag.ContinueOnError)
	if err = conf.ParseFlags(fs, os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	log := logger.NewConsole(conf.Log.Debug, "w", conf.Log.NoColor)
	if conf.Log.Json {
		log = logger.New(conf.Log.Debug)
	}
	log.Info().Msgf("version %s", Version)
	log.Debug().Msgf("conf: %+v", conf)

	t := conf.Transport
	tasks := network.WsURL(t.Address, t.TasksPort, t.TasksPath, t.Secure)
	results := network.WsURL(t.Address, t.ResultsPort, t.ResultsPath, t.Secure)
	w, err := worker.Connect(tasks, results, conf.Pipeline, t.Compress, conf.Worker.Tag, log)
	if err != nil {
		log.Fatal().Err(err).Msgf("could not reach %v", tasks.Host)
	}

	services := service.Group{}
	services.Add(w)
	if conf.Worker.Monitoring.IsEnabled() {
		mon, err := monitoring.New(conf.Worker.Monitoring, "worker", nil, log)
		if err != nil {
			log.Fatal().Err(err).Msg("monitoring")
		}
		services.Add(mon)
	}
	services.Start()

	select {
	case <-w.Done():
	case <-oss.ExpectTermination():
		log.Info().Msg("terminated")
	}

	ctx, cancel := context.WithTimeout(context.Background(), conf.Shutdown.Timeout)
	defer cancel()
	if err := services.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("service shutdown errors")
	}
}
