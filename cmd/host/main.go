package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sobelfarm/sobelfarm/pkg/config"
	"github.com/sobelfarm/sobelfarm/pkg/host"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
	"github.com/sobelfarm/sobelfarm/pkg/monitoring"
	"github.com/sobelfarm/sobelfarm/pkg/present"
	"github.com/sobelfarm/sobelfarm/pkg/service"
	"github.com/sobelfarm/sobelfarm/pkg/source"
	"github.com/sobelfarm/sobelfarm/pkg/transport"
	"github.com/sobelfarm/sobelfarm/pkg/wire"
	"github.com/spf13/pflag"
)

var Version = "?"

func main() {
	conf, err := config.NewHostConfig(config.Path(os.Args[1:]))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	fs := pflag.NewFlagSet("sobelfarm-host", pflag.ContinueOnError)
	args, err := conf.ParseFlags(fs, os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <video-path>\n", fs.Name())
		fs.PrintDefaults()
		return
	}

	log := logger.NewConsole(conf.Log.Debug, "h", conf.Log.NoColor)
	if conf.Log.Json {
		log = logger.New(conf.Log.Debug)
	}
	log.Info().Msgf("version %s", Version)
	log.Debug().Msgf("conf: %+v", conf)

	src, err := source.Open(args[0], conf.Host.Source, log)
	if err != nil {
		log.Fatal().Err(err).Msgf("could not open %v", args[0])
	}
	screen, err := present.New(conf.Host.Presenter, log)
	if err != nil {
		log.Fatal().Err(err).Msg("presenter")
	}
	net, err := transport.Bind(conf.Transport, log)
	if err != nil {
		log.Fatal().Err(err).Msg("transport")
	}

	app := host.New(conf.Host, wire.Codec{Compress: conf.Transport.Compress}, src, screen, net, log)

	services := service.Group{}
	services.Add(net)
	if conf.Host.Monitoring.IsEnabled() {
		mon, err := monitoring.New(conf.Host.Monitoring, "host", app.Status, log)
		if err != nil {
			log.Fatal().Err(err).Msg("monitoring")
		}
		services.Add(mon)
	}
	workers, err := host.LocalWorkers(conf.Host.LocalWorkers, net, conf.Pipeline, conf.Transport.Compress, log)
	if err != nil {
		log.Fatal().Err(err).Msg("local workers")
	}
	for _, w := range workers {
		services.Add(w)
	}
	services.Start()
	tasks := net.TasksURL()
	log.Info().Msgf("waiting for workers at %v", tasks.String())

	if err = app.Run(context.Background()); err != nil {
		log.Error().Err(err).Msg("host")
	}

	ctx, cancel := context.WithTimeout(context.Background(), conf.Shutdown.Timeout)
	defer cancel()
	if err := services.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("service shutdown errors")
	}
}
