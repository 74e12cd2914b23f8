package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sobelfarm/sobelfarm/pkg/config"
	"github.com/sobelfarm/sobelfarm/pkg/logger"
	"github.com/sobelfarm/sobelfarm/pkg/network/httpx"
)

type Monitoring struct {
	conf   config.Monitoring
	tag    string
	server *httpx.Server
	log    *logger.Logger
}

// StatusFunc returns a snapshot of the process state for the status page.
type StatusFunc func() any

// New creates new monitoring service.
// The tag param specifies owner label for logs.
func New(conf config.Monitoring, tag string, status StatusFunc, log *logger.Logger) (*Monitoring, error) {
	log = log.Component("monitoring")
	serv, err := httpx.NewServer(
		fmt.Sprintf(":%d", conf.Port),
		func(serv *httpx.Server) httpx.Handler {
			h := http.NewServeMux()

			if conf.ProfilingEnabled {
				prefix := fmt.Sprintf("%s/debug/pprof", conf.URLPrefix)
				log.Info().Msgf("[%v] Profiling is enabled at %v", tag, serv.Addr+prefix)
				h.HandleFunc(prefix+"/", pprof.Index)
				h.HandleFunc(prefix+"/cmdline", pprof.Cmdline)
				h.HandleFunc(prefix+"/profile", pprof.Profile)
				h.HandleFunc(prefix+"/symbol", pprof.Symbol)
				h.HandleFunc(prefix+"/trace", pprof.Trace)
				// named profiles are not routed by the index handler under a custom prefix
				h.Handle(prefix+"/allocs", pprof.Handler("allocs"))
				h.Handle(prefix+"/block", pprof.Handler("block"))
				h.Handle(prefix+"/goroutine", pprof.Handler("goroutine"))
				h.Handle(prefix+"/heap", pprof.Handler("heap"))
				h.Handle(prefix+"/mutex", pprof.Handler("mutex"))
				h.Handle(prefix+"/threadcreate", pprof.Handler("threadcreate"))
			}

			if conf.MetricEnabled {
				metricPath := fmt.Sprintf("%s/metrics", conf.URLPrefix)
				log.Info().Msgf("[%v] Prometheus metric is enabled at %v", tag, serv.Addr+metricPath)
				h.Handle(metricPath, promhttp.Handler())
			}

			if status != nil {
				h.HandleFunc(conf.URLPrefix+"/status", func(w httpx.ResponseWriter, _ *httpx.Request) {
					w.Header().Set("Content-Type", "application/json")
					if err := json.NewEncoder(w).Encode(status()); err != nil {
						log.Warn().Err(err).Msg("status")
					}
				})
			}

			return h
		},
		httpx.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	return &Monitoring{conf: conf, tag: tag, server: serv, log: log}, nil
}

func (m *Monitoring) Run() {
	m.log.Info().Msgf("[%v] Starting monitoring server at %v", m.tag, m.server.Addr)
	m.server.Run()
}

func (m *Monitoring) Shutdown(ctx context.Context) error {
	m.log.Info().Msgf("[%v] Shutting down monitoring server", m.tag)
	return m.server.Shutdown(ctx)
}

func (m *Monitoring) Port() int { return m.server.Port() }

func (m *Monitoring) String() string {
	return fmt.Sprintf("monitoring::%s:%d", m.conf.URLPrefix, m.conf.Port)
}
