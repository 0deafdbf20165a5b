package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"smppgw/session"
)

type metricsServer struct {
	srv *http.Server
	ln  net.Listener
}

// startMetrics serves the session collectors on addr under /metrics.
func startMetrics(addr string) (*metricsServer, error) {
	if err := session.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	m := &metricsServer{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}
	log := logrus.WithField("metrics", ln.Addr().String())
	go func() {
		if err := m.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server")
		}
	}()
	log.Info("metrics started")
	return m, nil
}

func (m *metricsServer) Addr() net.Addr { return m.ln.Addr() }

func (m *metricsServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.srv.Shutdown(ctx)
}
