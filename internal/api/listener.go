package api

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"
)

func (a *API) newServer(baseCtx context.Context, hostAndPort string) *http.Server {
	return &http.Server{
		Addr:              hostAndPort,
		Handler:           a.handler,
		ReadHeaderTimeout: a.config.API.ReadHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return baseCtx
		},
	}
}

// ListenAndServe serves the integrations API until ctx is done. The server
// is then drained within the configured shutdown timeout and the cache
// connection is closed.
func (a *API) ListenAndServe(ctx context.Context, hostAndPort string) {
	baseCtx, cancel := context.WithCancel(context.Background())

	log := logrus.WithFields(logrus.Fields{
		"component":    "api",
		"addr":         hostAndPort,
		"cache_driver": a.config.Cache.Driver,
		"version":      a.version,
	})

	server := a.newServer(baseCtx, hostAndPort)

	cleanupWaitGroup.Add(1)
	go func() {
		defer cleanupWaitGroup.Done()

		<-ctx.Done()

		defer cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.config.API.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("shutdown failed")
		}

		// in-flight callbacks may still write credentials until Shutdown returns
		if a.cache != nil {
			if err := a.cache.Close(); err != nil {
				log.WithError(err).Warn("closing cache connection failed")
			}
		}
		log.Info("integrations api stopped")
	}()

	log.Info("integrations api listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.WithError(err).Fatal("http server listen failed")
	}
}
