package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-iam-server/auth"
	"github.com/jrsteele09/go-iam-server/internal/config"
	"github.com/jrsteele09/go-iam-server/internal/logger"
	"github.com/jrsteele09/go-iam-server/internal/metrics"
	"github.com/jrsteele09/go-iam-server/server"
	"github.com/jrsteele09/go-iam-server/sessions"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout    = 5 * time.Second
	sessionPurgePeriod = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logger.Init(c.GetEnv(), c.GetLogLevel())
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, closeStores, err := buildDependencies(ctx, c)
	if err != nil {
		return err
	}
	defer closeStores()
	deps.Verifier = auth.NewOIDCVerifier(ctx, c.GetIssuer(), c.GetJWKSURL())
	deps.Metrics = metrics.New()

	srv, err := server.New(ctx, c, deps)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	apiServer := &http.Server{Addr: c.GetPort(), Handler: srv, ReadHeaderTimeout: 10 * time.Second}
	metricsServer := &http.Server{Addr: c.GetMetricsPort(), Handler: deps.Metrics.Handler(), ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listenAndServe(apiServer) })
	g.Go(func() error { return listenAndServe(metricsServer) })
	g.Go(func() error { return purgeSessions(gctx, srv.Sessions()) })
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(apiServer, metricsServer)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

// purgeSessions removes expired sessions until ctx is cancelled.
func purgeSessions(ctx context.Context, svc *sessions.Service) error {
	ticker := time.NewTicker(sessionPurgePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := svc.PurgeExpired(ctx)
			if err != nil {
				log.Err(err).Msg("session purge failed")
				continue
			}
			if n > 0 {
				log.Info().Int("removed", n).Msg("expired sessions purged")
			}
		}
	}
}

func shutdown(servers ...*http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var errs []error
	for _, s := range servers {
		if err := s.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server.Shutdown %s: %w", s.Addr, err))
		}
	}
	return errors.Join(errs...)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
