package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/supabase/integrations/cmd"
	"github.com/supabase/integrations/internal/api"
	"github.com/supabase/integrations/internal/observability"
)

func main() {
	execCtx, execCancel := context.WithCancel(context.Background())
	defer execCancel()

	go func() {
		shutdownSignal := make(chan os.Signal, 1)
		signal.Notify(shutdownSignal, syscall.SIGINT, syscall.SIGTERM)

		sig := <-shutdownSignal
		logrus.Infof("received graceful shutdown signal: %s", sig)

		// cancelling the context starts the shutdown of the API server and
		// the observability exporters
		execCancel()
	}()

	if err := cmd.RootCommand().ExecuteContext(execCtx); err != nil {
		logrus.WithError(err).Fatal(err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Minute)
	defer shutdownCancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		api.WaitForCleanup(shutdownCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()

		observability.WaitForCleanup(shutdownCtx)
	}()

	wg.Wait()
}
