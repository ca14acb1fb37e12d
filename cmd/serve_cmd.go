package cmd

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/supabase/integrations/internal/api"
	"github.com/supabase/integrations/internal/storage"
	"github.com/supabase/integrations/internal/utilities"
)

var serveCmd = cobra.Command{
	Use:  "serve",
	Long: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		serve(cmd.Context())
	},
}

func serve(ctx context.Context) {
	config := loadGlobalConfig(ctx)

	if err := utilities.InitVersionMetrics(ctx); err != nil {
		logrus.WithError(err).Warn("unable to record version metrics")
	}

	cache, err := storage.Dial(config)
	if err != nil {
		logrus.Fatalf("error opening cache: %+v", err)
	}

	// the api closes the cache once it has drained
	api := api.NewAPIWithVersion(ctx, config, cache, utilities.Version)
	api.ListenAndServe(ctx, net.JoinHostPort(config.API.Host, config.API.Port))
}
