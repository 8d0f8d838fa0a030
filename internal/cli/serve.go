package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/Desk/internal/adapters/control"
	router "github.com/dkeye/Desk/internal/adapters/http"
)

func NewServeCommand(root *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser control surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			st, err := newStack(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			return serve(cmd.Context(), st)
		},
		Example: `  # Serve with config/config.dev.yaml
  desk serve

  # Serve on another port
  desk serve --port 9090`,
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Listen port (overrides config)")
	return cmd
}

func serve(ctx context.Context, st *stack) error {
	cfg := st.cfg
	ctl := control.NewControlWSController(
		st.orch,
		control.NewStartRateLimiter(cfg.Input.StartLimit, cfg.Input.StartWindow),
		control.Config{ReadLimit: cfg.ReadLimit, PingPeriod: cfg.PingPeriod},
	)
	deps := router.Deps{
		Orch:    st.orch,
		Devices: st.directory,
		Control: ctl,
	}
	if cfg.Metrics.Enabled {
		deps.Metrics = st.orch.Exporter.Handler()
	}

	r := router.SetupRouter(ctx, cfg, deps)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("module", "cli").Str("addr", addr).Msg("Desk server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info().Str("module", "cli").Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	st.orch.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Str("module", "cli").Msg("Server forced to shutdown")
	}
	log.Info().Str("module", "cli").Msg("Server exited gracefully")
	return nil
}
