// Command `projsetd` serves one project directory read-only over a Unix
// socket so that `projset --remote` and other processes can discover and
// load the project through it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lc/projset/internal/config"
	"github.com/lc/projset/internal/discovery"
	"github.com/lc/projset/internal/filesys"
	"github.com/lc/projset/internal/log"
	"github.com/lc/projset/internal/platform"
	"github.com/lc/projset/internal/project"
	"github.com/lc/projset/internal/settings"
	"github.com/lc/projset/internal/variant"
	"github.com/lc/projset/pkg/api"
)

func main() {
	// load config
	cfg, err := config.New().Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if os.Getenv(log.LevelEnvVar) == "" {
		log.SetLevel(cfg.Log.Level)
	}
	defer log.Sync()

	root := &cobra.Command{
		Use:          "projsetd",
		Short:        "Serve a project directory over a Unix socket",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	root.Flags().StringVarP(&cfg.Daemon.Root, "root", "r", cfg.Daemon.Root, "project directory to serve")
	root.Flags().StringVarP(&cfg.Socket.Path, "socket", "s", cfg.Socket.Path, "unix socket to listen on")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// run serves cfg.Daemon.Root until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	dir, err := filepath.Abs(cfg.Daemon.Root)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}
	dir = filepath.ToSlash(dir)

	name, err := checkProject(dir)
	if err != nil {
		return err
	}
	log.Info("serving project", "name", name, "root", dir, "socket", cfg.Socket.Path)

	apiSrv := api.New(dir, filesys.Disk())
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := apiSrv.ListenAndServe(cfg.Socket.Path); err != nil {
			return fmt.Errorf("api listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down…")

		// graceful shutdown
		shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Daemon.ShutdownTimeout)
		defer done()
		if err := apiSrv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("api shutdown error: %v", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// checkProject loads the project at dir once so a daemon never serves a
// directory clients cannot load. It returns the project name.
func checkProject(dir string) (string, error) {
	p := project.New(project.Options{Platform: &platform.Profile{}})
	defer p.Close()
	if err := p.Setup(discovery.SetupOptions{Path: dir, IgnoreOverride: true}); err != nil {
		return "", fmt.Errorf("no loadable project at %s: %w", dir, err)
	}
	name, _ := variant.AsString(p.Registry().GetOr(settings.NameKey, nil))
	return name, nil
}
