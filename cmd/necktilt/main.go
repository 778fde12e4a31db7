package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ayusman/necktilt/internal/app"
	"github.com/ayusman/necktilt/internal/config"
	"github.com/ayusman/necktilt/internal/logging"
	"github.com/ayusman/necktilt/internal/plugin"
	"github.com/ayusman/necktilt/internal/server"
	"github.com/ayusman/necktilt/internal/store"
	"github.com/ayusman/necktilt/internal/tray"
)

func main() {
	config.LoadEnv(logrus.StandardLogger())

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:           "necktilt",
		Short:         "Neck tilt exercise trainer",
		Long:          "Necktilt watches the webcam, counts held neck tilts and serves live feedback on a local web page.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// The plugin directory follows --data-dir unless set explicitly.
			if !cmd.Flags().Changed("plugin-dir") && os.Getenv("NECKTILT_PLUGIN_DIR") == "" {
				cfg.PluginDir = filepath.Join(cfg.DataDir, "plugins")
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	flags.IntVar(&cfg.CameraID, "camera", cfg.CameraID, "webcam device index")
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the settings database")
	flags.StringVar(&cfg.PluginDir, "plugin-dir", cfg.PluginDir, "directory to discover hook plugins in (default <data-dir>/plugins)")
	flags.StringVar(&cfg.WebDir, "web-dir", cfg.WebDir, "static web UI directory (searched for when empty)")
	flags.BoolVar(&cfg.NoTray, "no-tray", cfg.NoTray, "run without the system tray menu")

	rootCmd.AddCommand(newPluginsCmd(&cfg))
	return rootCmd
}

func newPluginsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the hook plugins found in the plugin directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := plugin.NewManager(cfg.PluginDir, logging.NewLogger())
			if err := mgr.Discover(); err != nil {
				return fmt.Errorf("discover plugins in %s: %w", cfg.PluginDir, err)
			}

			out := cmd.OutOrStdout()
			plugins := mgr.List()
			if len(plugins) == 0 {
				fmt.Fprintf(out, "No plugins in %s\n", cfg.PluginDir)
				return nil
			}
			for _, p := range plugins {
				fmt.Fprintf(out, "%s %s\t%s\n", p.Manifest.Name, p.Manifest.Version, strings.Join(p.Manifest.Actions, ", "))
			}
			return nil
		},
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger := logging.NewLogger()
	log := logger.WithField("component", "main")

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	a := app.New(app.Config{
		Store:        st,
		PluginDir:    cfg.PluginDir,
		CameraID:     cfg.CameraID,
		MotionThresh: cfg.MotionThreshold,
		Logger:       logger,
	})
	defer a.Close()

	if err := a.LoadSettings(); err != nil {
		log.WithError(err).Warn("Using default exercise settings")
	}
	if err := a.DiscoverPlugins(); err != nil {
		log.WithError(err).Warn("Plugin discovery failed")
	}

	webDir := cfg.WebDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		log.WithField("dir", webDir).Info("Serving static files")
	}

	srv := server.New(server.Config{
		StaticDir:     webDir,
		Store:         st,
		App:           a,
		Plugins:       a.PluginManager(),
		Metrics:       a.Metrics().Handler(),
		CameraStopped: app.ErrCameraStopped,
		Logger:        logger,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(cfg.Addr)
	}()

	if !cfg.NoTray {
		t := tray.New(a, browserURL(cfg.Addr), logger)
		t.OnQuit(stop)

		updates, cancel := a.Subscribe()
		defer cancel()
		go t.Follow(updates)

		go func() {
			select {
			case <-ctx.Done():
			case err := <-serveErr:
				serveErr <- err
			}
			t.Quit()
		}()
		// systray needs the main goroutine.
		t.Run()
		stop()
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Server shutdown")
	}
	return nil
}

// browserURL turns a listen address into a URL for the local browser.
func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <data-dir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
