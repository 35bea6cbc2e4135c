package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wfunc/sweepserver/config"
	"github.com/wfunc/sweepserver/directory"
	"github.com/wfunc/sweepserver/logger"
	"github.com/wfunc/sweepserver/persistence"
	"github.com/wfunc/sweepserver/server"
)

var (
	configPath string
	devLog     bool
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the game server",
		Long: `Start the websocket game server, the lobby HTTP API and, when configured,
the lobby RPC listener.

Examples:
  sweepserver serve
  sweepserver serve --config /etc/sweep
  SWEEP_DATABASE_DRIVER=gorm sweepserver serve`,
		RunE: runServe,
	}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", ".", "Directory containing config.yaml")
	serveCmd.Flags().BoolVar(&devLog, "dev", false, "Human readable logs")

	rootCmd.AddCommand(serveCmd)
}

// directoryTTL keeps published rooms alive across a few missed sweeps.
func directoryTTL(cfg *config.Config) time.Duration {
	if cfg.Game.SweepInterval <= 0 {
		return time.Minute
	}
	return 3 * cfg.Game.SweepInterval
}

func openDirectory(ctx context.Context, cfg *config.Config) (directory.Directory, error) {
	if cfg.Redis.Addr == "" {
		return directory.NewMemoryDirectory(), nil
	}
	rdb, err := directory.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	return directory.NewRedisDirectory(rdb, directoryTTL(cfg)), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if devLog {
		logger.InitDevelopment()
	} else {
		logger.Init()
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	db, err := persistence.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Log.Infof("Database driver %q ready", cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, err := openDirectory(ctx, cfg)
	if err != nil {
		return err
	}
	defer dir.Close()

	gameServer, err := server.NewGameServer(cfg, db, dir)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		logger.Log.Info("Shutting down")
		gameServer.Shutdown()
	}()
	err = gameServer.Start()
	// waits for a shutdown already in progress
	gameServer.Shutdown()
	return err
}
