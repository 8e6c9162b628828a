package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Xunop/bookshelf/internal/config"
	"github.com/Xunop/bookshelf/internal/log"
	"github.com/Xunop/bookshelf/internal/metrics"
	"github.com/Xunop/bookshelf/internal/server"
	"github.com/Xunop/bookshelf/internal/store"
	"github.com/Xunop/bookshelf/internal/store/db"
	"github.com/Xunop/bookshelf/internal/version"
)

const (
	greetingBanner = `
██████   ██████   ██████  ██   ██ ███████ ██   ██ ███████ ██      ███████
██   ██ ██    ██ ██    ██ ██  ██  ██      ██   ██ ██      ██      ██
██████  ██    ██ ██    ██ █████   ███████ ███████ █████   ██      █████
██   ██ ██    ██ ██    ██ ██  ██       ██ ██   ██ ██      ██      ██
██████   ██████   ██████  ██   ██ ███████ ██   ██ ███████ ███████ ██
`
	shutdownTimeout = 10 * time.Second
)

var (
	configFile string
	host       string
	port       int
	data       string

	rootCmd = &cobra.Command{
		Use:   "bookshelf",
		Short: "Bookshelf keeps track of the books you own, lend, borrow and wish for",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}
			log.Logger = log.NewLogger()
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			database, err := db.NewDB(config.Opts.DSN)
			if err != nil {
				log.Error("Error connecting to database", zap.Error(err))
				return err
			}
			defer database.Close()
			if err := database.Migrate(ctx); err != nil {
				log.Error("Error migrating database", zap.Error(err))
				return err
			}

			store := store.NewStore(database.DB)
			if err := store.Ping(); err != nil {
				log.Error("Error pinging database", zap.Error(err))
				return err
			}
			if config.Opts.MetricsCollector {
				metrics.RegisterDBStats(store.DBStats)
			}

			s, err := server.StartServer(ctx, store)
			if err != nil {
				log.Error("Error creating server", zap.Error(err))
				return err
			}
			fmt.Print(greetingBanner)
			log.Info("Server started", zap.String("version", version.GetCurrentVersion()), zap.String("address", s.Addr))

			<-ctx.Done()
			log.Info("Shutting down")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if err := s.Shutdown(shutdownCtx); err != nil {
				log.Error("Error shutting down server", zap.Error(err))
				return err
			}
			return nil
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.GetCurrentVersion())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (toml, yaml or json)")
	rootCmd.Flags().StringVar(&host, "host", "", "address to listen on")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on")
	rootCmd.Flags().StringVarP(&data, "data", "d", "", "data directory")
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file or the environment, then applies the
// flags given on the command line.
func loadConfig(cmd *cobra.Command) error {
	var err error
	if configFile != "" {
		_, err = config.ParseFile(configFile)
	} else {
		_, err = config.GetConfig()
	}
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("host") {
		config.Opts.Host = host
	}
	if cmd.Flags().Changed("port") {
		config.Opts.Port = port
	}
	if cmd.Flags().Changed("data") {
		return config.OverrideDataDir(data)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
