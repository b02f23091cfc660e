package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pixsync/pixsync/internal/client"
	"github.com/pixsync/pixsync/internal/client/config"
	"github.com/pixsync/pixsync/internal/utils"
	"github.com/pixsync/pixsync/internal/version"
)

const configFileName = "config"

var (
	home, _ = os.UserHomeDir()

	red   = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
	cyan  = color.New(color.FgHiCyan).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:     "pixsync",
	Short:   "PixSync media synchronization client",
	Version: version.DetailedWithApp(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFromViper()
		if err := cfg.Validate(); err != nil {
			return err
		}

		cmd.SilenceUsage = true
		setupLogging(cfg)

		daemon, err := client.NewDaemon(cfg)
		if err != nil {
			return err
		}

		defer slog.Info("Bye!")
		return daemon.Start(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("media-dir", "m", "", "Directory holding the media library")
	rootCmd.Flags().StringP("data-dir", "d", config.DefaultDataDir, "PixSync state directory")
	rootCmd.Flags().StringP("server", "s", config.DefaultServerURL, "PixSync server URL")
	rootCmd.Flags().Bool("auto-upload", true, "Upload new items automatically")
	rootCmd.Flags().Bool("wifi-only", false, "Upload only on unmetered networks")
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "PixSync config file")

	rootCmd.AddCommand(loginCmd, syncCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red("error:"), err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(configFilePath)
	} else {
		viper.AddConfigPath(filepath.Join(home, ".pixsync"))
		viper.AddConfigPath(filepath.Join(home, ".config/pixsync"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("json")
	}

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("media_dir", cmd.Flags().Lookup("media-dir"))
	viper.BindPFlag("data_dir", cmd.Flags().Lookup("data-dir"))
	viper.BindPFlag("server_url", cmd.Flags().Lookup("server"))
	viper.BindPFlag("auto_upload", cmd.Flags().Lookup("auto-upload"))
	viper.BindPFlag("wifi_only", cmd.Flags().Lookup("wifi-only"))

	viper.SetEnvPrefix("PIXSYNC")
	viper.AutomaticEnv()

	return nil
}

func configFromViper() *config.Config {
	cfg := &config.Config{
		Path:              viper.ConfigFileUsed(),
		DataDir:           viper.GetString("data_dir"),
		MediaDir:          viper.GetString("media_dir"),
		Email:             viper.GetString("email"),
		ServerURL:         viper.GetString("server_url"),
		RefreshToken:      viper.GetString("refresh_token"),
		AutoUpload:        viper.GetBool("auto_upload"),
		WifiOnly:          viper.GetBool("wifi_only"),
		SyncIntervalHours: viper.GetInt("sync_interval_hours"),
		LastSyncTime:      viper.GetTime("last_sync_time"),
	}
	if cfg.Path == "" {
		cfg.Path = config.DefaultConfigPath
	}
	if cfg.DataDir == "" {
		cfg.DataDir = config.DefaultDataDir
	}
	if resolved, err := utils.ResolvePath(cfg.MediaDir); err == nil {
		cfg.MediaDir = resolved
	}
	return cfg
}

// setupLogging writes to the terminal and a log file under the data dir.
func setupLogging(cfg *config.Config) {
	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})

	handlers := []slog.Handler{stdoutHandler}

	logPath := filepath.Join(cfg.LogDir(), "pixsync.log")
	if err := utils.EnsureParent(logPath); err == nil {
		if file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}))
		}
	}

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(handlers...)))
}
