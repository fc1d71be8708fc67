package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jacktea/mofs/pkg/backend/provider"
	"github.com/jacktea/mofs/pkg/backend/sandbox"
	"github.com/jacktea/mofs/pkg/metrics"
	"github.com/jacktea/mofs/pkg/mofs"
)

type app struct {
	ctx      context.Context
	stop     context.CancelFunc
	fs       *mofs.Fs
	log      logr.Logger
	registry *prometheus.Registry
	cleanup  func()
}

func (a *app) ensureFs() error {
	if a.fs != nil {
		return nil
	}
	a.ctx, a.stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a.log = newLogger(viper.GetString("log_level"))

	a.registry = prometheus.NewRegistry()
	collector := metrics.New()
	if err := collector.Register(a.registry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	name, cfg, err := backendConfig(a.log)
	if err != nil {
		return err
	}
	f, err := mofs.Open(a.ctx, name, cfg, mofs.Options{
		Logger:        a.log,
		Metrics:       collector,
		MimeCacheSize: viper.GetInt("mime_cache_size"),
	})
	if err != nil {
		return fmt.Errorf("init backend: %w", err)
	}
	f.SetVerbose(viper.GetBool("verbose"))
	a.fs = f
	a.cleanup = func() {
		if c, ok := backendCloser(f); ok {
			_ = c.Close()
		}
	}
	return nil
}

func backendCloser(f *mofs.Fs) (interface{ Close() error }, bool) {
	if sb, ok := f.Sandbox(); ok {
		c, ok := sb.(interface{ Close() error })
		return c, ok
	}
	if pv, ok := f.Provider(); ok {
		c, ok := pv.(interface{ Close() error })
		return c, ok
	}
	return nil, false
}

// backendConfig builds the registry config of the selected backend from
// viper settings.
func backendConfig(log logr.Logger) (string, map[string]any, error) {
	name := strings.ToLower(viper.GetString("backend"))
	cfg := map[string]any{
		"root":   viper.GetString("root"),
		"ffmpeg": viper.GetString("ffmpeg"),
		"logger": log.WithName(name),
	}
	switch name {
	case mofs.BackendSandbox:
		cfg["inbox_watch"] = viper.GetBool("sandbox.inbox_watch")
	case mofs.BackendProvider:
		cfg["authority"] = viper.GetString("provider.authority")
		cfg["blob_db"] = viper.GetString("provider.blob_db")
		cfg["gc_interval"] = viper.GetDuration("gc.interval")
		cfg["gc_max_age"] = viper.GetDuration("gc.max_age")
	default:
		return "", nil, fmt.Errorf("unknown backend %q (want %s or %s)", name, mofs.BackendSandbox, mofs.BackendProvider)
	}
	return name, cfg, nil
}

func newLogger(level string) logr.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return logr.FromSlogHandler(h)
}

func (a *app) close() {
	if a.cleanup != nil {
		a.cleanup()
	}
	if a.stop != nil {
		a.stop()
	}
}

var (
	cfgFile     string
	application = &app{}
	rootCmd     = &cobra.Command{
		Use:           "mofs",
		Short:         "mofs device filesystem CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return application.ensureFs()
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	initRootFlags()
	initCommands()
}

func main() {
	err := rootCmd.Execute()
	application.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mofs")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mofs"))
		}
	}
	viper.SetEnvPrefix("MOFS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			fmt.Fprintf(os.Stderr, "read config: %v\n", err)
		}
	}
}

func bindConfig(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func initRootFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (TOML or YAML)")

	flags.String("backend", mofs.BackendSandbox, "backend: sandbox|provider")
	flags.String("root", ".mofs", "host directory holding the device storage")
	flags.String("ffmpeg", "", "ffmpeg binary used for video frames (default: ffmpeg on $PATH)")
	flags.Bool("verbose", false, "log failed operations")
	flags.String("log-level", "info", "log level: debug|info|warn|error")
	flags.Int("mime-cache-size", 256, "entries in the MIME lookup cache")

	flags.Bool("inbox-watch", false, "announce files dropped into the sandbox inbox")
	flags.String("authority", provider.DefaultAuthority, "content authority of the provider backend")
	flags.String("blob-db", "", "bbolt file persisting provider blobs")
	flags.Duration("gc-interval", 0, "interval between sweeps of staged files (0 disables)")
	flags.Duration("gc-max-age", 24*time.Hour, "age after which staged files are swept")

	bindConfig("backend", flags.Lookup("backend"))
	bindConfig("root", flags.Lookup("root"))
	bindConfig("ffmpeg", flags.Lookup("ffmpeg"))
	bindConfig("verbose", flags.Lookup("verbose"))
	bindConfig("log_level", flags.Lookup("log-level"))
	bindConfig("mime_cache_size", flags.Lookup("mime-cache-size"))

	bindConfig("sandbox.inbox_watch", flags.Lookup("inbox-watch"))
	bindConfig("provider.authority", flags.Lookup("authority"))
	bindConfig("provider.blob_db", flags.Lookup("blob-db"))
	bindConfig("gc.interval", flags.Lookup("gc-interval"))
	bindConfig("gc.max_age", flags.Lookup("gc-max-age"))
}

func initCommands() {
	rootCmd.AddCommand(
		newLsCmd(),
		newCatCmd(),
		newPutCmd(),
		newStatCmd(),
		newMkdirCmd(),
		newRmCmd(),
		newMvCmd(),
		newChmodCmd(),
		newMimeCmd(),
		newPathsCmd(),
		newURLCmd(),
		newHashCmd(),
		newHmacCmd(),
		newCryptCmd(),
		newResizeCmd(),
		newThumbnailCmd(),
		newWatchCmd(),
		newGCCmd(),
		newServeContentCmd(),
	)
}

// sandboxDirs are swept by the gc command on the sandbox backend.
var sandboxDirs = []string{sandbox.CachesDir}
