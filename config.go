/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Seednode/buzzbox/games/buzzer"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind             string
	codeLength       int
	envFile          string
	hostOnlyControls bool
	maxPlayers       int
	port             int
	prefix           string
	profile          bool
	rateLimit        int
	rateWindow       time.Duration
	sessionTimeout   time.Duration
	sounds           []string
	staticDir        string
	tlsCert          string
	tlsKey           string
	verbose          bool
	version          bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.maxPlayers < buzzer.MinPlayers || c.maxPlayers > buzzer.MaxPlayers {
		return fmt.Errorf("invalid max players (must be between %d-%d inclusive): %d", buzzer.MinPlayers, buzzer.MaxPlayers, c.maxPlayers)
	}
	if c.codeLength < 4 || c.codeLength > 12 {
		return fmt.Errorf("invalid code length (must be between 4-12 inclusive): %d", c.codeLength)
	}
	if c.rateLimit < 0 {
		return fmt.Errorf("invalid rate limit (must not be negative): %d", c.rateLimit)
	}
	if c.rateLimit > 0 && c.rateWindow <= 0 {
		return errors.New("--rate-window must be positive when --rate-limit is set")
	}
	if c.sessionTimeout < 0 {
		return errors.New("--session-timeout must not be negative")
	}
	if err := buzzer.Catalog(c.sounds).Validate(); err != nil {
		return fmt.Errorf("invalid --sounds: %w", err)
	}
	if c.staticDir != "" {
		info, err := os.Stat(c.staticDir)
		if err != nil {
			return fmt.Errorf("invalid --static-dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("invalid --static-dir: %s is not a directory", c.staticDir)
		}
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// directoryOptions turns the flags into engine options.
func (c *Config) directoryOptions() buzzer.Options {
	return buzzer.Options{
		MaxPlayers:  c.maxPlayers,
		Catalog:     buzzer.Catalog(c.sounds),
		Policy:      buzzer.Policy{HostOnlyControls: c.hostOnlyControls},
		IdleTimeout: c.sessionTimeout,
		CodeLength:  c.codeLength,
		Logf:        engineLogger(c),
	}
}

// loadEnvFile reads KEY=value pairs from path into the environment before the
// flags are resolved. Variables already set win, and a missing file is ignored.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// envFileFromArgs finds --env-file before cobra parses anything, since the
// file has to be loaded ahead of viper's environment lookups.
func envFileFromArgs(args []string) string {
	path := os.Getenv("BUZZBOX_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	for i, arg := range args {
		switch {
		case arg == "--env-file" && i+1 < len(args):
			path = args[i+1]
		case strings.HasPrefix(arg, "--env-file="):
			path = strings.TrimPrefix(arg, "--env-file=")
		}
	}
	return path
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BUZZBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "buzzbox",
		Short:         "A real-time multiplayer buzzer for quiz nights, packed in a single webapp.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: BUZZBOX_BIND)")
	fs.IntVar(&cfg.codeLength, "code-length", buzzer.DefaultCodeLength, "length of generated room codes (env: BUZZBOX_CODE_LENGTH)")
	fs.StringVar(&cfg.envFile, "env-file", ".env", "file of KEY=value pairs loaded into the environment at startup (env: BUZZBOX_ENV_FILE)")
	fs.BoolVar(&cfg.hostOnlyControls, "host-only-controls", true, "only let the host lock and reset buzzers (env: BUZZBOX_HOST_ONLY_CONTROLS)")
	fs.IntVar(&cfg.maxPlayers, "max-players", buzzer.MaxPlayers, "maximum seats per room, host included (env: BUZZBOX_MAX_PLAYERS)")
	fs.IntVarP(&cfg.port, "port", "p", 4001, "port to listen on (env: BUZZBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: BUZZBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: BUZZBOX_PROFILE)")
	fs.IntVar(&cfg.rateLimit, "rate-limit", 25, "requests allowed per client IP per rate window, 0 to disable (env: BUZZBOX_RATE_LIMIT)")
	fs.DurationVar(&cfg.rateWindow, "rate-window", time.Minute, "window for --rate-limit (env: BUZZBOX_RATE_WINDOW)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle rooms are closed, 0 to keep them (env: BUZZBOX_SESSION_TIMEOUT)")
	fs.StringSliceVar(&cfg.sounds, "sounds", buzzer.DefaultCatalog, "buzzer sounds handed out to players (env: BUZZBOX_SOUNDS)")
	fs.StringVar(&cfg.staticDir, "static-dir", "", "serve a prebuilt client from this directory instead of the built-in one (env: BUZZBOX_STATIC_DIR)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: BUZZBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: BUZZBOX_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: BUZZBOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: BUZZBOX_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("buzzbox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
