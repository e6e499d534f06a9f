package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var releaseVersion = "devel"

type Config struct {
	bind           string
	port           int
	settingsFile   string
	wordlistFile   string
	natsURL        string
	allowedOrigins []string
	verbose        bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	return nil
}

func (c *Config) addr() string {
	return fmt.Sprintf("%s:%d", c.bind, c.port)
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PASSWORDD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "passwordd",
		Short:         "Live match server for the Password word-guessing game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: PASSWORDD_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: PASSWORDD_PORT)")
	fs.StringVar(&cfg.settingsFile, "settings", "", "path to match settings YAML, defaults apply when empty (env: PASSWORDD_SETTINGS)")
	fs.StringVar(&cfg.wordlistFile, "clue-blocklist", "", "path to banned clue word list, one word per line (env: PASSWORDD_CLUE_BLOCKLIST)")
	fs.StringVar(&cfg.natsURL, "nats-url", "", "NATS server URL for match events, event publishing disabled when empty (env: PASSWORDD_NATS_URL)")
	fs.StringSliceVar(&cfg.allowedOrigins, "allowed-origins", []string{"*"}, "CORS allowed origins (env: PASSWORDD_ALLOWED_ORIGINS)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: PASSWORDD_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("passwordd v{{.Version}}\n")

	return cmd
}
