// Command guildclone runs a single clone job from the terminal and streams
// its progress to stderr.
//
// Every flag can also be set through a GUILDCLONE_* environment variable or
// a YAML config file, e.g. GUILDCLONE_TOKEN or GUILDCLONE_MESSAGE_LIMIT.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sumire/guildcloner/internal/cloner"
	"github.com/sumire/guildcloner/internal/discord"
	"github.com/sumire/guildcloner/internal/domain"
	"github.com/sumire/guildcloner/internal/events"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "guildclone",
		Short: "Copy the structure and content of one Discord server into another",
		Long: `guildclone copies server settings, roles, categories, channels, emojis,
webhooks and recent messages from a source server into a target server.

The target is modified in place: existing roles, channels and emojis are
deleted before the source's are recreated.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(v, cmd, cfgFile)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClone(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	flags.String("token", "", "Discord bot token")
	flags.String("source", "", "source server ID")
	flags.String("target", "", "target server ID")
	flags.StringSlice("stages", nil, "stages to run: server_info, roles, categories, channels, emojis, webhooks, messages (default: structure only)")
	flags.Duration("delay", domain.DefaultBaseDelay, "base delay between API operations")
	flags.Int("message-limit", domain.DefaultMessageLimit, "messages copied per text channel (1-100)")
	flags.String("policy", string(domain.RateLimitRetry), "what category and channel creation does after a rate limit: retry or skip")
	flags.String("api-base", discord.DefaultAPIBase, "Discord REST API base URL")
	flags.String("log-format", "text", "log output format: text or json")

	return cmd
}

func loadConfig(v *viper.Viper, cmd *cobra.Command, cfgFile string) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	v.SetEnvPrefix("GUILDCLONE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	return nil
}

func newLogger(format string) *slog.Logger {
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func runClone(ctx context.Context, v *viper.Viper) error {
	logger := newLogger(v.GetString("log-format"))

	opts, err := optionsFromStages(v.GetStringSlice("stages"))
	if err != nil {
		return err
	}
	opts.MessageLimit = v.GetInt("message-limit")
	opts.RateLimitPolicy = domain.RateLimitPolicy(v.GetString("policy"))
	if opts.RateLimitPolicy != domain.RateLimitRetry && opts.RateLimitPolicy != domain.RateLimitSkip {
		return fmt.Errorf("unknown policy %q", opts.RateLimitPolicy)
	}
	if opts.MessageLimit < 1 || opts.MessageLimit > domain.MaxMessageLimit {
		return fmt.Errorf("message-limit must be between 1 and %d", domain.MaxMessageLimit)
	}
	opts = opts.WithDefaults(domain.DefaultMessageLimit, domain.RateLimitRetry)

	token := v.GetString("token")
	if token == "" {
		return fmt.Errorf("a Discord credential is required (--token or GUILDCLONE_TOKEN)")
	}

	delay := v.GetDuration("delay")
	if delay < 0 {
		return fmt.Errorf("delay must not be negative")
	}

	api := discord.NewClient(discord.Config{
		APIBase: v.GetString("api-base"),
		Token:   token,
	})

	job := cloner.New(cloner.Config{
		ID:            uuid.NewString(),
		SourceGuildID: v.GetString("source"),
		TargetGuildID: v.GetString("target"),
		Options:       opts,
		Delays:        cloner.DelaysFromBase(delay),
	}, api, events.NewLogSink(logger))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		job.Stop()
	}()

	start := time.Now()
	ok := job.Run(ctx)
	stats := job.Stats()
	logger.Info("done",
		"status", job.Status(),
		"elapsed", time.Since(start).Round(time.Second),
		"errors", stats.Errors,
	)
	if !ok {
		if reason := job.Failure(); reason != "" {
			return fmt.Errorf("clone %s: %s", job.Status(), reason)
		}
		return fmt.Errorf("clone %s", job.Status())
	}
	return nil
}

// optionsFromStages turns stage names into clone options. An empty list
// leaves every stage off so that defaults apply.
func optionsFromStages(names []string) (domain.CloneOptions, error) {
	var opts domain.CloneOptions
	for _, name := range names {
		switch domain.Stage(strings.TrimSpace(strings.ToLower(name))) {
		case domain.StageServerInfo:
			opts.ServerInfo = true
		case domain.StageRoles:
			opts.Roles = true
		case domain.StageCategories:
			opts.Categories = true
		case domain.StageChannels:
			opts.Channels = true
		case domain.StageEmojis:
			opts.Emojis = true
		case domain.StageWebhooks:
			opts.Webhooks = true
		case domain.StageMessages:
			opts.Messages = true
		case "all":
			opts.ServerInfo, opts.Roles, opts.Categories, opts.Channels = true, true, true, true
			opts.Emojis, opts.Webhooks, opts.Messages = true, true, true
		default:
			return domain.CloneOptions{}, fmt.Errorf("unknown stage %q", name)
		}
	}
	return opts, nil
}

