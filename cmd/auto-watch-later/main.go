// Command auto-watch-later polls the authenticated user's YouTube
// subscriptions and queues new uploads into a staging playlist for manual
// transfer into Watch Later.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/Noahffiliation/auto-watch-later/config"
	"github.com/Noahffiliation/auto-watch-later/internal/retry"
	"github.com/Noahffiliation/auto-watch-later/storage"
	"github.com/Noahffiliation/auto-watch-later/youtube"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "sync":
		cmdSync(args)
	case "status":
		cmdStatus(args)
	case "auth":
		cmdAuth(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `auto-watch-later - queue new subscription uploads into a staging playlist

Usage:
  auto-watch-later auth             Authorize access to your YouTube account
  auto-watch-later sync [flags]     Run one sync pass
  auto-watch-later status           Show sync state and seen-set size
  auto-watch-later help             Show this help message

Examples:
  auto-watch-later auth
  auto-watch-later sync
  auto-watch-later sync --dry-run
  auto-watch-later sync --window 72h
  auto-watch-later sync --playlist PLxxxxxxxx

For help on specific command: auto-watch-later <command> -h
`)
}

// loadConfig loads configuration and builds the logger, exiting on failure.
func loadConfig() (*config.Config, zerolog.Logger) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	return cfg, log
}

func cmdSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "Report what would be queued without modifying the playlist")
	window := fs.Duration("window", 0, "Override the first-run sync window (e.g. 72h)")
	playlist := fs.String("playlist", "", "Override the target playlist ID")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: auto-watch-later sync [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	cfg, log := loadConfig()
	if *window > 0 {
		cfg.SyncWindow = *window
	}
	if *playlist != "" {
		cfg.PlaylistID = *playlist
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	auth := youtube.NewAuthenticator(cfg.ClientSecretsFile, cfg.TokenFile)
	ts, err := auth.TokenSource(ctx)
	if err != nil {
		if errors.Is(err, youtube.ErrTokenNotFound) {
			fmt.Fprintln(os.Stderr, "No cached credentials. Run 'auto-watch-later auth' first.")
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("load credentials")
	}

	client, err := youtube.NewClient(ctx, ts, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create youtube client")
	}
	client.Retry = retry.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		Multiplier:     cfg.BackoffMultiplier,
		JitterFraction: 0.2,
	}
	client.SetQuotaReserve(cfg.QuotaReserve)

	if err := client.CheckQuota(ctx); err != nil {
		if errors.Is(err, youtube.ErrQuotaExceeded) {
			fmt.Fprintln(os.Stderr, "API quota exhausted. The quota resets at midnight Pacific Time; try again then.")
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("quota check")
	}

	playlistID := cfg.PlaylistID
	if playlistID == "" {
		if *dryRun {
			// A dry run must not create anything.
			playlistID, err = client.FindPlaylist(ctx, cfg.PlaylistTitle)
			if err != nil {
				log.Fatal().Err(err).Msg("find target playlist")
			}
			if playlistID == "" {
				fmt.Printf("Dry run: playlist %q does not exist and would be created.\n", cfg.PlaylistTitle)
			}
		} else {
			playlistID, err = client.EnsurePlaylist(ctx, cfg.PlaylistTitle)
			if err != nil {
				log.Fatal().Err(err).Msg("find or create target playlist")
			}
		}
	}

	store, err := storage.NewJSONStore(cfg.StateFile)
	if err != nil {
		log.Fatal().Err(err).Msg("open state store")
	}
	defer store.Close()

	syncer := youtube.NewSyncer(client, store, playlistID, log)
	syncer.Window = cfg.SyncWindow
	syncer.MaxPerChannel = cfg.MaxPerChannel
	syncer.DryRun = *dryRun

	report, err := syncer.Sync(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("sync failed")
	}

	fmt.Printf("Queued %d videos, skipped %d already seen", report.Added, report.Skipped)
	if len(report.Errors) > 0 {
		fmt.Printf(", %d errors", len(report.Errors))
	}
	fmt.Println(".")

	for _, e := range report.Errors {
		fmt.Fprintf(os.Stderr, "  error: %v\n", e)
	}
	if report.Unprocessed > 0 {
		fmt.Fprintf(os.Stderr, "Partial run: %d channels not processed. They will be retried on the next sync.\n", report.Unprocessed)
		os.Exit(1)
	}
}

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: auto-watch-later status\n")
	}
	fs.Parse(args)

	cfg, log := loadConfig()

	store, err := storage.NewJSONStore(cfg.StateFile)
	if err != nil {
		log.Fatal().Err(err).Msg("open state store")
	}
	defer store.Close()

	ctx := context.Background()

	count, err := store.SeenCount(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("read seen set")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "State file:\t%s\n", cfg.StateFile)
	fmt.Fprintf(w, "Seen videos:\t%d\n", count)

	state, err := store.GetSyncState(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fmt.Fprintf(w, "Last sync:\tnever\n")
	case err != nil:
		log.Fatal().Err(err).Msg("read sync state")
	default:
		fmt.Fprintf(w, "Last sync:\t%s\n", state.LastSyncAt.Format(time.RFC3339))
		fmt.Fprintf(w, "Last run:\t%s (%s)\n", state.LastRunAt.Format(time.RFC3339), state.LastRunID)
		fmt.Fprintf(w, "Completed runs:\t%d\n", state.Runs)
		fmt.Fprintf(w, "Videos queued:\t%d\n", state.VideosQueued)
		if state.LastError != "" {
			fmt.Fprintf(w, "Last error:\t%s\n", state.LastError)
		}
	}
	w.Flush()
}

func cmdAuth(args []string) {
	fs := flag.NewFlagSet("auth", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: auto-watch-later auth\n")
	}
	fs.Parse(args)

	cfg, log := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	auth := youtube.NewAuthenticator(cfg.ClientSecretsFile, cfg.TokenFile)
	if err := auth.Authorize(ctx, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("authorization failed")
	}
}
