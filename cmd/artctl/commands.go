package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiranshivaraju/artscan/internal/ai"
	"github.com/kiranshivaraju/artscan/internal/analysis"
	"github.com/kiranshivaraju/artscan/internal/api/handler"
	"github.com/kiranshivaraju/artscan/internal/config"
	"github.com/kiranshivaraju/artscan/internal/livekit"
	"github.com/kiranshivaraju/artscan/internal/music"
	"github.com/kiranshivaraju/artscan/internal/prompts"
	"github.com/kiranshivaraju/artscan/internal/store"
	"github.com/kiranshivaraju/artscan/internal/tags"
	"github.com/kiranshivaraju/artscan/internal/wiki"
	"github.com/kiranshivaraju/artscan/pkg/models"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "artctl",
		Short:        "ArtScan operator tools",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(newMigrateCommand())
	root.AddCommand(newAnalyzeCommand())
	root.AddCommand(newTagsCommand())
	root.AddCommand(newLiveKitTokenCommand())
	return root
}

func newMigrateCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply all pending migrations to DATABASE_URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			if cfg.Database.URL == "" {
				return errors.New("DATABASE_URL is required")
			}
			if err := store.RunMigrations(cfg.Database.URL, dir); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "Directory holding the migration files")
	return cmd
}

func newAnalyzeCommand() *cobra.Command {
	var (
		mode      string
		withMusic bool
		withWiki  bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <image-path-or-url>",
		Short: "Analyze one image without saving it",
		Long: "Run the analysis pipeline against the configured vision provider and print the result as JSON.\n" +
			"Nothing is persisted. Music generation and encyclopedia enrichment are opt-in.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := models.ParseMode(mode)
			if err != nil {
				return err
			}
			cfg := config.FromEnv()

			in, err := imageInput(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			image, identity, err := handler.NewImageLoader(cfg.Vision.Timeout).Load(ctx, in)
			if err != nil {
				return err
			}

			provider, err := ai.NewProvider(cfg.Vision)
			if err != nil {
				return err
			}
			catalog := prompts.Default()

			opts := []analysis.Option{}
			if withWiki {
				opts = append(opts, analysis.WithEnricher(
					wiki.NewClient(cfg.Wiki.Lang, cfg.Wiki.Timeout, cfg.Wiki.CacheSize, cfg.Wiki.CacheTTL)))
			}
			if withMusic {
				client := music.NewHTTPClient(cfg.Music.BaseURL, cfg.Music.APIKey, cfg.Music.RequestTimeout)
				poller := music.NewPoller(client,
					music.WithMaxAttempts(cfg.Music.MaxPollAttempts),
					music.WithInterval(cfg.Music.PollInterval))
				opts = append(opts, analysis.WithMusic(music.NewGenerator(client, poller, catalog, music.Settings{
					Model:       cfg.Music.Model,
					AudioWeight: cfg.Music.AudioWeight,
					CallbackURL: cfg.Music.CallbackURL,
				}, nil)))
			}

			analyzer := analysis.NewAnalyzer(dryRunRecords{}, ai.NewExtractor(provider, catalog, cfg.Vision.Timeout), catalog, opts...)
			result, err := analyzer.Analyze(ctx, models.AnalysisRequest{ImageIdentity: identity, Mode: m, Image: image})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "Subject mode: museum, monuments or landscape")
	cmd.Flags().BoolVar(&withMusic, "music", false, "Generate background music")
	cmd.Flags().BoolVar(&withWiki, "wiki", false, "Enrich from the encyclopedia")
	_ = cmd.MarkFlagRequired("mode")
	return cmd
}

// imageInput reads a local file inline and leaves URLs to the loader.
// Local files keep their absolute file:// URI as identity.
func imageInput(arg string) (handler.ImageInput, error) {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return handler.ImageInput{ImageURI: arg}, nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return handler.ImageInput{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return handler.ImageInput{}, fmt.Errorf("read image: %w", err)
	}
	if len(data) > handler.MaxImageBytes {
		return handler.ImageInput{}, handler.ErrImageTooLarge
	}
	return handler.ImageInput{
		ImageURI:    "file://" + filepath.ToSlash(abs),
		ImageBase64: base64.StdEncoding.EncodeToString(data),
	}, nil
}

var errDryRun = errors.New("dry run, not persisted")

// dryRunRecords finds nothing and refuses to save.
type dryRunRecords struct{}

func (dryRunRecords) FindByImageIdentity(context.Context, string) (*models.ImageAnalysis, error) {
	return nil, store.ErrNotFound
}

func (dryRunRecords) FindByName(context.Context, string) (*models.ImageAnalysis, error) {
	return nil, store.ErrNotFound
}

func (dryRunRecords) CreateAnalysis(context.Context, *models.ImageAnalysis) error { return errDryRun }

func newTagsCommand() *cobra.Command {
	var (
		mode       string
		vocabulary bool
	)

	cmd := &cobra.Command{
		Use:   "tags --mode <mode> <text>",
		Short: "Derive mood tags from description text",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := models.ParseMode(mode)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if vocabulary {
				fmt.Fprintln(out, strings.Join(tags.Vocabulary(m), "\n"))
				return nil
			}
			if len(args) == 0 {
				return errors.New("text is required")
			}
			fmt.Fprintln(out, strings.Join(tags.Derive(strings.Join(args, " "), m), ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "Subject mode: museum, monuments or landscape")
	cmd.Flags().BoolVar(&vocabulary, "vocabulary", false, "List the mode's vocabulary instead")
	_ = cmd.MarkFlagRequired("mode")
	return cmd
}

func newLiveKitTokenCommand() *cobra.Command {
	var (
		room     string
		identity string
		agent    bool
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "livekit-token",
		Short: "Mint a LiveKit room token",
		Long:  "Mint a participant or agent token signed with LIVEKIT_API_KEY and LIVEKIT_API_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			if ttl <= 0 {
				ttl = cfg.LiveKit.TokenTTL
			}
			issuer := livekit.NewIssuer(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, ttl)

			var (
				token string
				err   error
			)
			if agent {
				token, err = issuer.AgentToken(room, identity)
			} else {
				token, err = issuer.ParticipantToken(room, identity, "")
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&room, "room", "", "Room name")
	cmd.Flags().StringVar(&identity, "identity", "", "Participant identity (defaults to Guest, or AIAgent with --agent)")
	cmd.Flags().BoolVar(&agent, "agent", false, "Mint an agent token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to LIVEKIT_TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("room")
	return cmd
}
