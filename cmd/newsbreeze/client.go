package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrWong99/newsbreeze/internal/apiclient"
	"github.com/MrWong99/newsbreeze/internal/config"
	"github.com/MrWong99/newsbreeze/internal/playback"
)

var (
	flagServer       string
	flagJSON         bool
	flagAutoFallback bool
)

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Print the top headlines with their summaries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiclient.New(serverURL(cfg))
		if err != nil {
			return err
		}
		articles, message, err := client.News(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if flagJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(articles)
		}
		if len(articles) == 0 {
			fmt.Fprintln(out, dimStyle.Render(message))
			return nil
		}
		renderArticles(out, articles)
		return nil
	},
}

var speakCmd = &cobra.Command{
	Use:   "speak TEXT...",
	Short: "Read a text aloud through the server's text-to-speech",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ctrl, err := newController(cmd)
		if err != nil {
			return err
		}
		return ctrl.Play(ctx, "cli", strings.Join(args, " "))
	},
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Fetch the top headlines and read every summary aloud",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := apiclient.New(serverURL(cfg))
		if err != nil {
			return err
		}
		articles, message, err := client.News(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(articles) == 0 {
			fmt.Fprintln(out, dimStyle.Render(message))
			return nil
		}
		ctrl, err := newController(cmd)
		if err != nil {
			return err
		}
		for i, a := range articles {
			renderArticle(out, i+1, a)
			if err := ctrl.Play(ctx, a.ID, a.Summary); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("playback failed: "+err.Error()))
			}
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{newsCmd, speakCmd, listenCmd} {
		c.Flags().StringVar(&flagServer, "server", "", "NewsBreeze server URL (default: server.api_url or the local listen address)")
	}
	newsCmd.Flags().BoolVar(&flagJSON, "json", false, "print the articles as JSON")
	for _, c := range []*cobra.Command{speakCmd, listenCmd} {
		c.Flags().BoolVar(&flagAutoFallback, "auto-fallback", false, "use local speech without asking when the server has no audio")
	}
}

// serverURL picks the API root: --server, then server.api_url, then the
// local listen address.
func serverURL(cfg *config.Config) string {
	if flagServer != "" {
		return flagServer
	}
	if cfg.Server.APIURL != "" {
		return cfg.Server.APIURL
	}
	addr := cfg.Server.ListenAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

// newController wires the playback controller to the server and to the
// local audio tools that are installed.
func newController(cmd *cobra.Command) (*playback.Controller, error) {
	client, err := apiclient.New(serverURL(cfg))
	if err != nil {
		return nil, err
	}

	errOut := cmd.ErrOrStderr()
	ctrlOpts := []playback.Option{
		playback.WithMinAudioBytes(cfg.TTS.MinAudioBytes),
		playback.WithAutoFallback(flagAutoFallback),
		playback.WithPrompter(&playback.LinePrompter{In: cmd.InOrStdin(), Out: errOut}),
		playback.WithObserver(func(t playback.Transition) { renderTransition(errOut, t) }),
	}
	if speaker, err := playback.NewSystemSpeaker(); err != nil {
		slog.Debug("local speech unavailable", "err", err)
	} else {
		ctrlOpts = append(ctrlOpts, playback.WithSpeaker(speaker))
	}

	var player playback.AudioPlayer
	if p, err := playback.NewSystemPlayer(); err != nil {
		slog.Debug("audio player unavailable", "err", err)
		player = missingPlayer{err: err}
	} else {
		player = p
	}
	return playback.NewController(client, player, ctrlOpts...), nil
}

// missingPlayer fails every Play call so the controller falls back to speech.
type missingPlayer struct{ err error }

func (m missingPlayer) Play(context.Context, []byte) error { return m.err }

func renderTransition(w io.Writer, t playback.Transition) {
	switch t.State {
	case playback.Requesting:
		fmt.Fprintln(w, dimStyle.Render("♪ generating audio…"))
	case playback.Playing:
		fmt.Fprintln(w, accentStyle.Render("♪ playing"))
	case playback.FallbackPlaying:
		fmt.Fprintln(w, accentStyle.Render("♪ speaking with the system voice"))
	case playback.Failed:
		fmt.Fprintln(w, errorStyle.Render("✗ "+t.Reason))
	}
}
