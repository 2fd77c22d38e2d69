package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/marquee/marquee/internal/interaction"
	"github.com/marquee/marquee/internal/player"
	"github.com/marquee/marquee/internal/realtime"
	"github.com/marquee/marquee/internal/startup"
)

const watchHelp = `Commands:
  click              single click toggles play, double click toggles fullscreen
  play | pause       toggle playback
  retry              retry a blocked playback attempt
  mute               toggle mute
  fullscreen         toggle fullscreen
  seek <0..1>        jump to a fraction of the movie
  react <kind>       send a reaction (happy, sad, angry, surprised, neutral)
  status             show the player state
  quit               leave the player`

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var failures int
	var noRealtime bool

	cmd := &cobra.Command{
		Use:   "watch <imdb-id>",
		Short: "Open a simulated player with live reactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log := ctx.logger().Logger
			movieID := args[0]

			svc, _, err := ctx.metadataService()
			if err != nil {
				return err
			}

			out := &syncWriter{w: cmd.OutOrStdout()}
			if movie, ok := svc.FetchDetail(cmd.Context(), movieID); ok {
				fmt.Fprintf(out, "Now playing: %s (%s)\n", movie.Title, movie.Year)
			} else {
				fmt.Fprintf(out, "Now playing: %s\n", movieID)
			}

			var channel player.Channel
			if !noRealtime {
				dial, err := realtime.NewDialer(cfg.Realtime)
				if err != nil {
					return err
				}
				channel = realtime.NewChannel(dial, log, realtime.WithRetry(startup.DefaultRetryConfig()))
			}

			repl := newWatchREPL(cmd.Context(), player.NewSimulatedMedia(failures), channel, out, log,
				player.WithMovieID(movieID),
				player.WithOverlayDuration(cfg.Realtime.OverlayDuration),
			)
			defer repl.close()

			if err := repl.session.Start(cmd.Context()); err != nil {
				return err
			}
			repl.printState()
			fmt.Fprintln(out, "Type 'help' for commands.")

			return repl.run(cmd.Context(), cmd.InOrStdin())
		},
	}

	cmd.Flags().IntVar(&failures, "fail", 0, "Refuse the first N play attempts, as an autoplay block would")
	cmd.Flags().BoolVar(&noRealtime, "no-realtime", false, "Do not connect to the reaction channel")
	return cmd
}

// syncWriter serializes writes from the prompt loop and the timer goroutines
// that fire overlay and single-click callbacks.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type watchREPL struct {
	session    *player.Session
	classifier *interaction.Classifier
	out        io.Writer
}

func newWatchREPL(ctx context.Context, media player.Media, channel player.Channel, out io.Writer, log zerolog.Logger, opts ...player.Option) *watchREPL {
	w := &watchREPL{out: out}

	opts = append(opts, player.WithOverlayListener(func(o player.Overlay, showing bool) {
		if showing {
			fmt.Fprintf(w.out, "[reaction] %s\n", o.Kind)
		} else {
			fmt.Fprintln(w.out, "[reaction cleared]")
		}
	}))
	w.session = player.NewSession(media, channel, log, opts...)

	w.classifier = interaction.NewClassifier(
		interaction.OnSingle(func() { w.togglePlay(ctx) }),
		interaction.OnDouble(func() {
			fmt.Fprintf(w.out, "fullscreen: %s\n", yesNo(w.session.ToggleFullscreen()))
		}),
	)
	return w
}

func (w *watchREPL) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		quit, err := w.exec(ctx, scanner.Text())
		if err != nil {
			fmt.Fprintf(w.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// exec runs one command line. It reports whether the user asked to leave.
func (w *watchREPL) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		fmt.Fprintln(w.out, watchHelp)
	case "click":
		w.classifier.Click()
	case "play", "pause", "toggle":
		w.togglePlay(ctx)
	case "retry":
		if err := w.session.Retry(ctx); err != nil {
			return false, err
		}
		w.printState()
	case "mute":
		fmt.Fprintf(w.out, "muted: %s\n", yesNo(w.session.ToggleMute()))
	case "fullscreen", "fs":
		fmt.Fprintf(w.out, "fullscreen: %s\n", yesNo(w.session.ToggleFullscreen()))
	case "seek":
		if len(args) != 1 {
			return false, errors.New("usage: seek <0..1>")
		}
		fraction, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return false, fmt.Errorf("invalid position %q", args[0])
		}
		w.session.Seek(fraction)
		fmt.Fprintf(w.out, "progress: %.0f%%\n", w.session.Snapshot().Progress)
	case "react":
		if len(args) != 1 {
			return false, errors.New("usage: react <kind>")
		}
		kind, err := realtime.ParseKind(args[0])
		if err != nil {
			return false, err
		}
		if err := w.session.React(ctx, kind); err != nil {
			return false, err
		}
	case "status":
		w.printState()
	default:
		return false, fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
	return false, nil
}

func (w *watchREPL) togglePlay(ctx context.Context) {
	if err := w.session.TogglePlay(ctx); err != nil {
		fmt.Fprintf(w.out, "error: %v\n", err)
	}
	w.printState()
}

func (w *watchREPL) printState() {
	snap := w.session.Snapshot()
	line := fmt.Sprintf("state: %s  progress: %.0f%%  muted: %s  fullscreen: %s  reactions: %s",
		snap.State, snap.Progress, yesNo(snap.Muted), yesNo(snap.Fullscreen), yesNo(snap.Realtime))
	if snap.LastError != "" {
		line += fmt.Sprintf("\nplayback failed: %s", snap.LastError)
		if snap.CanRetry {
			line += " (type 'retry')"
		}
	}
	fmt.Fprintln(w.out, line)
}

func (w *watchREPL) close() {
	w.classifier.Stop()
	_ = w.session.Close()
}
