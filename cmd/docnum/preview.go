package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docnum/internal/pipeline"
	"github.com/dgallion1/docnum/internal/preview"
	"github.com/dgallion1/docnum/internal/xref"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
)

func sendCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <file>",
		Short: "Serve live preview of a document over a websocket",
		Long: `Number a document and serve it to live-preview clients on /ws. With
--watch the file is rebuilt and re-sent whenever it changes.

Example:
  docnum send report.md --addr :8091 --watch
  docnum watch ws://localhost:8091/ws`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			watch, _ := cmd.Flags().GetBool("watch")
			interval, _ := cmd.Flags().GetDuration("interval")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log := g.logger()

			hub := preview.NewHub(preview.HubOptions{
				PingInterval: g.cfg.PreviewPingInterval,
				WriteTimeout: g.cfg.PreviewWriteTimeout,
			}, log)
			go hub.Run(ctx)

			publish := func() error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("failed to read source: %w", err)
				}
				res, err := g.build(ctx, args[0])
				if err != nil {
					return err
				}
				msgs, err := preview.Messages(pipeline.ContentHashHex(data)[:16], res)
				if err != nil {
					return err
				}
				if err := hub.Publish(msgs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Published %s: %d sections, %d warnings\n", args[0], res.Outline.Len(), len(res.Warnings))
				return nil
			}
			if err := publish(); err != nil {
				return err
			}

			r := chi.NewRouter()
			r.Get("/ws", hub.ServeWS)
			srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			if watch {
				go watchFile(ctx, args[0], interval, func() {
					if err := publish(); err != nil {
						log.Error("rebuild failed", "file", args[0], "error", err)
					}
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Serving preview on ws://%s/ws\n", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("addr", "localhost:8091", "Listen address")
	cmd.Flags().Bool("watch", false, "Rebuild when the file changes")
	cmd.Flags().Duration("interval", time.Second, "How often --watch checks the file")
	return cmd
}

// watchFile calls fn whenever path's modification time changes.
func watchFile(ctx context.Context, path string, interval time.Duration, fn func()) {
	var last time.Time
	if st, err := os.Stat(path); err == nil {
		last = st.ModTime()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st, err := os.Stat(path)
			if err != nil || !st.ModTime().After(last) {
				continue
			}
			last = st.ModTime()
			fn()
		}
	}
}

// errCaughtUp ends watch --once after the first complete document.
var errCaughtUp = errors.New("document received")

func watchCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <ws-url>",
		Short: "Follow a live-preview feed and print numbers as sections arrive",
		Long: `Connect to a preview websocket, rebuild numbering from the manifest and
section messages as they arrive, and print each reference once its target
is known. Reconnects with backoff when the connection drops.

Example:
  docnum watch ws://localhost:8091/ws
  docnum watch ws://localhost:8090/ws --once`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			once, _ := cmd.Flags().GetBool("once")
			out := cmd.OutOrStdout()
			log := g.logger()

			session, err := preview.NewSession(preview.SessionOptions{Strategy: xref.Mode(g.strategy)}, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := &preview.Client{
				URL:          args[0],
				PingInterval: g.cfg.PreviewPingInterval,
				Log:          log,
				Handle: func(m preview.Message) error {
					switch m.Kind {
					case preview.KindManifest:
						fmt.Fprintf(out, "Document %s: %d sections\n", m.Manifest.DocID, len(m.Manifest.Sections))
					case preview.KindSection:
						fmt.Fprintf(out, "Section %s %s\n", m.Section.Number, m.Section.Title)
					}
					res, err := session.Apply(m)
					if err != nil {
						return err
					}
					for _, r := range res {
						if r.Resolved {
							fmt.Fprintf(out, "  %s -> %s\n", r.TargetSemanticID, r.ResolvedText)
						}
					}
					if m.Kind != preview.KindRefs {
						return nil
					}
					if len(res) > 0 {
						fmt.Fprintf(out, "%d references dangling\n", len(res))
						for _, r := range res {
							fmt.Fprintf(out, "  %s unresolved\n", r.TargetSemanticID)
						}
					}
					if once {
						return errCaughtUp
					}
					return nil
				},
			}

			err = client.Run(ctx)
			if errors.Is(err, errCaughtUp) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().Bool("once", false, "Exit after the first complete document")
	return cmd
}
