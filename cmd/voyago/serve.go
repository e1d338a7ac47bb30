package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"voyago/internal/agent"
	"voyago/internal/channels"
	"voyago/internal/config"
	"voyago/internal/gateway"
	"voyago/internal/trace"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		if serveAddr != "" {
			rt.cfg.Gateway.Addr = serveAddr
		}

		if rt.cfg.Trace.Enabled {
			shutdown, err := trace.Init(ctx, trace.Config{
				Endpoint: rt.cfg.Trace.Endpoint,
				URLPath:  rt.cfg.Trace.URLPath,
				APIKey:   rt.cfg.Trace.APIKey,
			})
			if err != nil {
				return fmt.Errorf("initializing tracing: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					slog.Warn("trace shutdown failed", "error", err)
				}
			}()
		}

		chs := buildChannels(rt.cfg, rt.runner)

		ttl := time.Duration(rt.cfg.Gateway.SessionTTLHours) * time.Hour
		srv := gateway.NewServer(rt.runner, rt.database, ttl, chs...)
		slog.Info("starting gateway", "addr", rt.cfg.Gateway.Addr, "channels", len(chs))
		return srv.ListenAndServe(ctx, rt.cfg.Gateway.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "override gateway listen address")
}

func buildChannels(cfg *config.Config, runner agent.Runner) []channels.Channel {
	var chs []channels.Channel
	for name, ch := range cfg.Channels {
		if !ch.Enabled {
			continue
		}
		switch ch.Type {
		case "telegram":
			var allowedUsers []int64
			if v, ok := ch.Settings["allowed_users"]; ok {
				for _, s := range strings.Split(v, ",") {
					if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
						allowedUsers = append(allowedUsers, id)
					}
				}
			}
			chs = append(chs, channels.NewTelegram(ch.Settings["bot_token"], allowedUsers, runner))
			slog.Info("channel registered", "name", name, "type", ch.Type)
		default:
			slog.Warn("unknown channel type", "name", name, "type", ch.Type)
		}
	}
	return chs
}
