package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/marquee/marquee/internal/availability"
	"github.com/marquee/marquee/internal/config"
	"github.com/marquee/marquee/internal/database"
	"github.com/marquee/marquee/internal/health"
	"github.com/marquee/marquee/internal/realtime"
	"github.com/marquee/marquee/internal/websocket"
)

// registerHealthChecks wires the server's dependencies into svc. store is nil
// when responses are only cached in memory.
func registerHealthChecks(svc *health.Service, cfg *config.Config, monitor *availability.Monitor, hub *websocket.Hub, store *database.DB) error {
	providerName := "OMDb"
	if cfg.OMDB.Offline {
		providerName = "OMDb (offline catalog)"
	}
	svc.RegisterCheck(health.CategoryMetadata, "omdb", providerName, func(context.Context) error {
		st := monitor.Status()
		if st.ShowBanner() {
			return health.Warning("provider unavailable, serving fallback titles")
		}
		return nil
	})

	svc.RegisterCheck(health.CategoryRealtime, "relay", "Reaction Relay", func(context.Context) error {
		if hub.Stopped() {
			return errors.New("relay stopped")
		}
		return nil
	})

	if cfg.Realtime.Transport == "amqp" {
		dial, err := realtime.NewDialer(cfg.Realtime)
		if err != nil {
			return err
		}
		svc.RegisterCheck(health.CategoryRealtime, "broker", "Reaction Broker", func(ctx context.Context) error {
			t, err := dial(ctx)
			if err != nil {
				return fmt.Errorf("broker unreachable: %w", err)
			}
			return t.Close()
		})
	}

	if store != nil {
		responses := database.NewResponseStore(store)
		svc.RegisterCheck(health.CategoryStorage, "responses", "Response Store", func(ctx context.Context) error {
			if err := store.Conn().PingContext(ctx); err != nil {
				return err
			}
			if _, err := responses.Count(ctx); err != nil {
				return fmt.Errorf("query response store: %w", err)
			}
			return nil
		})
	}

	return nil
}
