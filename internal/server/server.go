// Package server wires the Keepsake HTTP surface: routes, middleware, and
// lifecycle management for the local API the UI shell talks to.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/keepsake-app/keepsake/internal/config"
	"github.com/keepsake-app/keepsake/internal/importer"
	"github.com/keepsake-app/keepsake/internal/services"
	"github.com/keepsake-app/keepsake/web/handlers"
)

// Start builds the router, binds the listener, and serves until ctx is
// cancelled. It returns the bound address (so port 0 works in tests) and
// the websocket hub for wiring capture event broadcasts.
func Start(ctx context.Context, cfg *config.Config, service *services.CaptureService, imp *importer.Importer) (string, *handlers.WebSocketHub, error) {
	mux := http.NewServeMux()

	wsHub := handlers.NewWebSocketHub(cfg.Server.Port)
	go wsHub.Run()

	// 10 req/sec sustained, bursts of 20: generous for a single local UI.
	rateLimiter := handlers.NewRateLimiter(10.0, 20)

	if !cfg.Features.EnableImport {
		imp = nil
	}
	api := handlers.NewAPIHandlers(service, cfg, imp)

	apiMux := http.NewServeMux()
	if cfg.Features.EnableREST {
		apiMux.HandleFunc("/api/memories", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				api.ListMemories(w, r)
			case http.MethodPost:
				api.CreateMemory(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})
		apiMux.HandleFunc("/api/memories/{id}", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				api.GetMemory(w, r)
			case http.MethodPatch:
				api.UpdateMemory(w, r)
			case http.MethodDelete:
				api.DeleteMemory(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})
		apiMux.HandleFunc("POST /api/memories/{id}/view", api.RecordView)

		apiMux.HandleFunc("GET /api/timeline", api.Timeline)
		apiMux.HandleFunc("GET /api/timeline/focus", api.FocusTimeline)
		apiMux.HandleFunc("GET /api/suggestions", api.Suggestions)
		apiMux.HandleFunc("GET /api/stats", api.Stats)

		apiMux.HandleFunc("/api/goals", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				api.ListGoals(w, r)
			case http.MethodPost:
				api.CreateGoal(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})
		// Method-qualified so the patterns cannot overlap with
		// DELETE /api/goals/{id} ({id} also matches "active").
		apiMux.HandleFunc("GET /api/goals/active", api.GetActiveGoal)
		apiMux.HandleFunc("PUT /api/goals/active", api.SetActiveGoal)
		apiMux.HandleFunc("DELETE /api/goals/{id}", api.DeleteGoal)

		apiMux.HandleFunc("/api/preferences", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				api.GetPreferences(w, r)
			case http.MethodPatch:
				api.UpdatePreferences(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})

		apiMux.HandleFunc("POST /api/import/markdown", api.ImportMarkdown)
	}

	// Health endpoint stays outside auth: monitoring should not need a token.
	mux.HandleFunc("GET /api/health", api.Health)

	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))

	// Origin validation stands in for auth on the websocket endpoint.
	if cfg.Features.EnableWebsocket {
		mux.Handle("/ws", wsHub)
	}

	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = handlers.SecurityHeaders(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("server: listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("server: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server: shutdown: %v", err)
		}
		wsHub.Stop()
	}()

	log.Printf("server: listening on %s", actualAddr)
	return actualAddr, wsHub, nil
}
