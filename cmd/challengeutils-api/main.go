// Command challengeutils-api serves the annotation engine over HTTP
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"challengeutils/internal/adapters/synapse"
	"challengeutils/internal/platform/config"
	"challengeutils/internal/platform/logger"
	phttp "challengeutils/internal/platform/net/http"
	"challengeutils/internal/platform/net/middleware"
	"challengeutils/internal/platform/store"
	apihttp "challengeutils/internal/services/api/http"
	"challengeutils/internal/services/submissions/domain"
	"challengeutils/internal/services/submissions/repo"
	subsvc "challengeutils/internal/services/submissions/service"
	teamsvc "challengeutils/internal/services/teams/service"
)

func main() {
	root := config.New()
	apiCfg := root.Prefix("API_")
	synCfg := root.Prefix("SYNAPSE_")
	dbCfg := root.Prefix("SERVICE_PGSQL_")

	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := synapse.NewClient(synapse.Options{
		BaseURL:   synCfg.MayString("BASE_URL", ""),
		AuthToken: synCfg.MustString("AUTH_TOKEN"),
	})

	// the audit journal is optional; no DBURL means no journaling
	var audit domain.AuditPort
	if url := dbCfg.MayString("DBURL", ""); url != "" {
		st, err := store.Open(ctx, store.Config{
			URL:      url,
			MaxConns: int32(dbCfg.MayInt("MAX_CONNS", 4)),
			SlowMs:   dbCfg.MayInt("SLOW_MS", 500),
		})
		if err != nil {
			l.Panic().Err(err).Msg("store.Open failed")
		}
		defer st.Close()

		journal := repo.NewPG(st)
		if err := journal.EnsureSchema(ctx); err != nil {
			l.Panic().Err(err).Msg("audit schema failed")
		}
		audit = journal
	}

	engine := subsvc.New(client, audit)
	teams := teamsvc.New(client)
	handlers := apihttp.New(engine, engine, teams)

	srv := phttp.NewServer(apiCfg, func(m *chi.Mux) {
		m.Use(middleware.RequestID)
		m.Use(middleware.RecoverJSON)
		m.Use(middleware.AccessLog(middleware.AccessLogOptions{Slow: time.Second}))
		m.Use(cors.Handler(cors.Options{
			AllowedOrigins: apiCfg.MayCSV("CORS_ORIGINS", []string{"*"}),
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
		handlers.Mount(m)
	})

	if err := srv.Run(ctx); err != nil {
		l.Fatal().Err(err).Msg("http server stopped")
	}
}
