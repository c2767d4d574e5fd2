package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"kitty-services/kittylog"
	"kitty-services/notify"
	"kitty-services/registry"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ninja-software/log_helpers"
	"github.com/ninja-syndicate/ws"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	chitrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/go-chi/chi.v5"
)

// API server
type API struct {
	Log      *zerolog.Logger
	Addr     string
	Registry *registry.Registry
	// Sink receives the event of every successful operation
	Sink notify.Sink
	// Events serves the event history, nil when none is kept
	Events notify.Log
	// Check reports whether the backing store is healthy
	Check func(ctx context.Context) error
}

var wsInit sync.Once

// NewAPI registers routes
func NewAPI(
	log *zerolog.Logger,
	addr string,
	reg *registry.Registry,
	sink notify.Sink,
	events notify.Log,
	check func(ctx context.Context) error,
	environment string,
) (*API, chi.Router) {
	api := &API{
		Log:      log_helpers.NamedLogger(log, "api"),
		Addr:     addr,
		Registry: reg,
		Sink:     sink,
		Events:   events,
		Check:    check,
	}

	r := chi.NewRouter()
	r.Use(cors.New(
		cors.Options{
			AllowedOrigins:   []string{"https://*", "http://*"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(kittylog.ChiLogger(zerolog.InfoLevel))

	wsInit.Do(func() {
		ws.Init(&ws.Config{
			Logger:        kittylog.L,
			SkipRateLimit: environment == "staging" || environment == "development",
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if environment != "development" {
				r.Use(chitrace.Middleware(chitrace.WithServiceName("kitties")))
			}

			sentryHandler := sentryhttp.New(sentryhttp.Options{})
			r.Use(sentryHandler.Handle)

			r.Get("/check", WithError(api.CheckHandler))
			r.Get("/events", WithError(api.EventsHandler))

			r.Route("/kitties", func(r chi.Router) {
				r.Get("/", WithError(api.KittiesCountHandler))
				r.Post("/", WithError(WithAccount(api.KittyCreateHandler)))
				r.Post("/breed", WithError(WithAccount(api.KittyBreedHandler)))
				r.Get("/{kitty_id}", WithError(api.KittyGetHandler))
				r.Post("/{kitty_id}/transfer", WithError(WithAccount(api.KittyTransferHandler)))
				r.Post("/{kitty_id}/sale", WithError(WithAccount(api.KittyListHandler)))
				r.Post("/{kitty_id}/buy", WithError(WithAccount(api.KittyBuyHandler)))
			})
			r.Route("/accounts/{account_id}", func(r chi.Router) {
				r.Get("/kitties", WithError(api.AccountKittiesHandler))
				r.Get("/balance", WithError(api.AccountBalanceHandler))
			})
		})

		// websockets are long-lived, so the sentry performance tracer stays off this route
		r.Route("/ws", func(r chi.Router) {
			r.Use(ws.TrimPrefix("/api/ws"))
			r.Mount("/public", ws.NewServer(func(s *ws.Server) {
				s.WS("/kitties", notify.HubKeyKittyEvents, api.KittyEventsSubscribeHandler)
				s.WS("/kitty/*", notify.HubKeyKittySubscribe, api.KittySubscribeHandler)
				s.WS("/account/*", notify.HubKeyAccountKittiesSubscribe, api.AccountKittiesSubscribeHandler)
			}))
		})
	})

	return api, r
}

// Run serves handler on api.Addr until ctx is cancelled
func (api *API) Run(ctx context.Context, handler http.Handler) error {
	api.Log.Info().Str("addr", api.Addr).Msg("Starting API")

	server := &http.Server{
		Addr:              api.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		api.Log.Info().Msg("Stopping API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			api.Log.Err(err).Msg("api shutdown")
		}
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
