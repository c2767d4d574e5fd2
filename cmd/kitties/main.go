package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"kitty-services/api"
	"kitty-services/db"
	"kitty-services/genome"
	"kitty-services/kittylog"
	"kitty-services/memstore"
	"kitty-services/notify"
	"kitty-services/registry"
	"kitty-services/store"
	"kitty-services/types"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/ninja-software/log_helpers"
	"github.com/ninja-software/terror/v2"
	"github.com/oklog/run"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
	"gopkg.in/DataDog/dd-trace-go.v1/profiler"
)

// Variable passed in at compile time using `-ldflags`
var (
	Version          string // -X main.Version=$(git describe --tags --abbrev=0)
	GitHash          string // -X main.GitHash=$(git rev-parse HEAD)
	GitBranch        string // -X main.GitBranch=$(git rev-parse --abbrev-ref HEAD)
	BuildDate        string // -X main.BuildDate=$(date -u +%Y%m%d%H%M%S)
	UnCommittedFiles string // -X main.UnCommittedFiles=$(git status --porcelain | wc -l)"
)

const SentryReleasePrefix = "kitty_services-api"
const envPrefix = "KITTIES"

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

var databaseFlags = []cli.Flag{
	&cli.StringFlag{Name: "database_user", Value: "kitties", EnvVars: []string{envPrefix + "_DATABASE_USER", "DATABASE_USER"}, Usage: "The database user"},
	&cli.StringFlag{Name: "database_pass", Value: "dev", EnvVars: []string{envPrefix + "_DATABASE_PASS", "DATABASE_PASS"}, Usage: "The database pass"},
	&cli.StringFlag{Name: "database_host", Value: "localhost", EnvVars: []string{envPrefix + "_DATABASE_HOST", "DATABASE_HOST"}, Usage: "The database host"},
	&cli.StringFlag{Name: "database_port", Value: "5432", EnvVars: []string{envPrefix + "_DATABASE_PORT", "DATABASE_PORT"}, Usage: "The database port"},
	&cli.StringFlag{Name: "database_name", Value: "kitties", EnvVars: []string{envPrefix + "_DATABASE_NAME", "DATABASE_NAME"}, Usage: "The database name"},
	&cli.StringFlag{Name: "database_application_name", Value: "API Server", EnvVars: []string{envPrefix + "_DATABASE_APPLICATION_NAME"}, Usage: "Postgres database name"},
	&cli.IntFlag{Name: "database_max_conns", Value: 20, EnvVars: []string{envPrefix + "_DATABASE_MAX_CONNS"}, Usage: "Database max pool connections"},
	&cli.IntFlag{Name: "database_connect_attempts", Value: 5, EnvVars: []string{envPrefix + "_DATABASE_CONNECT_ATTEMPTS"}, Usage: "Database connection attempts before giving up"},
}

var logFlags = []cli.Flag{
	&cli.StringFlag{Name: "environment", Value: "development", DefaultText: "development", EnvVars: []string{envPrefix + "_ENVIRONMENT", "ENVIRONMENT"}, Usage: "This program environment (development, testing, staging, production), it sets the log levels"},
	&cli.StringFlag{Name: "log_level", Value: "DebugLevel", EnvVars: []string{envPrefix + "_LOG_LEVEL"}, Usage: "Set the log level for zerolog (Options: PanicLevel, FatalLevel, ErrorLevel, WarnLevel, InfoLevel, DebugLevel, TraceLevel"},
}

func main() {
	app := &cli.App{
		Compiled: time.Now(),
		Usage:    "Run the kitties server or database administration commands",
		Flags:    []cli.Flag{},
		Commands: []*cli.Command{
			{
				// This is not using the built in version so ansible can more easily read the version
				Name: "version",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "full", Usage: "Prints full version and build info", Value: false},
				},
				Action: func(c *cli.Context) error {
					if c.Bool("full") {
						fmt.Printf("Version=%s\n", Version)
						fmt.Printf("Commit=%s\n", GitHash)
						fmt.Printf("Branch=%s\n", GitBranch)
						fmt.Printf("BuildDate=%s\n", BuildDate)
						fmt.Printf("WorkingCopyState=%s uncommitted\n", UnCommittedFiles)
						return nil
					}
					fmt.Printf("%s-\n", Version)
					return nil
				},
			},
			{
				Name:    "serve",
				Aliases: []string{"s"},
				Flags: append(append([]cli.Flag{
					&cli.StringFlag{Name: "store", Value: StoreMemory, EnvVars: []string{envPrefix + "_STORE"}, Usage: "Where registry state is kept (memory, postgres)"},
					&cli.BoolFlag{Name: "migrate", Value: true, EnvVars: []string{envPrefix + "_MIGRATE"}, Usage: "Apply database migrations on start when using postgres"},

					&cli.StringFlag{Name: "reserve_amount", Value: "1000", EnvVars: []string{envPrefix + "_RESERVE_AMOUNT"}, Usage: "Bond reserved from the owner of every kitty"},
					&cli.Uint64Flag{Name: "max_kitty_index", Value: uint64(types.MaxKittyIndex), EnvVars: []string{envPrefix + "_MAX_KITTY_INDEX"}, Usage: "Upper bound of the kitty identifier counter"},
					&cli.StringFlag{Name: "existential_deposit", Value: "1", EnvVars: []string{envPrefix + "_EXISTENTIAL_DEPOSIT"}, Usage: "Smallest balance an account may hold"},
					&cli.BoolFlag{Name: "clear_listing_on_transfer", Value: false, EnvVars: []string{envPrefix + "_CLEAR_LISTING_ON_TRANSFER"}, Usage: "Withdraw open listings when a kitty is transferred"},
					&cli.BoolFlag{Name: "require_parent_ownership", Value: false, EnvVars: []string{envPrefix + "_REQUIRE_PARENT_OWNERSHIP"}, Usage: "Only allow breeding kitties the caller owns"},

					&cli.StringFlag{Name: "api_addr", Value: ":8090", EnvVars: []string{envPrefix + "_API_ADDR", "API_ADDR"}, Usage: "host:port to run the API"},

					&cli.StringFlag{Name: "sentry_dsn_backend", Value: "", EnvVars: []string{envPrefix + "_SENTRY_DSN_BACKEND", "SENTRY_DSN_BACKEND"}, Usage: "Sends error to remote server. If set, it will send error."},
					&cli.StringFlag{Name: "sentry_server_name", Value: "dev-pc", EnvVars: []string{envPrefix + "_SENTRY_SERVER_NAME", "SENTRY_SERVER_NAME"}, Usage: "The machine name that this program is running on."},
					&cli.Float64Flag{Name: "sentry_sample_rate", Value: 1, EnvVars: []string{envPrefix + "_SENTRY_SAMPLE_RATE", "SENTRY_SAMPLE_RATE"}, Usage: "The percentage of trace sample to collect (0.0-1)"},

					&cli.BoolFlag{Name: "pprof_datadog", Value: false, EnvVars: []string{envPrefix + "_PPROF_DATADOG"}, Usage: "Use datadog pprof to collect debug info"},
					&cli.DurationFlag{Name: "pprof_datadog_interval_sec", Value: 60, EnvVars: []string{envPrefix + "_PPROF_DATADOG_INTERVAL_SEC"}, Usage: "Specifies the period at which profiles will be collected"},
				}, databaseFlags...), logFlags...),
				Usage: "run server",
				Action: func(c *cli.Context) error {
					ctx, cancel := context.WithCancel(c.Context)
					environment := c.String("environment")
					log := kittylog.New(environment, c.String("log_level"))

					if environment != kittylog.Development {
						tracer.Start(
							tracer.WithEnv(environment),
							tracer.WithService(envPrefix),
							tracer.WithServiceVersion(Version),
							tracer.WithLogger(kittylog.DatadogLog{L: kittylog.L}), // configure before profiler so profiler will use this logger
						)
						defer tracer.Stop()

						if c.Bool("pprof_datadog") {
							err := profiler.Start(
								profiler.WithService(envPrefix),
								profiler.WithVersion(Version),
								profiler.WithEnv(environment),
								profiler.WithPeriod(c.Duration("pprof_datadog_interval_sec")*time.Second),
								profiler.WithProfileTypes(profiler.CPUProfile, profiler.HeapProfile, profiler.MutexProfile),
							)
							if err != nil {
								log.Error().Err(err).Msg("Failed to start Datadog Profiler")
							}
							defer profiler.Stop()
						}
					}

					g := &run.Group{}
					// Listen for os.interrupt
					g.Add(run.SignalHandler(ctx, os.Interrupt))
					// start the server
					g.Add(func() error { return ServeFunc(ctx, c, log) }, func(err error) { cancel() })

					err := g.Run()
					if errors.Is(err, run.SignalError{Signal: os.Interrupt}) {
						err = terror.Warn(err)
					}
					log_helpers.TerrorEcho(ctx, err, log)
					return nil
				},
			},
			{
				Name:  "migrate",
				Flags: append(append([]cli.Flag{}, databaseFlags...), logFlags...),
				Usage: "apply database migrations",
				Action: func(c *cli.Context) error {
					log := log_helpers.LoggerInitZero(c.String("environment"), c.String("log_level"))
					return db.Migrate(connString(c), log)
				},
			},
			{
				Name: "endow",
				Flags: append(append([]cli.Flag{
					&cli.StringFlag{Name: "account", Required: true, Usage: "Account to credit"},
					&cli.StringFlag{Name: "amount", Required: true, Usage: "Amount to add to the free balance"},
					&cli.StringFlag{Name: "existential_deposit", Value: "1", EnvVars: []string{envPrefix + "_EXISTENTIAL_DEPOSIT"}, Usage: "Smallest balance an account may hold"},
				}, databaseFlags...), logFlags...),
				Usage: "credit an account stored in postgres",
				Action: func(c *cli.Context) error {
					log := log_helpers.LoggerInitZero(c.String("environment"), c.String("log_level"))
					account, err := types.AccountIDFromString(c.String("account"))
					if err != nil {
						return terror.Error(err, "invalid account")
					}
					amount, err := decimal.NewFromString(c.String("amount"))
					if err != nil {
						return terror.Error(err, "invalid amount")
					}
					config, err := registryConfig(c)
					if err != nil {
						return err
					}

					pool, err := connect(c.Context, c, log)
					if err != nil {
						return err
					}
					defer pool.Close()

					reg := registry.New(db.NewStore(pool), genome.NewCryptoEntropy(), config, registry.WithLogger(log))
					return reg.Endow(c.Context, account, amount)
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		terror.Echo(err)
		os.Exit(1) // so ci knows it no good
	}
}

func connString(c *cli.Context) string {
	return db.ConnString(
		c.String("database_user"),
		c.String("database_pass"),
		c.String("database_host"),
		c.String("database_port"),
		c.String("database_name"),
		c.String("database_application_name"),
		Version,
	)
}

func connect(ctx context.Context, c *cli.Context, log *zerolog.Logger) (*pgxpool.Pool, error) {
	return db.Connect(ctx, connString(c), int32(c.Int("database_max_conns")), c.Int("database_connect_attempts"), log)
}

// registryConfig reads the registry settings, falling back to the defaults
// for flags a command does not define
func registryConfig(c *cli.Context) (*types.Config, error) {
	config := types.DefaultConfig()
	if c.String("reserve_amount") != "" {
		reserve, err := decimal.NewFromString(c.String("reserve_amount"))
		if err != nil {
			return nil, terror.Error(err, "invalid reserve amount")
		}
		config.ReserveAmount = reserve
	}
	if c.String("existential_deposit") != "" {
		ed, err := decimal.NewFromString(c.String("existential_deposit"))
		if err != nil {
			return nil, terror.Error(err, "invalid existential deposit")
		}
		config.ExistentialDeposit = ed
	}
	if maxIndex := c.Uint64("max_kitty_index"); maxIndex > 0 {
		if maxIndex > uint64(types.MaxKittyIndex) {
			return nil, terror.Error(fmt.Errorf("max kitty index %d out of range", maxIndex), "invalid max kitty index")
		}
		config.MaxKittyIndex = types.KittyIndex(maxIndex)
	}
	config.ClearListingOnTransfer = c.Bool("clear_listing_on_transfer")
	config.RequireParentOwnership = c.Bool("require_parent_ownership")

	if config.ReserveAmount.IsNegative() || config.ExistentialDeposit.IsNegative() {
		return nil, terror.Error(fmt.Errorf("negative amount in config"), "reserve amount and existential deposit must not be negative")
	}
	return config, nil
}

func ServeFunc(ctx context.Context, ctxCLI *cli.Context, log *zerolog.Logger) error {
	environment := ctxCLI.String("environment")
	sentryDSNBackend := ctxCLI.String("sentry_dsn_backend")
	sentryServerName := ctxCLI.String("sentry_server_name")
	sentryTraceRate := ctxCLI.Float64("sentry_sample_rate")
	sentryRelease := fmt.Sprintf("%s@%s", SentryReleasePrefix, Version)
	err := kittylog.SentryInit(sentryDSNBackend, sentryServerName, sentryRelease, environment, sentryTraceRate, log)
	switch errors.Unwrap(err) {
	case kittylog.ErrSentryInitEnvironment:
		return terror.Error(err, fmt.Sprintf("got environment %s", environment))
	case kittylog.ErrSentryInitDSN, kittylog.ErrSentryInitVersion:
		if terror.GetLevel(err) == terror.ErrLevelPanic {
			// if the level is panic then in a prod environment
			// so keep panicing
			return terror.Panic(err)
		}
	default:
		if err != nil {
			return err
		}
	}

	config, err := registryConfig(ctxCLI)
	if err != nil {
		return err
	}

	var (
		backing store.Store
		events  notify.Log
		check   func(ctx context.Context) error
		sinks   = notify.Fanout{notify.NewLogSink(log)}
	)

	switch ctxCLI.String("store") {
	case StoreMemory:
		log.Warn().Msg("registry state is kept in memory and lost on shutdown")
		memory := notify.NewMemorySink()
		backing = memstore.New()
		events = memory
		sinks = append(sinks, memory)
	case StorePostgres:
		if ctxCLI.Bool("migrate") {
			err = db.Migrate(connString(ctxCLI), log)
			if err != nil {
				return err
			}
		}
		pool, err := connect(ctx, ctxCLI, log)
		if err != nil {
			return err
		}
		defer pool.Close()
		eventLog := db.NewEventLog(pool)
		backing = db.NewStore(pool)
		events = eventLog
		sinks = append(sinks, eventLog)
		check = func(ctx context.Context) error { return db.Check(ctx, pool) }
	default:
		return terror.Error(fmt.Errorf("unknown store %q", ctxCLI.String("store")), "store must be memory or postgres")
	}

	log.Info().
		Str("store", ctxCLI.String("store")).
		Str("reserve_amount", config.ReserveAmount.String()).
		Uint32("max_kitty_index", uint32(config.MaxKittyIndex)).
		Bool("clear_listing_on_transfer", config.ClearListingOnTransfer).
		Bool("require_parent_ownership", config.RequireParentOwnership).
		Msg("registry configured")

	reg := registry.New(backing, genome.NewCryptoEntropy(), config, registry.WithLogger(log))
	sinks = append(sinks, notify.NewWSSink(reg))
	a, handler := api.NewAPI(log, ctxCLI.String("api_addr"), reg, sinks, events, check, environment)
	return a.Run(ctx, handler)
}
