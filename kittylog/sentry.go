package kittylog

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/ninja-software/terror/v2"
	"github.com/rs/zerolog"
)

const (
	Development = "development"
	Testing     = "testing"
	Staging     = "staging"
	Production  = "production"
)

var (
	ErrSentryInitEnvironment = fmt.Errorf("sentry init skipped: environment must be one of %v", []string{Development, Testing, Staging, Production})
	ErrSentryInitDSN         = fmt.Errorf("sentry init skipped: dsn missing")
	ErrSentryInitVersion     = fmt.Errorf("sentry init skipped: version missing")
)

// SentryInit configures the sentry client. Outside production a missing dsn
// or version only logs a warning.
func SentryInit(dsn, serverName, version, environment string, traceRate float64, log *zerolog.Logger) error {
	switch environment {
	case Development, Testing, Staging, Production:
	default:
		return terror.Panic(ErrSentryInitEnvironment, "got", environment)
	}

	if dsn == "" {
		if environment == Production {
			return terror.Panic(ErrSentryInitDSN)
		}
		log.Warn().Err(ErrSentryInitDSN).Msg("")
		return nil
	}
	if version == "" {
		if environment == Production {
			return terror.Panic(ErrSentryInitVersion)
		}
		log.Warn().Err(ErrSentryInitVersion).Msg("")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		ServerName:       serverName,
		Environment:      environment,
		Release:          version,
		TracesSampleRate: traceRate,
		// terror wraps stdlib errors, so attached stack traces all look alike
		AttachStacktrace: false,
	})
	if err != nil {
		return terror.Error(fmt.Errorf("sentry init failed: %w", err))
	}
	log.Info().Msg("sentry initialised")
	return nil
}
