package kittylog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/DataDog/gostackparse"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ninja-software/log_helpers"
	"github.com/rs/zerolog"
)

// L is the process wide logger. It logs nothing until New is called.
var L = func() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}()

var initialised bool

func New(environment, level string) *zerolog.Logger {
	log := log_helpers.LoggerInitZero(environment, level)
	if environment == "production" || environment == "staging" {
		logPtr := zerolog.New(os.Stdout)
		logPtr = logPtr.With().Timestamp().Caller().Logger()
		log = &logPtr
	}
	log.Info().Msg("zerolog initialised")
	if initialised {
		panic("kittylog already initialised")
	}
	initialised = true
	L = log
	return L
}

// LogPanicRecovery is meant to be called from a deferred recover.
//
//	if r := recover(); r != nil {
//		kittylog.LogPanicRecovery("api panic", r)
//	}
func LogPanicRecovery(msg string, r interface{}) {
	event := L.WithLevel(zerolog.PanicLevel).Interface("panic", r)
	s := debug.Stack()
	stack, errs := gostackparse.Parse(bytes.NewReader(s))
	if len(errs) != 0 {
		event = event.Errs("stack_parsing_errors", errs)
	}
	jStack, err := json.Marshal(stack)
	if err != nil {
		event.AnErr("stack_marshal_error", err).Msg(msg)
		return
	}
	event.RawJSON("stack", jStack).Msg(msg)
}

// DatadogLog adapts zerolog to the datadog tracer logger
type DatadogLog struct {
	L *zerolog.Logger
}

func (dl DatadogLog) Log(msg string) {
	dl.L.Info().CallerSkipFrame(1).Msg(msg)
}

func ChiLogger(lvl zerolog.Level) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return middleware.RequestLogger(logFormatter{lvl: lvl})(next)
	}
}

type logFormatter struct {
	lvl zerolog.Level
}

func (l logFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return logEntry{
		requestID:   middleware.GetReqID(r.Context()),
		accountID:   r.Header.Get("X-Account-ID"),
		userAgent:   r.Header.Get("user-agent"),
		method:      r.Method,
		from:        r.RemoteAddr,
		path:        r.URL.Path,
		requestPath: fmt.Sprintf("%s://%s%s", scheme, r.Host, r.RequestURI),
		lvl:         l.lvl,
	}
}

type logEntry struct {
	requestID   string
	accountID   string
	userAgent   string
	method      string
	from        string
	path        string
	requestPath string
	lvl         zerolog.Level
}

func (l logEntry) Write(status int, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	if strings.HasPrefix(l.path, "/health_check") || l.path == "/metrics" {
		return
	}

	L.WithLevel(l.lvl).
		Str("user_agent", l.userAgent).
		Str("request_id", l.requestID).
		Str("account_id", l.accountID).
		Str("method", l.method).
		Str("from", l.from).
		Str("request_path", l.requestPath).
		Int("status", status).
		Int("bytes", bytes).
		Dur("duration", elapsed).
		Send()
}

func (l logEntry) Panic(v interface{}, stack []byte) {
	LogPanicRecovery("request panic", v)
}
