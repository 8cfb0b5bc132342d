package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventStationCreate  EventType = "station_create"
	EventCodeIssue      EventType = "pairing_code_issue"
	EventCodeRegenerate EventType = "pairing_code_regenerate"
	EventPairSuccess    EventType = "pair_success"
	EventPairFailure    EventType = "pair_failure"
	EventUntrust        EventType = "station_untrust"
	EventTransfer       EventType = "station_transfer"
	EventAuthFailure    EventType = "station_auth_failure"
	EventLoginSuccess   EventType = "admin_login_success"
	EventLoginFailure   EventType = "admin_login_failure"
	EventLogout         EventType = "admin_logout"
)

type Event struct {
	Type      EventType
	Actor     string // admin session id for privileged operations
	StationID string
	IP        string
	UserAgent string
	Details   map[string]interface{}
}

func Log(ctx context.Context, event Event) {
	logger := log.With().
		Str("audit", "security").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.Actor != "" {
		logger = logger.With().Str("actor", event.Actor).Logger()
	}
	if event.StationID != "" {
		logger = logger.With().Str("station_id", event.StationID).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}
	if event.UserAgent != "" {
		logger = logger.With().Str("user_agent", event.UserAgent).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("security audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = getClientIP(r)
	event.UserAgent = r.UserAgent()
	Log(r.Context(), event)
}

func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
