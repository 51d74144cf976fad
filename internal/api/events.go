package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"filesentry/internal/event"
	"filesentry/internal/logging"

	"github.com/gorilla/websocket"
)

const (
	wsBufferSize   = 1024
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	// Close reasons must fit a control frame.
	wsMaxCloseReason = 123
)

type eventsHandler struct {
	bus            *event.Bus[event.Scored]
	logger         *logging.Logger
	authToken      string
	allowedOrigins []string
	pingInterval   time.Duration
}

// ServeHTTP streams scored events as JSON text frames. The optional
// min_level query parameter drops events below that level.
func (h eventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !validateToken(r, h.authToken) {
		h.reject(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.bus == nil {
		h.reject(w, r, http.StatusServiceUnavailable, "scored event stream unavailable")
		return
	}
	minimum := event.LevelInfo
	if raw := strings.TrimSpace(r.URL.Query().Get("min_level")); raw != "" {
		level, err := event.ParseLevel(raw)
		if err != nil {
			h.reject(w, r, http.StatusBadRequest, err.Error())
			return
		}
		minimum = level
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsBufferSize,
		WriteBufferSize: wsBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return isOriginAllowed(r, h.allowedOrigins)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", requestFields(r, map[string]string{"error": err.Error()}))
		return
	}

	output, unsubscribe := h.bus.SubscribeFiltered(func(scored event.Scored) bool {
		return scored.Level.AtLeast(minimum)
	})
	defer unsubscribe()
	h.logger.Debug("event stream subscriber connected", requestFields(r, map[string]string{
		"min_level": minimum.String(),
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(conn, output)
	}()
	// Reading notices client close frames and disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	unsubscribe()
	<-done
}

// writeLoop owns every write on conn and closes it on exit.
func (h eventsHandler) writeLoop(conn *websocket.Conn, output <-chan event.Scored) {
	defer conn.Close()
	interval := h.pingInterval
	if interval <= 0 {
		interval = wsPingInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case scored, ok := <-output:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(scored); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

func (h eventsHandler) reject(w http.ResponseWriter, r *http.Request, status int, reason string) {
	fields := requestFields(r, map[string]string{
		"status":     strconv.Itoa(status),
		"close_code": strconv.Itoa(closeCodeForStatus(status)),
		"message":    reason,
	})
	if status >= http.StatusInternalServerError {
		h.logger.Error("event stream rejected", fields)
	} else {
		h.logger.Warn("event stream rejected", fields)
	}
	http.Error(w, truncateCloseReason(reason), status)
}

func requestFields(r *http.Request, fields map[string]string) map[string]string {
	fields["path"] = r.URL.Path
	if r.RemoteAddr != "" {
		fields["remote_addr"] = r.RemoteAddr
	}
	if userAgent := strings.TrimSpace(r.UserAgent()); userAgent != "" {
		fields["user_agent"] = userAgent
	}
	return fields
}

func closeCodeForStatus(status int) int {
	switch {
	case status == http.StatusBadRequest:
		return websocket.CloseProtocolError
	case status == http.StatusServiceUnavailable:
		return websocket.CloseTryAgainLater
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		return websocket.ClosePolicyViolation
	default:
		return websocket.CloseInternalServerErr
	}
}

func truncateCloseReason(reason string) string {
	if len(reason) <= wsMaxCloseReason {
		return reason
	}
	return reason[:wsMaxCloseReason]
}
