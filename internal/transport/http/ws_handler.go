package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"examprep-service/internal/app"
	"examprep-service/internal/logging"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSHandler streams attempt grading and leaderboard updates over one socket per student.
type WSHandler struct {
	grading   *app.GradingService
	dashboard *app.DashboardService
	feed      *app.LeaderboardFeed
	auth      *TokenAuth
	log       logrus.FieldLogger
	upgrader  websocket.Upgrader
	writeWait time.Duration
}

const defaultWriteWait = 10 * time.Second

func NewWSHandler(grading *app.GradingService, dashboard *app.DashboardService, feed *app.LeaderboardFeed, auth *TokenAuth, log logrus.FieldLogger) *WSHandler {
	if log == nil {
		log = logging.Discard()
	}
	return &WSHandler{
		grading:   grading,
		dashboard: dashboard,
		feed:      feed,
		auth:      auth,
		log:       log,
		writeWait: defaultWriteWait,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// WithWriteTimeout bounds each outbound write; a client that stops reading is dropped once it expires.
func (h *WSHandler) WithWriteTimeout(d time.Duration) *WSHandler {
	h.writeWait = d
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage[any] {
	msg := err.Error()
	if statusFor(err) == http.StatusInternalServerError {
		msg = "internal error"
	}
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// ServeWS authenticates with ?token= (or a bearer header) and then upgrades.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	studentID, err := h.auth.Verify(token)
	if err != nil {
		writeError(w, err)
		return
	}
	log := logging.WithStudent(h.log, studentID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	joined, err := h.dashboard.Leaderboard(r.Context(), studentID)
	if err != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(h.writeWait))
		_ = conn.WriteJSON(errorMessage(err))
		return
	}

	updates, cancel := h.feed.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				// unblocks ReadJSON so the handler can unwind
				_ = conn.Close()
				return
			}
		}
	}()

	// push reports false once the writer has gone away.
	push := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	ok := push(outboundMessage[any]{Type: "joined", Payload: joined})

	for ok {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "attempt":
			var req attemptRequest
			if err := json.Unmarshal(inbound.Payload, &req); err != nil || req.validate() != nil {
				ok = push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid attempt payload"}})
				continue
			}
			result, err := h.grading.SubmitAttempt(r.Context(), studentID, req.QuizID, *req.SelectedAnswer)
			if err != nil {
				if statusFor(err) >= http.StatusInternalServerError {
					log.WithError(err).Error("ws attempt failed")
				}
				ok = push(errorMessage(err))
				continue
			}
			ok = push(outboundMessage[any]{Type: "attemptResult", Payload: result})
			if _, err := h.feed.Refresh(r.Context()); err != nil {
				log.WithError(err).Warn("leaderboard push failed")
			}
		default:
			ok = push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
