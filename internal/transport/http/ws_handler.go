package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"flux-quiz-service/internal/app"
	"flux-quiz-service/internal/domain"
)

// WSHandler bridges websocket connections into the live arena: one
// connection per player, inbound commands and outbound arena events as
// typed envelopes.
type WSHandler struct {
	arena    *app.ArenaService
	upgrader websocket.Upgrader
}

func NewWSHandler(arena *app.ArenaService) *WSHandler {
	return &WSHandler{
		arena: arena,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionIndex int    `json:"questionIndex"`
	Answer        string `json:"answer"`
}

type kickPayload struct {
	TargetUserID string `json:"targetUserId"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// arena use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if quizID == "" || userID == "" || displayName == "" {
		http.Error(w, "missing quizId, userId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	joined, err := h.arena.Join(r.Context(), quizID, userID, displayName)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	events, cancel, err := h.arena.Subscribe(r.Context(), quizID, userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	defer h.arena.Leave(r.Context(), quizID, userID)

	send := make(chan outboundMessage, 32)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// Single writer goroutine; gorilla connections do not allow concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: ev.Type, Payload: ev.Payload}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage{Type: app.EventJoined, Payload: joined}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			// The score and leaderboard events come back through the subscription.
			_, err := h.arena.Submit(r.Context(), quizID, userID, domain.AnswerSubmission{
				QuestionIndex: payload.QuestionIndex,
				Answer:        payload.Answer,
			})
			if err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "start":
			if err := h.arena.Start(r.Context(), quizID, userID); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "kick":
			var payload kickPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid kick payload"}}
				continue
			}
			if err := h.arena.Kick(r.Context(), quizID, userID, payload.TargetUserID); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		default:
			send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}
