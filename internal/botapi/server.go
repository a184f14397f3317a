package botapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"musicbot/internal/commands"
	"musicbot/internal/logging"
	"musicbot/internal/services"
)

const maxUpdateBytes = 1 << 20

// Dispatcher handles one converted message.
type Dispatcher interface {
	Handle(ctx context.Context, msg commands.Message, conv commands.Conversation)
}

// ConversationFactory opens the reply channel for an inbound message.
type ConversationFactory func(chatID, messageID int64) commands.Conversation

// StatusFunc renders the payload of GET /api/status.
type StatusFunc func(ctx context.Context) any

// Options configures a Handler.
type Options struct {
	Token         string
	Dispatcher    Dispatcher
	Conversations ConversationFactory
	Status        StatusFunc
	Logger        *slog.Logger
}

// Handler serves the bot API routes.
type Handler struct {
	token         string
	dispatcher    Dispatcher
	conversations ConversationFactory
	status        StatusFunc
	logger        *slog.Logger
	mux           *http.ServeMux

	base     context.Context
	inflight sync.WaitGroup
	recent   *recentIDs
}

// NewHandler builds the route table. Updates are processed under ctx, so
// cancelling it cancels in-flight handlers.
func NewHandler(ctx context.Context, opts Options) *Handler {
	h := &Handler{
		token:         opts.Token,
		dispatcher:    opts.Dispatcher,
		conversations: opts.Conversations,
		status:        opts.Status,
		logger:        logging.NewComponentLogger(opts.Logger, "botapi"),
		mux:           http.NewServeMux(),
		base:          ctx,
		recent:        newRecentIDs(1024),
	}
	h.mux.HandleFunc("/api/updates", authMiddleware(h.token, h.handleUpdate))
	h.mux.HandleFunc("/api/status", authMiddleware(h.token, h.handleStatus))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Wait blocks until every accepted update has been handled.
func (h *Handler) Wait() {
	h.inflight.Wait()
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var update Update
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxUpdateBytes))
	if err := decoder.Decode(&update); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid update: "+err.Error())
		return
	}
	if update.Message == nil || update.Message.From == nil || update.Message.From.ID <= 0 {
		h.writeJSON(w, http.StatusAccepted, map[string]any{"accepted": false, "reason": "no user message"})
		return
	}
	if update.UpdateID != 0 && !h.recent.add(update.UpdateID) {
		h.writeJSON(w, http.StatusAccepted, map[string]any{"accepted": false, "reason": "duplicate"})
		return
	}

	msg := update.Message.ToCommand()
	conv := h.conversations(msg.ChatID, msg.MessageID)
	requestID := uuid.NewString()

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		ctx := services.WithRequestID(services.WithUserID(h.base, msg.UserID), requestID)
		h.dispatcher.Handle(ctx, msg, conv)
	}()

	logging.WithContext(services.WithRequestID(r.Context(), requestID), h.logger).Debug("update accepted",
		logging.Int64("update_id", update.UpdateID),
		logging.Int64(logging.FieldUserID, msg.UserID),
	)
	h.writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true, "request_id": requestID})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.status == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"running": true})
		return
	}
	h.writeJSON(w, http.StatusOK, h.status(r.Context()))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// recentIDs remembers the last few update ids so bridge retries are not
// processed twice.
type recentIDs struct {
	mu    sync.Mutex
	seen  map[int64]struct{}
	order []int64
	limit int
}

func newRecentIDs(limit int) *recentIDs {
	return &recentIDs{seen: make(map[int64]struct{}, limit), limit: limit}
}

// add records id and reports whether it was new.
func (r *recentIDs) add(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[id]; ok {
		return false
	}
	r.seen[id] = struct{}{}
	r.order = append(r.order, id)
	if len(r.order) > r.limit {
		delete(r.seen, r.order[0])
		r.order = r.order[1:]
	}
	return true
}
