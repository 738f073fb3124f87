package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"campus-quiz-service/internal/app"
	"campus-quiz-service/internal/domain"
)

// Handler exposes the attempt lifecycle over REST. Identity comes from the
// X-User-ID header; upstream auth middleware owns verifying it.
type Handler struct {
	service *app.AttemptService
}

func NewHandler(service *app.AttemptService) *Handler {
	return &Handler{service: service}
}

// Routes mounts the API onto a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/quizzes/{quizID}/questions", h.Questions)
	r.Post("/api/quizzes/{quizID}/attempts", h.StartAttempt)
	r.Get("/api/quizzes/{quizID}/attempts", h.ListAttempts)
	r.Get("/api/quizzes/{quizID}/scoreboard", h.Scoreboard)
	r.Post("/api/attempts/{attemptID}/submit", h.SubmitAttempt)
	r.Get("/api/attempts/{attemptID}/detail", h.AttemptDetail)
}

// Questions returns the quiz with sanitized questions: policy fields for the
// client gate, no correctness markers.
func (h *Handler) Questions(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.Questions(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

type submitRequest struct {
	Answers map[string]string `json:"answers"`
}

func (h *Handler) StartAttempt(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing X-User-ID header"})
		return
	}
	attempt, err := h.service.StartAttempt(r.Context(), chi.URLParam(r, "quizID"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}

func (h *Handler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid submit payload"})
		return
	}
	summary, err := h.service.SubmitAttempt(r.Context(), chi.URLParam(r, "attemptID"), domain.AnswerSet(req.Answers))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) AttemptDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.AttemptDetail(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing X-User-ID header"})
		return
	}
	attempts, err := h.service.ListAttempts(r.Context(), chi.URLParam(r, "quizID"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if attempts == nil {
		attempts = []domain.Attempt{}
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *Handler) Scoreboard(w http.ResponseWriter, r *http.Request) {
	quizID := chi.URLParam(r, "quizID")
	updates, cancel, err := h.service.WatchScoreboard(r.Context(), quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	board := <-updates
	cancel()
	writeJSON(w, http.StatusOK, board)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain sentinels to status codes. Clients get a readable
// message, never a raw stack.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrNoQuestions):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAttemptLimitReached),
		errors.Is(err, domain.ErrAttemptFinished),
		errors.Is(err, domain.ErrAttemptInProgress):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}
