package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"intake-backend/internal/middleware"
	"intake-backend/internal/models"
	"intake-backend/internal/quiz"
	"intake-backend/internal/services"
)

type sessionService interface {
	Create(ctx context.Context) (*services.QuizSession, error)
	Get(ctx context.Context, id uuid.UUID) (*services.QuizSession, error)
	Questionnaire() models.QuizData
	RefreshQuestionnaire(ctx context.Context) models.QuizData
}

type tokenIssuer interface {
	GenerateSessionToken(sessionID uuid.UUID) (string, error)
}

type QuizHandler struct {
	sessions sessionService
	tokens   tokenIssuer
}

func NewQuizHandler(sessions *services.SessionManager, tokens *middleware.JWTAuth) *QuizHandler {
	return &QuizHandler{sessions: sessions, tokens: tokens}
}

func (h *QuizHandler) Questionnaire(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Questionnaire())
}

func (h *QuizHandler) RefreshQuestionnaire(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.RefreshQuestionnaire(r.Context()))
}

func (h *QuizHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Create(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	token, err := h.tokens.GenerateSessionToken(session.ID())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to issue session token", r))
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse(session.ID(), token, session.State()))
}

func (h *QuizHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(session.ID(), "", session.State()))
}

func (h *QuizHandler) Open(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, s *services.QuizSession) models.QuizState {
		return s.OpenQuiz(ctx)
	})
}

func (h *QuizHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, s *services.QuizSession) models.QuizState {
		return s.CloseQuiz(ctx)
	})
}

func (h *QuizHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, s *services.QuizSession) models.QuizState {
		return s.NextQuestion(ctx)
	})
}

func (h *QuizHandler) Previous(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, s *services.QuizSession) models.QuizState {
		return s.PreviousQuestion(ctx)
	})
}

func (h *QuizHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, s *services.QuizSession) models.QuizState {
		return s.ResetQuiz(ctx)
	})
}

// Answer records the option picked for a question. The option is addressed by
// its position in the question's options.
func (h *QuizHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	session, ok := h.session(w, r)
	if !ok {
		return
	}

	option, err := resolveOption(session.State(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	state := session.AnswerQuestion(r.Context(), *req.QuestionIndex, option)
	writeJSON(w, http.StatusOK, sessionResponse(session.ID(), "", state))
}

func (h *QuizHandler) CurrentQuestion(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	state := session.State()
	question, found := quiz.CurrentQuestion(state)
	if !found {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No current question", r))
		return
	}

	resp := map[string]interface{}{
		"question_index": state.CurrentQuestionIndex,
		"question":       question,
	}
	if answer, answered := quiz.FindAnswer(state, state.CurrentQuestionIndex); answered {
		resp["previous_answer"] = answer
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *QuizHandler) PreviousAnswer(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid question index", r))
		return
	}

	session, ok := h.session(w, r)
	if !ok {
		return
	}

	answer, found := session.PreviousAnswer(index)
	if !found {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Question has not been answered", r))
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (h *QuizHandler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, *services.QuizSession) models.QuizState) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	state := apply(r.Context(), session)
	writeJSON(w, http.StatusOK, sessionResponse(session.ID(), "", state))
}

func (h *QuizHandler) session(w http.ResponseWriter, r *http.Request) (*services.QuizSession, bool) {
	sessionID := middleware.GetSessionID(r.Context())
	if sessionID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Missing session", r))
		return nil, false
	}

	session, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return nil, false
	}
	return session, true
}

func resolveOption(state models.QuizState, req models.AnswerRequest) (models.Option, error) {
	fields := map[string]string{}
	if req.QuestionIndex == nil {
		fields["question_index"] = "question_index is required"
	}
	if req.OptionIndex == nil {
		fields["option_index"] = "option_index is required"
	}
	if len(fields) > 0 {
		return models.Option{}, &services.ValidationError{Fields: fields}
	}

	qi := *req.QuestionIndex
	if qi < 0 || qi >= len(state.Questions) {
		return models.Option{}, &services.ValidationError{Fields: map[string]string{
			"question_index": "question_index is out of range",
		}}
	}

	options := state.Questions[qi].Options
	oi := *req.OptionIndex
	if oi < 0 || oi >= len(options) {
		return models.Option{}, &services.ValidationError{Fields: map[string]string{
			"option_index": "option_index is out of range",
		}}
	}
	return options[oi], nil
}

func sessionResponse(id uuid.UUID, token string, state models.QuizState) models.SessionResponse {
	return models.SessionResponse{
		SessionID: id.String(),
		Token:     token,
		State:     state,
		Progress:  quiz.Progress(state),
	}
}
