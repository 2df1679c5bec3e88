package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"codeprep.io/assistant/internal/assistant"
	"codeprep.io/assistant/internal/auth"
	"codeprep.io/assistant/internal/store"
	"codeprep.io/assistant/internal/tutor"
)

type APIHandler struct {
	store     *store.SQLiteStore
	assistant *assistant.Service
	tutor     *tutor.Tutor
}

func NewAPIHandler(db *store.SQLiteStore, assistantService *assistant.Service, tutorService *tutor.Tutor) *APIHandler {
	return &APIHandler{
		store:     db,
		assistant: assistantService,
		tutor:     tutorService,
	}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		externalUserID, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := h.store.GetUserByExternalID(externalUserID)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for user %s: %v", externalUserID, err)
			http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
			return
		}

		if user == nil {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type SignupRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.UserID == "" || req.Password == "" {
		http.Error(w, "User ID and password are required", http.StatusBadRequest)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for user %s: %v", req.UserID, err)
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	user, err := h.store.CreateUser(req.UserID, hashedPassword)
	if err != nil {
		log.Printf("Error creating user %s: %v", req.UserID, err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

type LoginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.UserID == "" || req.Password == "" {
		http.Error(w, "User ID and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.store.GetUserByExternalID(req.UserID)
	if err != nil {
		log.Printf("Error getting user %s: %v", req.UserID, err)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(req.UserID)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", req.UserID, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// Assistant chat session handlers

func (h *APIHandler) StartAssistantSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	sess, err := h.assistant.StartSession(userID)
	if err != nil {
		log.Printf("Error starting assistant session for user %d: %v", userID, err)
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sess)
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

func (h *APIHandler) AssistantMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	sessionID := chi.URLParam(r, "sessionID")

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "Message content cannot be empty", http.StatusBadRequest)
		return
	}

	reply, err := h.assistant.HandleMessage(r.Context(), sessionID, userID, req.Content)
	if err != nil {
		if errors.Is(err, assistant.ErrSessionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			log.Printf("Error handling message for user %d, session %s: %v", userID, sessionID, err)
			http.Error(w, "Failed to handle message", http.StatusInternalServerError)
		}
		return
	}
	json.NewEncoder(w).Encode(reply)
}

func (h *APIHandler) ListAssistantSessionsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	sessions := h.assistant.ListSessions(userID)
	if sessions == nil {
		sessions = []assistant.Session{}
	}
	json.NewEncoder(w).Encode(sessions)
}

func (h *APIHandler) GetAssistantSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.assistant.GetSession(sessionID, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(sess)
}

func (h *APIHandler) EndAssistantSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.assistant.EndSession(sessionID, userID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Tutoring session handlers

type StartTutoringRequest struct {
	Topic string `json:"topic"`
}

func (h *APIHandler) StartTutoringHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req StartTutoringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Topic == "" {
		http.Error(w, "Topic is required", http.StatusBadRequest)
		return
	}

	sess, err := h.tutor.Start(r.Context(), userID, req.Topic)
	if err != nil {
		log.Printf("Error starting tutoring session for user %d: %v", userID, err)
		http.Error(w, "Failed to start tutoring session", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sess)
}

func (h *APIHandler) GetTutoringHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.tutor.Get(sessionID, userID)
	if err != nil {
		if errors.Is(err, tutor.ErrSessionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			log.Printf("Error getting tutoring session %s for user %d: %v", sessionID, userID, err)
			http.Error(w, "Failed to get tutoring session", http.StatusInternalServerError)
		}
		return
	}
	json.NewEncoder(w).Encode(sess)
}

func (h *APIHandler) ListTutoringHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	sessions, err := h.tutor.List(userID)
	if err != nil {
		log.Printf("Error listing tutoring sessions for user %d: %v", userID, err)
		http.Error(w, "Failed to list tutoring sessions", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []store.TutoringSession{}
	}
	json.NewEncoder(w).Encode(sessions)
}

func (h *APIHandler) TutoringMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	sessionID := chi.URLParam(r, "sessionID")

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "Message content cannot be empty", http.StatusBadRequest)
		return
	}

	msg, err := h.tutor.HandleMessage(r.Context(), sessionID, userID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, tutor.ErrSessionNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, store.ErrSessionCompleted):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			log.Printf("Error handling tutoring message for user %d, session %s: %v", userID, sessionID, err)
			http.Error(w, "Failed to handle message", http.StatusInternalServerError)
		}
		return
	}
	json.NewEncoder(w).Encode(msg)
}

type CompleteTutoringRequest struct {
	Feedback *string `json:"feedback,omitempty"`
}

func (h *APIHandler) CompleteTutoringHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)
	sessionID := chi.URLParam(r, "sessionID")

	var req CompleteTutoringRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	if err := h.tutor.Complete(sessionID, userID, req.Feedback); err != nil {
		switch {
		case errors.Is(err, tutor.ErrSessionNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, store.ErrSessionCompleted):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			log.Printf("Error completing tutoring session %s for user %d: %v", sessionID, userID, err)
			http.Error(w, "Failed to complete tutoring session", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Catalog and recommendation handlers

func (h *APIHandler) ProblemsHandler(w http.ResponseWriter, r *http.Request) {
	problems, err := h.store.GetAllProblems()
	if err != nil {
		log.Printf("Error listing problems: %v", err)
		http.Error(w, "Failed to list problems", http.StatusInternalServerError)
		return
	}
	if problems == nil {
		problems = []store.Problem{}
	}
	json.NewEncoder(w).Encode(problems)
}

type SubmissionRequest struct {
	Status string `json:"status"` // "accepted" or "rejected"
}

func (h *APIHandler) SubmissionHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	problemID, err := strconv.ParseInt(chi.URLParam(r, "problemID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid problem ID", http.StatusBadRequest)
		return
	}

	var req SubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Status != "accepted" && req.Status != "rejected" {
		http.Error(w, "Status must be 'accepted' or 'rejected'", http.StatusBadRequest)
		return
	}

	problem, err := h.store.GetProblemByID(problemID)
	if err != nil {
		log.Printf("Error loading problem %d: %v", problemID, err)
		http.Error(w, "Failed to load problem", http.StatusInternalServerError)
		return
	}
	if problem == nil {
		http.Error(w, "Problem not found", http.StatusNotFound)
		return
	}

	sub := store.Submission{UserID: userID, ProblemID: problemID, Status: req.Status}
	if err := h.store.CreateSubmission(&sub); err != nil {
		log.Printf("Error storing submission for user %d, problem %d: %v", userID, problemID, err)
		http.Error(w, "Failed to store submission", http.StatusInternalServerError)
		return
	}
	if err := h.store.RecordAttempt(userID, problemID, req.Status == "accepted"); err != nil {
		log.Printf("Error recording attempt for user %d, problem %d: %v", userID, problemID, err)
		http.Error(w, "Failed to record attempt", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sub)
}

func (h *APIHandler) RecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	problems, err := h.assistant.Recommender().RecommendProblems(userID, 5)
	if err != nil {
		log.Printf("Error computing recommendations for user %d: %v", userID, err)
		http.Error(w, "Failed to compute recommendations", http.StatusInternalServerError)
		return
	}
	if problems == nil {
		problems = []assistant.RecommendedProblem{}
	}
	json.NewEncoder(w).Encode(problems)
}

func (h *APIHandler) StudyPlanHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	plan, err := h.assistant.Recommender().StudyPlan(userID)
	if err != nil {
		log.Printf("Error computing study plan for user %d: %v", userID, err)
		http.Error(w, "Failed to compute study plan", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(plan)
}

func (h *APIHandler) CareerGuidanceHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	guidance, err := h.assistant.Recommender().CareerGuidance(userID)
	if err != nil {
		log.Printf("Error computing career guidance for user %d: %v", userID, err)
		http.Error(w, "Failed to compute career guidance", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(guidance)
}
