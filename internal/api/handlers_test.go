package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeprep.io/assistant/internal/assistant"
	"codeprep.io/assistant/internal/config"
	"codeprep.io/assistant/internal/llm"
	"codeprep.io/assistant/internal/store"
	"codeprep.io/assistant/internal/tutor"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	config.AppConfig.JWTSecret = "test-secret"

	dbStore, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { dbStore.Close() })

	completer := llm.NewStub()
	registry := assistant.NewRegistry(0, 0)
	assistantService := assistant.NewService(dbStore, completer, registry)
	tutorService := tutor.NewTutor(dbStore, completer)

	handler := NewAPIHandler(dbStore, assistantService, tutorService)
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func signupAndLogin(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/signup", "", map[string]string{"user_id": "alice", "password": "hunter22"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Signup returned %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/login", "", map[string]string{"user_id": "alice", "password": "hunter22"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Login returned %d", resp.StatusCode)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode login response: %v", err)
	}
	if body["token"] == "" {
		t.Fatal("Login returned an empty token")
	}
	return body["token"]
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/assistant/start", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a token, got %d", resp.StatusCode)
	}
}

func TestAssistantSessionFlow(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv)

	resp := postJSON(t, srv.URL+"/api/assistant/start", token, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Start session returned %d", resp.StatusCode)
	}
	var sess assistant.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatalf("Failed to decode session: %v", err)
	}
	resp.Body.Close()
	if sess.Context.UserLevel != assistant.LevelBeginner {
		t.Errorf("Expected beginner session, got %s", sess.Context.UserLevel)
	}

	resp = postJSON(t, fmt.Sprintf("%s/api/assistant/%s/message", srv.URL, sess.ID), token,
		map[string]string{"content": "I'm getting an error in my loop"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Message returned %d", resp.StatusCode)
	}
	var reply assistant.Reply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		t.Fatalf("Failed to decode reply: %v", err)
	}
	resp.Body.Close()
	if reply.Intent != assistant.IntentDebugging {
		t.Errorf("Expected debugging intent, got %s", reply.Intent)
	}
	if len(reply.FollowUpQuestions) != 3 {
		t.Errorf("Expected 3 follow-up questions, got %d", len(reply.FollowUpQuestions))
	}

	// Unknown session id is the one user-visible error.
	resp = postJSON(t, srv.URL+"/api/assistant/does-not-exist/message", token,
		map[string]string{"content": "hello"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown session, got %d", resp.StatusCode)
	}

	// End, then the session is gone.
	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/assistant/%s", srv.URL, sess.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204 from end session, got %d", delResp.StatusCode)
	}

	getReq, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/assistant/%s", srv.URL, sess.ID), nil)
	getReq.Header.Set("Authorization", "Bearer "+token)
	getResp, err := http.DefaultClient.Do(getReq)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 after ending session, got %d", getResp.StatusCode)
	}
}

func TestTutoringFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv)

	resp := postJSON(t, srv.URL+"/api/tutor/start", token, map[string]string{"topic": "Recursion"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Start tutoring returned %d", resp.StatusCode)
	}
	var sess tutor.SessionView
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatalf("Failed to decode tutoring session: %v", err)
	}
	resp.Body.Close()
	if sess.Breakdown.Overview == "" || len(sess.Breakdown.SubTopics) == 0 {
		t.Error("Expected breakdown with overview and subtopics")
	}

	resp = postJSON(t, fmt.Sprintf("%s/api/tutor/%s/complete", srv.URL, sess.ID), token,
		map[string]string{"feedback": "thanks"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Complete returned %d", resp.StatusCode)
	}

	// Completing twice conflicts.
	resp = postJSON(t, fmt.Sprintf("%s/api/tutor/%s/complete", srv.URL, sess.ID), token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 on double completion, got %d", resp.StatusCode)
	}

	// Messaging a completed session conflicts too.
	resp = postJSON(t, fmt.Sprintf("%s/api/tutor/%s/message", srv.URL, sess.ID), token,
		map[string]string{"content": "one more thing"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 messaging a completed session, got %d", resp.StatusCode)
	}
}
