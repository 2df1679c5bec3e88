package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrSessionCompleted is returned when a write is attempted against a
// tutoring session that has already transitioned to completed.
var ErrSessionCompleted = errors.New("tutoring session already completed")

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        external_user_id TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS problems (
        id INTEGER PRIMARY KEY,
        title TEXT NOT NULL,
        description TEXT,
        difficulty TEXT NOT NULL CHECK (difficulty IN ('Easy', 'Medium', 'Hard')),
        topics_json TEXT NOT NULL,   -- JSON array of topic strings
        companies_json TEXT          -- JSON array of company strings
    );

    CREATE TABLE IF NOT EXISTS user_progress (
        user_id INTEGER NOT NULL,
        problem_id INTEGER NOT NULL,
        completed BOOLEAN DEFAULT FALSE,
        attempts INTEGER DEFAULT 0,
        last_attempt DATETIME,
        PRIMARY KEY (user_id, problem_id),
        FOREIGN KEY (user_id) REFERENCES users (id),
        FOREIGN KEY (problem_id) REFERENCES problems (id)
    );

    CREATE TABLE IF NOT EXISTS submissions (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        problem_id INTEGER NOT NULL,
        status TEXT NOT NULL CHECK (status IN ('accepted', 'rejected')),
        submitted_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id),
        FOREIGN KEY (problem_id) REFERENCES problems (id)
    );

    CREATE TABLE IF NOT EXISTS tutoring_sessions (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        topic TEXT NOT NULL,
        breakdown_json TEXT NOT NULL,
        current_subtopic INTEGER DEFAULT 0,
        status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed')),
        started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        completed_at DATETIME,
        feedback TEXT,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS tutoring_messages (
        id TEXT PRIMARY KEY, -- UUID
        session_id TEXT NOT NULL,
        sender TEXT NOT NULL CHECK (sender IN ('user', 'tutor')),
        content TEXT NOT NULL,
        timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (session_id) REFERENCES tutoring_sessions (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods
func (s *SQLiteStore) GetUserByExternalID(externalUserID string) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, external_user_id, password_hash, created_at FROM users WHERE external_user_id = ?", externalUserID).Scan(&user.ID, &user.ExternalUserID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) CreateUser(externalUserID, passwordHash string) (*User, error) {
	res, err := s.db.Exec("INSERT INTO users (external_user_id, password_hash) VALUES (?, ?)", externalUserID, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.getUserByID(id)
}

func (s *SQLiteStore) getUserByID(id int64) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, external_user_id, password_hash, created_at FROM users WHERE id = ?", id).Scan(&user.ID, &user.ExternalUserID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Problem catalog methods
func (s *SQLiteStore) GetAllProblems() ([]Problem, error) {
	rows, err := s.db.Query("SELECT id, title, description, difficulty, topics_json, companies_json FROM problems ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query problems: %w", err)
	}
	defer rows.Close()

	var problems []Problem
	for rows.Next() {
		problem, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		problems = append(problems, *problem)
	}
	return problems, nil
}

func (s *SQLiteStore) GetProblemByID(id int64) (*Problem, error) {
	row := s.db.QueryRow("SELECT id, title, description, difficulty, topics_json, companies_json FROM problems WHERE id = ?", id)
	problem, err := scanProblem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, err
	}
	return problem, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProblem(row rowScanner) (*Problem, error) {
	var p Problem
	var topicsJSON string
	var companiesJSON sql.NullString
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Difficulty, &topicsJSON, &companiesJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan problem row: %w", err)
	}
	if err := json.Unmarshal([]byte(topicsJSON), &p.Topics); err != nil {
		log.Printf("Warning: failed to unmarshal topics for problem %d: %v", p.ID, err)
		p.Topics = nil
	}
	if companiesJSON.Valid && companiesJSON.String != "" {
		if err := json.Unmarshal([]byte(companiesJSON.String), &p.Companies); err != nil {
			p.Companies = nil
		}
	}
	return &p, nil
}

// Progress / submission methods
func (s *SQLiteStore) GetUserProgress(userID int64) ([]ProgressEntry, error) {
	rows, err := s.db.Query("SELECT user_id, problem_id, completed, attempts, last_attempt FROM user_progress WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user progress: %w", err)
	}
	defer rows.Close()

	var entries []ProgressEntry
	for rows.Next() {
		var e ProgressEntry
		var lastAttempt sql.NullTime
		if err := rows.Scan(&e.UserID, &e.ProblemID, &e.Completed, &e.Attempts, &lastAttempt); err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		if lastAttempt.Valid {
			e.LastAttempt = lastAttempt.Time
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// RecordAttempt increments the attempt counter for a user/problem pair,
// marking it completed when the attempt succeeded. Completion is sticky.
func (s *SQLiteStore) RecordAttempt(userID, problemID int64, completed bool) error {
	_, err := s.db.Exec(`
        INSERT INTO user_progress (user_id, problem_id, completed, attempts, last_attempt)
        VALUES (?, ?, ?, 1, ?)
        ON CONFLICT(user_id, problem_id) DO UPDATE SET
            attempts = attempts + 1,
            completed = completed OR excluded.completed,
            last_attempt = excluded.last_attempt`,
		userID, problemID, completed, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateSubmission(sub *Submission) error {
	sub.ID = uuid.NewString()
	sub.SubmittedAt = time.Now()
	_, err := s.db.Exec("INSERT INTO submissions (id, user_id, problem_id, status, submitted_at) VALUES (?, ?, ?, ?, ?)",
		sub.ID, sub.UserID, sub.ProblemID, sub.Status, sub.SubmittedAt)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUserSubmissions(userID int64) ([]Submission, error) {
	rows, err := s.db.Query("SELECT id, user_id, problem_id, status, submitted_at FROM submissions WHERE user_id = ? ORDER BY submitted_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.ProblemID, &sub.Status, &sub.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// Tutoring session methods
func (s *SQLiteStore) CreateTutoringSession(userID int64, topic, breakdownJSON string) (*TutoringSession, error) {
	sessionID := uuid.NewString()
	now := time.Now()

	stmt, err := s.db.Prepare("INSERT INTO tutoring_sessions (id, user_id, topic, breakdown_json, current_subtopic, status, started_at) VALUES (?, ?, ?, ?, 0, 'active', ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare tutoring session insert: %w", err)
	}
	defer stmt.Close()

	if _, err = stmt.Exec(sessionID, userID, topic, breakdownJSON, now); err != nil {
		return nil, fmt.Errorf("failed to execute tutoring session insert: %w", err)
	}
	return &TutoringSession{
		ID:            sessionID,
		UserID:        userID,
		Topic:         topic,
		BreakdownJSON: breakdownJSON,
		Status:        "active",
		StartedAt:     now,
	}, nil
}

func (s *SQLiteStore) GetTutoringSession(sessionID string, userID int64) (*TutoringSession, error) {
	var sess TutoringSession
	var completedAt sql.NullTime
	var feedback sql.NullString
	err := s.db.QueryRow(
		"SELECT id, user_id, topic, breakdown_json, current_subtopic, status, started_at, completed_at, feedback FROM tutoring_sessions WHERE id = ? AND user_id = ?",
		sessionID, userID,
	).Scan(&sess.ID, &sess.UserID, &sess.Topic, &sess.BreakdownJSON, &sess.CurrentSubtopic, &sess.Status, &sess.StartedAt, &completedAt, &feedback)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get tutoring session: %w", err)
	}
	if completedAt.Valid {
		sess.CompletedAt = &completedAt.Time
	}
	if feedback.Valid {
		sess.Feedback = &feedback.String
	}
	return &sess, nil
}

func (s *SQLiteStore) GetTutoringSessionsByUserID(userID int64) ([]TutoringSession, error) {
	rows, err := s.db.Query(
		"SELECT id, user_id, topic, breakdown_json, current_subtopic, status, started_at, completed_at, feedback FROM tutoring_sessions WHERE user_id = ? ORDER BY started_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tutoring sessions: %w", err)
	}
	defer rows.Close()

	var sessions []TutoringSession
	for rows.Next() {
		var sess TutoringSession
		var completedAt sql.NullTime
		var feedback sql.NullString
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Topic, &sess.BreakdownJSON, &sess.CurrentSubtopic, &sess.Status, &sess.StartedAt, &completedAt, &feedback); err != nil {
			return nil, fmt.Errorf("failed to scan tutoring session row: %w", err)
		}
		if completedAt.Valid {
			sess.CompletedAt = &completedAt.Time
		}
		if feedback.Valid {
			sess.Feedback = &feedback.String
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

func (s *SQLiteStore) UpdateTutoringSubtopic(sessionID string, subtopic int) error {
	res, err := s.db.Exec("UPDATE tutoring_sessions SET current_subtopic = ? WHERE id = ? AND status = 'active'", subtopic, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update current subtopic: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrSessionCompleted
	}
	return nil
}

// CompleteTutoringSession moves an active session to completed. The status
// guard in the WHERE clause makes the transition one-way: a second call
// matches no rows and reports ErrSessionCompleted.
func (s *SQLiteStore) CompleteTutoringSession(sessionID string, userID int64, feedback *string) error {
	res, err := s.db.Exec(
		"UPDATE tutoring_sessions SET status = 'completed', completed_at = ?, feedback = ? WHERE id = ? AND user_id = ? AND status = 'active'",
		time.Now(), feedback, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to complete tutoring session: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrSessionCompleted
	}
	return nil
}

func (s *SQLiteStore) CreateTutoringMessage(msg *TutoringMessage) error {
	msg.ID = uuid.NewString() // Ensure ID is set
	msg.Timestamp = time.Now()

	stmt, err := s.db.Prepare("INSERT INTO tutoring_messages (id, session_id, sender, content, timestamp) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare tutoring message insert: %w", err)
	}
	defer stmt.Close()

	if _, err = stmt.Exec(msg.ID, msg.SessionID, msg.Sender, msg.Content, msg.Timestamp); err != nil {
		return fmt.Errorf("failed to execute tutoring message insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTutoringMessages(sessionID string, limit int, offset int) ([]TutoringMessage, error) {
	rows, err := s.db.Query(
		"SELECT id, session_id, sender, content, timestamp FROM tutoring_messages WHERE session_id = ? ORDER BY timestamp ASC LIMIT ? OFFSET ?",
		sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query tutoring messages: %w", err)
	}
	defer rows.Close()

	var messages []TutoringMessage
	for rows.Next() {
		var msg TutoringMessage
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Sender, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan tutoring message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *SQLiteStore) GetLastNTutoringMessages(sessionID string, n int) ([]TutoringMessage, error) {
	rows, err := s.db.Query(`
        SELECT id, session_id, sender, content, timestamp
        FROM tutoring_messages
        WHERE session_id = ?
        ORDER BY timestamp DESC
        LIMIT ?`, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query tutoring messages: %w", err)
	}
	defer rows.Close()

	var messages []TutoringMessage
	for rows.Next() {
		var msg TutoringMessage
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Sender, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan tutoring message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
