package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
)

// problemRecord is the shape of one entry in the problems seed file,
// matching the LeetCode-style export the platform ships with.
type problemRecord struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Difficulty  string   `json:"difficulty"`
	Topics      []string `json:"topics"`
	Companies   []string `json:"companies"`
}

func (s *SQLiteStore) ClearProblems() error {
	if _, err := s.db.Exec("DELETE FROM problems"); err != nil {
		return fmt.Errorf("failed to delete problems: %w", err)
	}
	return nil
}

// IngestProblemsFromFile reads a JSON array of problems and replaces the
// catalog with it. Run via the -ingest flag at startup.
func (s *SQLiteStore) IngestProblemsFromFile(filePath string) (int, error) {
	contentBytes, err := os.ReadFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read problems file %s: %w", filePath, err)
	}

	var records []problemRecord
	if err := json.Unmarshal(contentBytes, &records); err != nil {
		return 0, fmt.Errorf("failed to parse problems file %s: %w", filePath, err)
	}

	if len(records) == 0 {
		log.Println("No problems found in seed file. Ensure it is a JSON array of problem objects.")
		return 0, nil
	}

	if err := s.ClearProblems(); err != nil {
		return 0, fmt.Errorf("failed to clear existing problems: %w", err)
	}

	count := 0
	for i, rec := range records {
		if rec.Title == "" || rec.Difficulty == "" {
			log.Printf("Skipping problem %d: missing title or difficulty", i+1)
			continue
		}
		// Normalize so the CHECK constraint accepts lowercase exports.
		rec.Difficulty = strings.ToUpper(rec.Difficulty[:1]) + strings.ToLower(rec.Difficulty[1:])

		topicsJSON, err := json.Marshal(rec.Topics)
		if err != nil {
			log.Printf("Skipping problem %q: failed to marshal topics: %v", rec.Title, err)
			continue
		}
		companiesJSON, err := json.Marshal(rec.Companies)
		if err != nil {
			companiesJSON = []byte("[]")
		}

		_, err = s.db.Exec(
			"INSERT INTO problems (id, title, description, difficulty, topics_json, companies_json) VALUES (?, ?, ?, ?, ?, ?)",
			rec.ID, rec.Title, rec.Description, rec.Difficulty, string(topicsJSON), string(companiesJSON))
		if err != nil {
			log.Printf("Failed to store problem %q: %v. Skipping.", rec.Title, err)
			continue
		}
		count++
	}
	log.Printf("Successfully ingested %d problems.", count)
	return count, nil
}
