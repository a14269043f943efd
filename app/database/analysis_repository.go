package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxInputText bounds the stored copy of the analysed text, in runes.
const MaxInputText = 500

type AnalysisRepo struct {
	db *DB
}

var _ AnalysisRepository = (*AnalysisRepo)(nil)

func NewAnalysisRepository(db *DB) *AnalysisRepo {
	return &AnalysisRepo{db: db}
}

// CreateAnalysis inserts a, assigning an ID and timestamps when unset.
func (r *AnalysisRepo) CreateAnalysis(a *Analysis) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	a.InputText = truncateRunes(a.InputText, MaxInputText)

	_, err := r.db.Exec(`
		INSERT INTO analyses (id, input_text, image_name, source_url, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.InputText, a.ImageName, a.SourceURL, a.Status, now, now)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}

	return nil
}

func (r *AnalysisRepo) UpdateAnalysisStatus(id, status, errMsg string) error {
	res, err := r.db.Exec(`
		UPDATE analyses SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, status, errMsg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update analysis status: %w", err)
	}
	return requireRow(res, id)
}

// FailUnfinishedAnalyses marks every pending or processing analysis failed
// with reason and returns how many were changed. It is meant for startup, when
// no task can still be working on them.
func (r *AnalysisRepo) FailUnfinishedAnalyses(reason string) (int64, error) {
	res, err := r.db.Exec(`
		UPDATE analyses SET status = ?, error = ?, updated_at = ?
		WHERE status IN (?, ?)
	`, StatusFailed, reason, time.Now().UTC(), StatusPending, StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("failed to fail unfinished analyses: %w", err)
	}
	return res.RowsAffected()
}

// CompleteAnalysis stores the outcome and replaces the analysis sources in one
// transaction.
func (r *AnalysisRepo) CompleteAnalysis(id string, outcome AnalysisOutcome) error {
	warnings, err := json.Marshal(nonNil(outcome.Warnings))
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.Exec(`
		UPDATE analyses
		SET status = ?, is_misinformation = ?, verdict = ?, confidence = ?, report = ?,
		    image_report = ?, text_report = ?, warnings = ?, error = '', updated_at = ?, completed_at = ?
		WHERE id = ?
	`, StatusCompleted, outcome.IsMisinformation, outcome.Verdict, outcome.Confidence, outcome.Report,
		outcome.ImageReport, outcome.TextReport, string(warnings), now, now, id)
	if err != nil {
		return fmt.Errorf("failed to complete analysis: %w", err)
	}
	if err := requireRow(res, id); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM sources WHERE analysis_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear sources: %w", err)
	}

	for i, s := range outcome.Sources {
		_, err := tx.Exec(`
			INSERT INTO sources (analysis_id, position, url, title, snippet, credibility)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, i, s.URL, s.Title, s.Snippet, s.Credibility)
		if err != nil {
			return fmt.Errorf("failed to insert source: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit analysis: %w", err)
	}
	return nil
}

// GetAnalysis returns the analysis with its sources, or ErrNotFound.
func (r *AnalysisRepo) GetAnalysis(id string) (*Analysis, error) {
	var a Analysis
	var warnings string

	err := r.db.QueryRow(`
		SELECT id, input_text, image_name, source_url, status, is_misinformation, verdict, confidence,
		       report, image_report, text_report, warnings, error, created_at, updated_at, completed_at
		FROM analyses
		WHERE id = ?
	`, id).Scan(
		&a.ID, &a.InputText, &a.ImageName, &a.SourceURL, &a.Status, &a.IsMisinformation, &a.Verdict, &a.Confidence,
		&a.Report, &a.ImageReport, &a.TextReport, &warnings, &a.Error, &a.CreatedAt, &a.UpdatedAt, &a.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	if err := json.Unmarshal([]byte(warnings), &a.Warnings); err != nil {
		return nil, fmt.Errorf("failed to decode warnings: %w", err)
	}

	a.Sources, err = r.getSources(id)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

func (r *AnalysisRepo) getSources(analysisID string) ([]Source, error) {
	rows, err := r.db.Query(`
		SELECT id, analysis_id, position, url, title, snippet, credibility
		FROM sources
		WHERE analysis_id = ?
		ORDER BY position
	`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}
	defer rows.Close()

	sources := []Source{}
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.AnalysisID, &s.Position, &s.URL, &s.Title, &s.Snippet, &s.Credibility); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

// GetAnalysisStats returns the number of analyses per status.
func (r *AnalysisRepo) GetAnalysisStats() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM analyses GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis stats: %w", err)
	}
	defer rows.Close()

	stats := map[string]int{
		StatusPending:    0,
		StatusProcessing: 0,
		StatusCompleted:  0,
		StatusFailed:     0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats[status] = count
	}

	return stats, rows.Err()
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	return nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
