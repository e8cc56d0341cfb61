package localstore

import (
	"fmt"
	"time"
)

// ProgressEntry is playback position for one title (or one episode of a
// series). The natural key on the remote store is
// (user_id, external_id, season, episode); movies use season 0/episode 0.
type ProgressEntry struct {
	UserID       string    `json:"user_id"`
	ExternalID   string    `json:"external_id"`
	Season       int       `json:"season"`
	Episode      int       `json:"episode"`
	PositionSecs float64   `json:"position_secs"`
	DurationSecs float64   `json:"duration_secs"`
	Watched      bool      `json:"watched"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Progress returns the user's playback positions, most recent first.
func (s *Store) Progress(userID string) ([]ProgressEntry, error) {
	rows, err := s.db.Query(
		`SELECT user_id, external_id, season, episode, position_secs, duration_secs, watched, updated_at
		 FROM watch_progress WHERE user_id = ? ORDER BY updated_at DESC, external_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var entries []ProgressEntry
	for rows.Next() {
		var e ProgressEntry
		if err := rows.Scan(&e.UserID, &e.ExternalID, &e.Season, &e.Episode,
			&e.PositionSecs, &e.DurationSecs, &e.Watched, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpsertProgress inserts or replaces one playback position.
func (s *Store) UpsertProgress(e ProgressEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO watch_progress
		   (user_id, external_id, season, episode, position_secs, duration_secs, watched, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, external_id, season, episode) DO UPDATE SET
		   position_secs = excluded.position_secs,
		   duration_secs = excluded.duration_secs,
		   watched = excluded.watched,
		   updated_at = excluded.updated_at`,
		e.UserID, e.ExternalID, e.Season, e.Episode,
		e.PositionSecs, e.DurationSecs, e.Watched, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// ReplaceProgress overwrites the user's progress in one transaction.
func (s *Store) ReplaceProgress(userID string, entries []ProgressEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace progress: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM watch_progress WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	for _, e := range entries {
		if _, err := tx.Exec(
			`INSERT INTO watch_progress
			   (user_id, external_id, season, episode, position_secs, duration_secs, watched, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, e.ExternalID, e.Season, e.Episode,
			e.PositionSecs, e.DurationSecs, e.Watched, e.UpdatedAt); err != nil {
			return fmt.Errorf("insert progress %s: %w", e.ExternalID, err)
		}
	}
	return tx.Commit()
}
