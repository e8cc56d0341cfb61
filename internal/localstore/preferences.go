package localstore

import (
	"fmt"
	"time"
)

// Preference is one user setting. The natural key on the remote store is
// (user_id, key).
type Preference struct {
	UserID    string    `json:"user_id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Preferences returns the user's settings ordered by key.
func (s *Store) Preferences(userID string) ([]Preference, error) {
	rows, err := s.db.Query(
		`SELECT user_id, key, value, updated_at
		 FROM preferences WHERE user_id = ? ORDER BY key`, userID)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	var prefs []Preference
	for rows.Next() {
		var p Preference
		if err := rows.Scan(&p.UserID, &p.Key, &p.Value, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan preference row: %w", err)
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// UpsertPreference inserts or replaces one setting.
func (s *Store) UpsertPreference(p Preference) error {
	_, err := s.db.Exec(
		`INSERT INTO preferences (user_id, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		p.UserID, p.Key, p.Value, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

// ReplacePreferences overwrites the user's settings in one transaction.
func (s *Store) ReplacePreferences(userID string, prefs []Preference) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace preferences: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM preferences WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear preferences: %w", err)
	}
	for _, p := range prefs {
		if _, err := tx.Exec(
			`INSERT INTO preferences (user_id, key, value, updated_at)
			 VALUES (?, ?, ?, ?)`,
			userID, p.Key, p.Value, p.UpdatedAt); err != nil {
			return fmt.Errorf("insert preference %s: %w", p.Key, err)
		}
	}
	return tx.Commit()
}
