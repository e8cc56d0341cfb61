package localstore

import (
	"fmt"
	"time"
)

// WatchlistItem is one saved title. The natural key on the remote store
// is (user_id, external_id).
type WatchlistItem struct {
	UserID     string    `json:"user_id"`
	ExternalID string    `json:"external_id"`
	Title      string    `json:"title"`
	MediaType  string    `json:"media_type"`
	PosterURL  string    `json:"poster_url,omitempty"`
	AddedAt    time.Time `json:"added_at"`
}

// Watchlist returns the user's saved titles ordered by added time.
func (s *Store) Watchlist(userID string) ([]WatchlistItem, error) {
	rows, err := s.db.Query(
		`SELECT user_id, external_id, title, media_type, poster_url, added_at
		 FROM watchlist WHERE user_id = ? ORDER BY added_at, external_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	var items []WatchlistItem
	for rows.Next() {
		var it WatchlistItem
		if err := rows.Scan(&it.UserID, &it.ExternalID, &it.Title, &it.MediaType, &it.PosterURL, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("scan watchlist row: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpsertWatchlistItem inserts or replaces one saved title.
func (s *Store) UpsertWatchlistItem(it WatchlistItem) error {
	_, err := s.db.Exec(
		`INSERT INTO watchlist (user_id, external_id, title, media_type, poster_url, added_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, external_id) DO UPDATE SET
		   title = excluded.title,
		   media_type = excluded.media_type,
		   poster_url = excluded.poster_url,
		   added_at = excluded.added_at`,
		it.UserID, it.ExternalID, it.Title, it.MediaType, it.PosterURL, it.AddedAt)
	if err != nil {
		return fmt.Errorf("upsert watchlist item: %w", err)
	}
	return nil
}

// RemoveWatchlistItem deletes one saved title. Missing rows are fine.
func (s *Store) RemoveWatchlistItem(userID, externalID string) error {
	_, err := s.db.Exec(`DELETE FROM watchlist WHERE user_id = ? AND external_id = ?`, userID, externalID)
	if err != nil {
		return fmt.Errorf("remove watchlist item: %w", err)
	}
	return nil
}

// ReplaceWatchlist overwrites the user's watchlist with the given items
// in one transaction. Used by pull: remote state wins wholesale.
func (s *Store) ReplaceWatchlist(userID string, items []WatchlistItem) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace watchlist: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM watchlist WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear watchlist: %w", err)
	}
	for _, it := range items {
		if _, err := tx.Exec(
			`INSERT INTO watchlist (user_id, external_id, title, media_type, poster_url, added_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			userID, it.ExternalID, it.Title, it.MediaType, it.PosterURL, it.AddedAt); err != nil {
			return fmt.Errorf("insert watchlist item %s: %w", it.ExternalID, err)
		}
	}
	return tx.Commit()
}
