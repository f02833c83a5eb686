// Package models defines the story, session and push-subscription types
// shared by the client packages.
package models

import (
	"sort"
	"strings"
	"time"
)

// Story is one user post. Stories are immutable once stored locally, except
// for PhotoURL (rewritten to a cached blob reference on save) and IsSaved
// (computed against the local store, never persisted remotely).
type Story struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PhotoURL    string    `json:"photoUrl"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UserID      string    `json:"userId,omitempty"`
	IsSaved     bool      `json:"-"`
}

// HasLocation reports whether the story carries coordinates. Lat and Lon are
// either both present or both absent.
func (s *Story) HasLocation() bool {
	return s.Lat != nil && s.Lon != nil
}

// Matches reports whether the story matches a case-insensitive substring
// query against its description or author name. Empty fields never match.
func (s *Story) Matches(query string) bool {
	q := strings.ToLower(query)
	if s.Description != "" && strings.Contains(strings.ToLower(s.Description), q) {
		return true
	}
	if s.Name != "" && strings.Contains(strings.ToLower(s.Name), q) {
		return true
	}
	return false
}

// SortByCreatedAtDesc orders stories newest first, in place.
func SortByCreatedAtDesc(stories []Story) {
	sort.SliceStable(stories, func(i, j int) bool {
		return stories[i].CreatedAt.After(stories[j].CreatedAt)
	})
}
