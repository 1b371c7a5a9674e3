// Package model defines domain entities for the application.
package model

import (
	"slices"
	"time"
)

// CreationType classifies what kind of content a creation holds.
type CreationType string

const (
	CreationArticle      CreationType = "article"
	CreationBlogTitle    CreationType = "blog-title"
	CreationImage        CreationType = "image"
	CreationResumeReview CreationType = "resume-review"
)

// IsValid checks if the creation type is one of the known values.
func (t CreationType) IsValid() bool {
	switch t {
	case CreationArticle, CreationBlogTitle, CreationImage, CreationResumeReview:
		return true
	}
	return false
}

// Creation is one persisted record of a single generation event.
// Rows are append-only: every field except Likes is immutable after insert.
type Creation struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Prompt    string       `json:"prompt"`
	Content   string       `json:"content"`
	Type      CreationType `json:"type"`
	Publish   bool         `json:"publish"`
	Likes     []string     `json:"likes"`
	CreatedAt time.Time    `json:"created_at"`
}

// LikedBy reports whether userID is a member of the likes set.
func (c *Creation) LikedBy(userID string) bool {
	return slices.Contains(c.Likes, userID)
}
