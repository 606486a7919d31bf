package models

import (
	"time"

	dbtypes "github.com/mandate/blog_service/internal/db"
)

// Article represents a blog article record used across the service.
type Article struct {
	ID          int64            `db:"id" json:"id"`
	Title       string           `db:"title" json:"title"`
	Slug        string           `db:"slug" json:"slug"`
	Content     string           `db:"content" json:"content"`
	Author      string           `db:"author" json:"author"`
	Published   bool             `db:"published" json:"published"`
	PublishedAt dbtypes.NullTime `db:"published_at" json:"published_at"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`

	// SourceURL records provenance when the article was created via import.
	SourceURL string `db:"source_url" json:"source_url,omitempty"`
}
