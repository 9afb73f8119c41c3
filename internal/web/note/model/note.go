// Package model contains the data types of knote.
package model

import (
	"io"
	"time"
)

// Note is one published note
type Note struct {
	// ID is assigned by the store on insert
	ID string `json:"id"`
	// Description is raw markdown, or html when Rendered is true
	Description string `json:"description"`
	// Rendered is true when Description holds html rendered from markdown
	Rendered bool `json:"rendered"`
	// CreatedAt time when the note was inserted
	CreatedAt time.Time `json:"created_at"`
}

// Upload is one file submitted along with a note form
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}
