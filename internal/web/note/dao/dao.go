// Package dao persists notes.
package dao

import (
	"context"

	"github.com/Laisky/knote/internal/web/note/model"
)

// Store is where notes live.
//
// FindAll returns notes in store order, which is insertion order for both backends.
// Inserts are single-document and atomic, nothing else is coordinated.
type Store interface {
	// Insert saves note and sets note.ID
	Insert(ctx context.Context, note *model.Note) error
	// FindAll loads every note in store order
	FindAll(ctx context.Context) ([]*model.Note, error)
}
