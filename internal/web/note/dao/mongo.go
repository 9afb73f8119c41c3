package dao

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoLib "go.mongodb.org/mongo-driver/mongo"

	"github.com/Laisky/knote/internal/web/note/model"
	"github.com/Laisky/knote/library/db/mongo"
)

const colNotes = "notes"

var _ Store = (*Mongo)(nil)

// Mongo stores notes in the `notes` collection
type Mongo struct {
	db mongo.DB
}

// noteDoc is the bson layout of a note
type noteDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Description string             `bson:"description"`
	Rendered    bool               `bson:"rendered"`
	CreatedAt   time.Time          `bson:"created_at"`
}

// NewMongo create new mongo note store
func NewMongo(db mongo.DB) *Mongo {
	return &Mongo{db: db}
}

// GetNotesCol get notes collection
func (d *Mongo) GetNotesCol() *mongoLib.Collection {
	return d.db.GetCol(colNotes)
}

// Insert saves note, the id is generated by mongo
func (d *Mongo) Insert(ctx context.Context, note *model.Note) error {
	res, err := d.GetNotesCol().InsertOne(ctx, noteDoc{
		Description: note.Description,
		Rendered:    note.Rendered,
		CreatedAt:   note.CreatedAt,
	})
	if err != nil {
		return errors.Wrap(err, "insert note")
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return errors.Errorf("unexpected inserted id type %T", res.InsertedID)
	}

	note.ID = oid.Hex()
	return nil
}

// FindAll loads all notes in natural order
func (d *Mongo) FindAll(ctx context.Context) ([]*model.Note, error) {
	cur, err := d.GetNotesCol().Find(ctx, bson.D{})
	if err != nil {
		return nil, errors.Wrap(err, "find notes")
	}
	defer cur.Close(ctx) // nolint: errcheck

	var docs []noteDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "load notes")
	}

	notes := make([]*model.Note, 0, len(docs))
	for _, doc := range docs {
		notes = append(notes, &model.Note{
			ID:          doc.ID.Hex(),
			Description: doc.Description,
			Rendered:    doc.Rendered,
			CreatedAt:   doc.CreatedAt,
		})
	}

	return notes, nil
}
