package dao

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/Laisky/knote/internal/web/note/model"
)

// mockDB adapts a mocked mtest database to mongo.DB
type mockDB struct {
	db *mongoLib.Database
}

func (m *mockDB) Close(context.Context) error { return nil }
func (m *mockDB) CurrentDB() *mongoLib.Database { return m.db }
func (m *mockDB) GetCol(colName string) *mongoLib.Collection { return m.db.Collection(colName) }

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert sets id", func(mt *mtest.T) {
		store := NewMongo(&mockDB{db: mt.DB})
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		note := &model.Note{Description: "hello", CreatedAt: time.Now().UTC()}
		require.NoError(mt, store.Insert(context.Background(), note))
		require.Len(mt, note.ID, 24)
	})

	mt.Run("insert error", func(mt *mtest.T) {
		store := NewMongo(&mockDB{db: mt.DB})
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		note := &model.Note{Description: "hello"}
		err := store.Insert(context.Background(), note)
		require.Error(mt, err)
		require.Empty(mt, note.ID)
	})

	mt.Run("find all keeps store order", func(mt *mtest.T) {
		store := NewMongo(&mockDB{db: mt.DB})
		ids := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()}
		ns := mt.DB.Name() + "." + colNotes

		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: ids[0]},
				{Key: "description", Value: "A"},
				{Key: "rendered", Value: false},
			},
			bson.D{
				{Key: "_id", Value: ids[1]},
				{Key: "description", Value: "<p>B</p>\n"},
				{Key: "rendered", Value: true},
			},
		)
		killCursors := mtest.CreateCursorResponse(0, ns, mtest.NextBatch)
		mt.AddMockResponses(first, killCursors)

		notes, err := store.FindAll(context.Background())
		require.NoError(mt, err)
		require.Len(mt, notes, 2)
		require.Equal(mt, ids[0].Hex(), notes[0].ID)
		require.Equal(mt, "A", notes[0].Description)
		require.False(mt, notes[0].Rendered)
		require.Equal(mt, ids[1].Hex(), notes[1].ID)
		require.True(mt, notes[1].Rendered)
	})
}
