// Package service implements note submission and listing.
package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	gutils "github.com/Laisky/go-utils/v6"
	"github.com/Laisky/zap"

	"github.com/Laisky/knote/internal/web/note/blob"
	"github.com/Laisky/knote/internal/web/note/dao"
	"github.com/Laisky/knote/internal/web/note/model"
)

// Action is the button pressed on the note form
type Action int

const (
	// ActionNone neither publish nor upload, the form is echoed back
	ActionNone Action = iota
	// ActionPublish saves the description as a new note
	ActionPublish
	// ActionUpload stores the image and appends its reference to the description
	ActionUpload
)

// String implements fmt.Stringer
func (a Action) String() string {
	switch a {
	case ActionPublish:
		return "publish"
	case ActionUpload:
		return "upload"
	default:
		return "none"
	}
}

// SubmitResult is the outcome of Submit
type SubmitResult struct {
	// Description to show in the form
	Description string
	// Redirect is true when the client should go back to the listing
	Redirect bool
	// Note is the published note, nil if nothing was published
	Note *model.Note
}

// Note is the note service
type Note struct {
	store          dao.Store
	sink           blob.Sink
	renderMarkdown bool
	now            func() time.Time
}

// Option is an option for New
type Option func(*Note) error

// WithRenderMarkdown set whether to render markdown to html before saving,
// default to true
func WithRenderMarkdown(render bool) Option {
	return func(n *Note) error {
		n.renderMarkdown = render
		return nil
	}
}

// WithClock set the time source of CreatedAt
func WithClock(now func() time.Time) Option {
	return func(n *Note) error {
		if now == nil {
			return errors.New("clock should not be nil")
		}

		n.now = now
		return nil
	}
}

// New create a new note service.
//
// sink may be nil, then every upload fails with blob.ErrSinkUnavailable.
func New(store dao.Store, sink blob.Sink, opts ...Option) (*Note, error) {
	if store == nil {
		return nil, errors.New("store should not be nil")
	}

	n := &Note{
		store:          store,
		sink:           sink,
		renderMarkdown: true,
		now:            gutils.Clock.GetUTCNow,
	}
	for _, f := range opts {
		if err := f(n); err != nil {
			return nil, errors.Wrap(err, "apply option")
		}
	}

	return n, nil
}

// RenderMarkdown reports whether published notes are rendered to html
func (s *Note) RenderMarkdown() bool {
	return s.renderMarkdown
}

// Submit handles one form submission
func (s *Note) Submit(ctx context.Context,
	description string,
	action Action,
	upload *model.Upload,
) (*SubmitResult, error) {
	switch action {
	case ActionPublish:
		note, err := s.Publish(ctx, description)
		if err != nil {
			return nil, errors.Wrap(err, "publish")
		}

		return &SubmitResult{Redirect: true, Note: note}, nil
	case ActionUpload:
		desc, err := s.Upload(ctx, description, upload)
		if err != nil {
			return nil, errors.Wrap(err, "upload")
		}

		return &SubmitResult{Description: desc}, nil
	default:
		return &SubmitResult{Description: description}, nil
	}
}

// Publish saves description as a new note.
//
// blank description is ignored, returns nil note and nil error.
func (s *Note) Publish(ctx context.Context, description string) (*model.Note, error) {
	logger := gmw.GetLogger(ctx).Named("note_publish")

	description = strings.TrimSpace(description)
	if description == "" {
		logger.Debug("ignore blank note")
		return nil, nil
	}

	note := &model.Note{
		Description: description,
		CreatedAt:   s.now(),
	}
	if s.renderMarkdown {
		note.Description = Render(description)
		note.Rendered = true
	}

	if err := s.store.Insert(ctx, note); err != nil {
		return nil, errors.Wrap(err, "insert note")
	}

	logger.Info("note published",
		zap.String("id", note.ID),
		zap.Bool("rendered", note.Rendered))
	return note, nil
}

// Upload stores the uploaded file into the blob sink,
// returns description with the image reference appended.
//
// nil upload or upload without filename is ignored.
func (s *Note) Upload(ctx context.Context, description string, upload *model.Upload) (string, error) {
	logger := gmw.GetLogger(ctx).Named("note_upload")

	if upload == nil || upload.Filename == "" {
		logger.Debug("ignore empty upload")
		return description, nil
	}
	if s.sink == nil {
		return "", errors.WithStack(blob.ErrSinkUnavailable)
	}

	fileID := NewFileID(upload.Filename)
	location, err := s.sink.Store(ctx, upload.Reader, upload.Size, upload.ContentType, fileID)
	if err != nil {
		return "", errors.Wrapf(err, "store file %q", upload.Filename)
	}

	logger.Info("file uploaded",
		zap.String("filename", upload.Filename),
		zap.String("file_id", fileID),
		zap.Int64("size", upload.Size),
		zap.String("location", location))
	return description + " ![](" + location + ")", nil
}

// ListAll returns all notes, newest first
func (s *Note) ListAll(ctx context.Context) ([]*model.Note, error) {
	notes, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "find notes")
	}

	slices.Reverse(notes)
	return notes, nil
}
