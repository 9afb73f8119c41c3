// Package controller serves the note pages.
package controller

import (
	"context"
	"embed"
	"html/template"
	"mime/multipart"
	"net/http"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/knote/internal/web/note/model"
	"github.com/Laisky/knote/internal/web/note/service"
)

const (
	formDescription  = "description"
	formImage        = "image"
	formPublish      = "publish"
	formUploadButton = "upload"

	publishValue = "Publish"
	uploadValue  = "Upload"
)

//go:embed templates/index.html
var templatesFS embed.FS

var indexTpl = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

type noteView struct {
	ID       string
	Rendered bool
	HTML     template.HTML
	Text     string
}

type indexPage struct {
	Description string
	Notes       []noteView
}

// Note handles the note form and listing
type Note struct {
	svc *service.Note
}

// New create a note controller
func New(svc *service.Note) *Note {
	return &Note{svc: svc}
}

// Register mounts the note routes
func (c *Note) Register(r gin.IRoutes) {
	r.GET("/", c.Index)
	r.POST("/note", c.Submit)
}

// Index renders all notes, newest first
func (c *Note) Index(ctx *gin.Context) {
	c.render(ctx, "")
}

// Submit handles the note form.
//
// Publish redirects to the listing, upload and other submissions re-render the page
// with the resulting description.
func (c *Note) Submit(ctx *gin.Context) {
	logger := gmw.GetLogger(ctx).Named("note_submit")

	action := formAction(ctx)
	var upload *model.Upload
	if action == service.ActionUpload {
		var closeFn func()
		var err error
		if upload, closeFn, err = formUpload(ctx); err != nil {
			abortInternal(ctx, err, "read uploaded file")
			return
		}
		defer closeFn()
	}

	ret, err := c.svc.Submit(ctx, ctx.PostForm(formDescription), action, upload)
	if err != nil {
		abortInternal(ctx, err, "submit note")
		return
	}

	logger.Debug("note submitted", zap.String("action", action.String()))
	if ret.Redirect {
		ctx.Redirect(http.StatusFound, "/")
		return
	}

	c.render(ctx, ret.Description)
}

func (c *Note) render(ctx *gin.Context, description string) {
	page, err := c.loadPage(ctx, description)
	if err != nil {
		abortInternal(ctx, err, "load notes")
		return
	}

	ctx.Header("Content-Type", "text/html; charset=utf-8")
	ctx.Status(http.StatusOK)
	if err = indexTpl.Execute(ctx.Writer, page); err != nil {
		gmw.GetLogger(ctx).Error("render index", zap.Error(err))
	}
}

func (c *Note) loadPage(ctx context.Context, description string) (*indexPage, error) {
	notes, err := c.svc.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list notes")
	}

	page := &indexPage{
		Description: description,
		Notes:       make([]noteView, 0, len(notes)),
	}
	for _, n := range notes {
		v := noteView{ID: n.ID, Rendered: n.Rendered}
		if n.Rendered {
			v.HTML = template.HTML(n.Description) //nolint:gosec // rendered without raw html
		} else {
			v.Text = n.Description
		}

		page.Notes = append(page.Notes, v)
	}

	return page, nil
}

func formAction(ctx *gin.Context) service.Action {
	switch {
	case ctx.PostForm(formPublish) == publishValue:
		return service.ActionPublish
	case ctx.PostForm(formUploadButton) == uploadValue:
		return service.ActionUpload
	default:
		return service.ActionNone
	}
}

// formUpload opens the uploaded image, returns nil upload if no file is attached
func formUpload(ctx *gin.Context) (*model.Upload, func(), error) {
	fh, err := ctx.FormFile(formImage)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}

		return nil, nil, errors.Wrap(err, "get form file")
	}

	fp, err := fh.Open()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open form file %q", fh.Filename)
	}

	upload := &model.Upload{
		Filename:    fh.Filename,
		ContentType: contentType(fh),
		Size:        fh.Size,
		Reader:      fp,
	}
	closeFn := func() {
		if err := fp.Close(); err != nil {
			gmw.GetLogger(ctx).Warn("close form file", zap.Error(err))
		}
	}

	return upload, closeFn, nil
}

func contentType(fh *multipart.FileHeader) string {
	return fh.Header.Get("Content-Type")
}

func abortInternal(ctx *gin.Context, err error, msg string) {
	gmw.GetLogger(ctx).Error(msg, zap.Error(err))
	ctx.String(http.StatusInternalServerError, "internal server error")
	ctx.Abort()
}
