package controller

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harel159/email-automation-system/internal/platform/validation"
	"github.com/harel159/email-automation-system/internal/storage"
	"github.com/harel159/email-automation-system/internal/templates/domain"
)

// Uploader persists one uploaded file in the attachments directory.
type Uploader interface {
	Save(ctx context.Context, originalName string, r io.Reader) (storage.FileInfo, error)
}

type Controller struct {
	svc      domain.Service
	uploader Uploader
	auth     echo.MiddlewareFunc
}

func New(svc domain.Service, uploader Uploader) *Controller {
	return &Controller{svc: svc, uploader: uploader}
}

func (h *Controller) WithAuth(mw echo.MiddlewareFunc) *Controller {
	h.auth = mw
	return h
}

func (h *Controller) Register(e *echo.Echo) {
	var mws []echo.MiddlewareFunc
	if h.auth != nil {
		mws = append(mws, h.auth)
	}
	g := e.Group("/api/email", mws...)
	g.GET("/template", h.getTemplate)
	g.POST("/template", h.createTemplate)
	g.PUT("/template/:id", h.updateTemplate)
	g.POST("/attachments", h.addAttachment)
	g.POST("/attachments/delete", h.deleteAttachment)
	g.GET("/attachments/files", h.listFiles)
	g.POST("/upload-attachment", h.upload)
}

// templateResp renders a missing template as id=null rather than 0.
type templateResp struct {
	ID          *int64              `json:"id"`
	Title       string              `json:"title"`
	Subject     string              `json:"subject"`
	BodyHTML    string              `json:"body_html"`
	Attachments []domain.Attachment `json:"attachments"`
}

func toResp(t domain.Template, ok bool) templateResp {
	r := templateResp{Title: t.Title, Subject: t.Subject, BodyHTML: t.BodyHTML, Attachments: t.Attachments}
	if ok {
		id := t.ID
		r.ID = &id
	}
	if r.Attachments == nil {
		r.Attachments = []domain.Attachment{}
	}
	return r
}

type saveTemplateReq struct {
	ID       *int64 `json:"id"`
	Title    string `json:"title"`
	Subject  string `json:"subject" validate:"required"`
	BodyHTML string `json:"body_html" validate:"required"`
}

type addAttachmentReq struct {
	TemplateID int64  `json:"template_id" validate:"required,gt=0"`
	FileName   string `json:"file_name" validate:"required"`
	FileURL    string `json:"file_url" validate:"required"`
}

type deleteAttachmentReq struct {
	ID             int64 `json:"id" validate:"required,gt=0"`
	AlsoDeleteFile bool  `json:"also_delete_file"`
}

type fileResp struct {
	Name    string    `json:"name"`
	URL     string    `json:"url"`
	SizeKB  float64   `json:"size_kb"`
	ModTime time.Time `json:"mod_time"`
}

type uploadResp struct {
	Success          bool   `json:"success"`
	SavedFilename    string `json:"savedFilename"`
	OriginalFilename string `json:"originalFilename"`
	URL              string `json:"url"`
}

func writeErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalid), errors.Is(err, domain.ErrFileMissing):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// Get Template godoc
// @Summary  Current template with its attachments
// @Produce  json
// @Success  200  {object}  templateResp
// @Router   /api/email/template [get]
func (h *Controller) getTemplate(c echo.Context) error {
	t, ok, err := h.svc.Current(c.Request().Context())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, toResp(t, ok))
}

// Save Template godoc
// @Summary  Save the template (updates the existing one when present)
// @Accept   json
// @Produce  json
// @Param    body  body  saveTemplateReq  true  "title, subject, body_html"
// @Success  200  {object}  templateResp
// @Failure  400  {object}  map[string]string
// @Router   /api/email/template [post]
func (h *Controller) createTemplate(c echo.Context) error {
	var req saveTemplateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	return h.save(c, req.ID, req)
}

func (h *Controller) updateTemplate(c echo.Context) error {
	var req saveTemplateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	return h.save(c, &id, req)
}

func (h *Controller) save(c echo.Context, id *int64, req saveTemplateReq) error {
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	t, err := h.svc.Save(c.Request().Context(), id, domain.TemplateInput{
		Title:    req.Title,
		Subject:  req.Subject,
		BodyHTML: req.BodyHTML,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, toResp(t, true))
}

// Add Attachment godoc
// @Summary  Attach an uploaded file to the template
// @Accept   json
// @Produce  json
// @Param    body  body  addAttachmentReq  true  "template_id, file_name, file_url"
// @Success  201  {object}  domain.Attachment
// @Failure  400  {object}  map[string]string
// @Failure  404  {object}  map[string]string
// @Router   /api/email/attachments [post]
func (h *Controller) addAttachment(c echo.Context) error {
	var req addAttachmentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	a, err := h.svc.AddAttachment(c.Request().Context(), domain.NewAttachment{
		TemplateID: req.TemplateID,
		FileName:   req.FileName,
		FileURL:    req.FileURL,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Controller) deleteAttachment(c echo.Context) error {
	var req deleteAttachmentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	res, err := h.svc.DeleteAttachment(c.Request().Context(), req.ID, req.AlsoDeleteFile)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "deleted": res.ID, "file_deleted": res.FileDeleted})
}

func (h *Controller) listFiles(c echo.Context) error {
	files, err := h.svc.ListFiles(c.Request().Context())
	if err != nil {
		return writeErr(c, err)
	}
	out := make([]fileResp, 0, len(files))
	for _, f := range files {
		out = append(out, fileResp{
			Name:    f.Name,
			URL:     f.URL,
			SizeKB:  float64(f.Size*10/1024) / 10,
			ModTime: f.ModTime,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Upload Attachment godoc
// @Summary  Upload one PDF into the attachments directory
// @Accept   multipart/form-data
// @Produce  json
// @Param    file  formData  file  true  "PDF file"
// @Success  200  {object}  uploadResp
// @Failure  400  {object}  map[string]string
// @Router   /api/email/upload-attachment [post]
func (h *Controller) upload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no file uploaded"})
	}
	files := form.File["file"]
	switch {
	case len(files) == 0:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no file uploaded"})
	case len(files) > 1:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "exactly one file per upload"})
	}
	fh := files[0]
	if err := storage.RequireExtension(fh.Filename, ".pdf"); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable upload"})
	}
	defer f.Close()

	info, err := h.uploader.Save(c.Request().Context(), fh.Filename, f)
	if errors.Is(err, storage.ErrEmptyFile) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is empty"})
	}
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, uploadResp{
		Success:          true,
		SavedFilename:    info.Name,
		OriginalFilename: info.OriginalName,
		URL:              info.URL,
	})
}
