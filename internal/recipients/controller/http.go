package controller

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/harel159/email-automation-system/internal/platform/validation"
	"github.com/harel159/email-automation-system/internal/recipients/domain"
)

type Controller struct {
	svc  domain.Service
	auth echo.MiddlewareFunc
}

func New(svc domain.Service) *Controller {
	return &Controller{svc: svc}
}

// WithAuth protects every route of this controller with mw.
func (h *Controller) WithAuth(mw echo.MiddlewareFunc) *Controller {
	h.auth = mw
	return h
}

func (h *Controller) Register(e *echo.Echo) {
	var mws []echo.MiddlewareFunc
	if h.auth != nil {
		mws = append(mws, h.auth)
	}
	clients := e.Group("/api/clients", mws...)
	clients.GET("", h.listAuthorities)
	clients.POST("", h.createAuthority)
	clients.POST("/bulk-create", h.bulkCreate)
	clients.POST("/import", h.importSpreadsheet)
	clients.PUT("/:id", h.updateAuthority)
	clients.DELETE("/:id", h.deleteAuthority)

	customers := e.Group("/api/customers", mws...)
	customers.GET("", h.listCustomers)
	customers.POST("", h.createCustomer)
	customers.PUT("/:id", h.updateCustomer)
	customers.DELETE("/:id", h.deleteCustomer)
}

type createAuthorityReq struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Active *bool  `json:"active"`
}

type updateAuthorityReq struct {
	Name   *string `json:"name"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Active *bool   `json:"active"`
}

type bulkCreateReq struct {
	Authorities []struct {
		Name   string `json:"name"`
		Email  string `json:"email"`
		Active *bool  `json:"active"`
	} `json:"authorities" validate:"required"`
}

type importResp struct {
	Success bool               `json:"success"`
	Created []domain.Authority `json:"created"`
	Skipped int                `json:"skipped"`
}

type customerReq struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Phone  string `json:"phone"`
	Notes  string `json:"notes"`
	Active *bool  `json:"active"`
}

type updateCustomerReq struct {
	Name   *string `json:"name"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Phone  *string `json:"phone"`
	Notes  *string `json:"notes"`
	Active *bool   `json:"active"`
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func parseID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// writeErr maps domain errors onto HTTP statuses; anything unknown is a 500
// logged with the route.
func writeErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalid):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, domain.ErrConflict):
		return c.JSON(http.StatusConflict, map[string]string{"error": "email already exists"})
	default:
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// List Authorities godoc
// @Summary  List authorities with their last successful send
// @Produce  json
// @Param    active  query  bool  false  "only active rows"
// @Success  200  {array}  domain.Authority
// @Router   /api/clients [get]
func (h *Controller) listAuthorities(c echo.Context) error {
	onlyActive, _ := strconv.ParseBool(c.QueryParam("active"))
	items, err := h.svc.ListAuthorities(c.Request().Context(), onlyActive)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// Create Authority godoc
// @Summary  Create authority
// @Accept   json
// @Produce  json
// @Param    body  body  createAuthorityReq  true  "name and email"
// @Success  201  {object}  domain.Authority
// @Failure  400  {object}  map[string]string
// @Failure  409  {object}  map[string]string
// @Router   /api/clients [post]
func (h *Controller) createAuthority(c echo.Context) error {
	var req createAuthorityReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	a, err := h.svc.CreateAuthority(c.Request().Context(), domain.NewAuthority{
		Name:   req.Name,
		Email:  req.Email,
		Active: boolOr(req.Active, true),
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Controller) updateAuthority(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var req updateAuthorityReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	a, err := h.svc.UpdateAuthority(c.Request().Context(), id, domain.AuthorityPatch{
		Name:   req.Name,
		Email:  req.Email,
		Active: req.Active,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Controller) deleteAuthority(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if err := h.svc.DeleteAuthority(c.Request().Context(), id); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "deleted": id})
}

// Bulk Create godoc
// @Summary  Create many authorities, skipping emails that already exist
// @Accept   json
// @Produce  json
// @Param    body  body  bulkCreateReq  true  "authorities"
// @Success  200  {object}  importResp
// @Router   /api/clients/bulk-create [post]
func (h *Controller) bulkCreate(c echo.Context) error {
	var req bulkCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	in := make([]domain.NewAuthority, 0, len(req.Authorities))
	for _, a := range req.Authorities {
		in = append(in, domain.NewAuthority{Name: a.Name, Email: a.Email, Active: boolOr(a.Active, true)})
	}
	res, err := h.svc.BulkCreate(c.Request().Context(), in)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, importResp{Success: true, Created: res.Created, Skipped: res.Skipped})
}

// Import Spreadsheet godoc
// @Summary  Import authorities from the first sheet of an .xlsx file
// @Accept   multipart/form-data
// @Produce  json
// @Param    file  formData  file  true  "xlsx file"
// @Success  200  {object}  importResp
// @Failure  400  {object}  map[string]string
// @Router   /api/clients/import [post]
func (h *Controller) importSpreadsheet(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no file uploaded"})
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".xlsx") {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "only .xlsx files allowed"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable upload"})
	}
	defer f.Close()
	res, err := h.svc.ImportSpreadsheet(c.Request().Context(), f)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, importResp{Success: true, Created: res.Created, Skipped: res.Skipped})
}

func (h *Controller) listCustomers(c echo.Context) error {
	all, _ := strconv.ParseBool(c.QueryParam("all"))
	items, err := h.svc.ListCustomers(c.Request().Context(), all)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Controller) createCustomer(c echo.Context) error {
	var req customerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	cu, err := h.svc.CreateCustomer(c.Request().Context(), domain.NewCustomer{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Notes:  req.Notes,
		Active: boolOr(req.Active, true),
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, cu)
}

func (h *Controller) updateCustomer(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var req updateCustomerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	cu, err := h.svc.UpdateCustomer(c.Request().Context(), id, domain.CustomerPatch{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Notes:  req.Notes,
		Active: req.Active,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, cu)
}

func (h *Controller) deleteCustomer(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if err := h.svc.DeleteCustomer(c.Request().Context(), id); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "deleted": id})
}
