package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	amw "github.com/harel159/email-automation-system/internal/auth/middleware"
	edomain "github.com/harel159/email-automation-system/internal/email/domain"
	"github.com/harel159/email-automation-system/internal/platform/validation"
)

type Controller struct {
	svc     edomain.Service
	session echo.MiddlewareFunc
	token   echo.MiddlewareFunc
}

func New(svc edomain.Service) *Controller { return &Controller{svc: svc} }

// WithAuth protects the operator endpoints (send-all, test-send).
func (h *Controller) WithAuth(mw echo.MiddlewareFunc) *Controller {
	h.session = mw
	return h
}

// WithToken protects the machine endpoint (send-all-token).
func (h *Controller) WithToken(mw echo.MiddlewareFunc) *Controller {
	h.token = mw
	return h
}

func mws(m echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if m == nil {
		return nil
	}
	return []echo.MiddlewareFunc{m}
}

func (h *Controller) Register(e *echo.Echo) {
	e.POST("/api/email/send-all", h.sendAll, mws(h.session)...)
	e.POST("/api/email/send-all-token", h.sendAll, mws(h.token)...)
	e.POST("/api/email/test-send", h.testSend, mws(h.session)...)
}

type sendAllResp struct {
	Success bool             `json:"success"`
	Results []edomain.Result `json:"results"`
}

// addressList accepts either "a@x.com" or ["a@x.com", ...].
type addressList []string

func (l *addressList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*l = splitAddresses(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

func splitAddresses(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type testSendReq struct {
	To       addressList `json:"to"`
	Subject  string      `json:"subject"`
	Body     string      `json:"body"`
	FromName string      `json:"from_name"`
	ReplyTo  string      `json:"reply_to"`
}

func actor(c echo.Context) string {
	a, _ := amw.UserEmail(c)
	return a
}

// Send All godoc
// @Summary  Personalized send to every recipient, one log row each
// @Accept   json,multipart/form-data
// @Produce  json
// @Param    body  body  edomain.SendRequest  true  "to, subject, body"
// @Success  200  {object}  sendAllResp
// @Failure  400  {object}  validation.ErrorBody
// @Router   /api/email/send-all [post]
func (h *Controller) sendAll(c echo.Context) error {
	req, err := decodeSendRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	results, err := h.svc.SendAll(c.Request().Context(), req, actor(c))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, sendAllResp{Success: true, Results: results})
}

// decodeSendRequest normalizes a JSON body, or a multipart body carrying the
// same JSON in a "json" field plus "attachments" file parts.
func decodeSendRequest(c echo.Context) (edomain.SendRequest, error) {
	var req edomain.SendRequest
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		if err := c.Bind(&req); err != nil {
			return req, errors.New("invalid json")
		}
		return req, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return req, errors.New("invalid multipart body")
	}
	raw := form.Value["json"]
	if len(raw) == 0 {
		return req, errors.New(`missing "json" field`)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw[0])))
	if err := dec.Decode(&req); err != nil {
		return req, errors.New("invalid json")
	}
	for _, fh := range form.File["attachments"] {
		f, err := fh.Open()
		if err != nil {
			return req, errors.New("unreadable attachment")
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return req, errors.New("unreadable attachment")
		}
		req.Attachments = append(req.Attachments, edomain.Attachment{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Content:     content,
		})
	}
	return req, nil
}

// Test Send godoc
// @Summary  One unpersonalized send to every address, with template attachments
// @Accept   json
// @Produce  json
// @Success  200  {object}  map[string]bool
// @Failure  500  {object}  map[string]any
// @Router   /api/email/test-send [post]
func (h *Controller) testSend(c echo.Context) error {
	var req testSendReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	err := h.svc.TestSend(c.Request().Context(), edomain.TestSendRequest{
		To:       req.To,
		Subject:  req.Subject,
		Body:     req.Body,
		FromName: req.FromName,
		ReplyTo:  req.ReplyTo,
	}, actor(c))
	if errors.Is(err, edomain.ErrInvalid) {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	if err != nil {
		c.Logger().Errorf("test send: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true, "sent": true})
}

func writeErr(c echo.Context, err error) error {
	if errors.Is(err, edomain.ErrInvalid) {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
