package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"
)

// MailerClient talks to the mailer API. Session routes use the cookie
// obtained by Login; the token route uses the static bearer token.
type MailerClient struct {
	BaseURL    string
	Token      string
	Session    string
	CookieName string
	HTTP       *http.Client
	Out        io.Writer
}

type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

type Authority struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Active        bool       `json:"active"`
	LastEmailSent *time.Time `json:"last_email_sent"`
}

type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type SendResult struct {
	To      string `json:"to"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
	Cache  string `json:"cache"`
	Time   string `json:"time"`
}

func (c *MailerClient) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 5 * time.Minute}
}

func (c *MailerClient) out() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

func (c *MailerClient) cookieName() string {
	if c.CookieName != "" {
		return c.CookieName
	}
	return "mailer_sid"
}

func (c *MailerClient) newRequest(method, path string, body io.Reader, contentType string) (*http.Request, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	logVerbose("Making %s request to %s", method, url)
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Session != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName(), Value: c.Session})
	}
	return req, nil
}

func (c *MailerClient) doJSON(req *http.Request, target any) (*http.Response, error) {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	logVerbose("Response status: %s", resp.Status)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			if len(errResp.Fields) > 0 {
				return resp, fmt.Errorf("API error (%d): %s %v", resp.StatusCode, errResp.Error, errResp.Fields)
			}
			return resp, fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error)
		}
		return resp, fmt.Errorf("API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if target != nil {
		if err := json.Unmarshal(body, target); err != nil {
			return resp, fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return resp, nil
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return bytes.NewReader(b), nil
}

// Login posts the CryptoJS ciphertext of the password and returns the
// session cookie value.
func (c *MailerClient) Login(email, encryptedPassword string) (string, error) {
	body, err := jsonBody(map[string]string{"email": email, "password": encryptedPassword})
	if err != nil {
		return "", err
	}
	req, err := c.newRequest(http.MethodPost, "/api/login", body, "application/json")
	if err != nil {
		return "", err
	}
	resp, err := c.doJSON(req, nil)
	if err != nil {
		return "", err
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == c.cookieName() && ck.Value != "" {
			c.Session = ck.Value
			return ck.Value, nil
		}
	}
	return "", fmt.Errorf("login succeeded but no %s cookie was returned", c.cookieName())
}

func (c *MailerClient) ListClients(activeOnly bool) ([]Authority, error) {
	path := "/api/clients"
	if activeOnly {
		path += "?active=true"
	}
	req, err := c.newRequest(http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	var items []Authority
	if _, err := c.doJSON(req, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *MailerClient) PrintClients(items []Authority) {
	w := tabwriter.NewWriter(c.out(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tACTIVE\tLAST SENT")
	for _, a := range items {
		last := "-"
		if a.LastEmailSent != nil {
			last = a.LastEmailSent.Local().Format("2006-01-02 15:04")
		}
		active := "No"
		if a.Active {
			active = "Yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Email, active, last)
	}
	_ = w.Flush()
}

type importResult struct {
	Success bool        `json:"success"`
	Created []Authority `json:"created"`
	Skipped int         `json:"skipped"`
}

// Import uploads an .xlsx sheet of authorities.
func (c *MailerClient) Import(path string) (importResult, error) {
	var res importResult
	f, err := os.Open(path)
	if err != nil {
		return res, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return res, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return res, err
	}
	if err := mw.Close(); err != nil {
		return res, err
	}
	req, err := c.newRequest(http.MethodPost, "/api/clients/import", &buf, mw.FormDataContentType())
	if err != nil {
		return res, err
	}
	_, err = c.doJSON(req, &res)
	return res, err
}

type sendAllRequest struct {
	To                 []Recipient `json:"to"`
	Subject            string      `json:"subject"`
	Body               string      `json:"body"`
	IncludeAttachments *bool       `json:"include_attachments,omitempty"`
}

// SendAll uses the token route so it works without a session.
func (c *MailerClient) SendAll(to []Recipient, subject, body string, withTemplateFiles bool) ([]SendResult, error) {
	reqBody, err := jsonBody(sendAllRequest{To: to, Subject: subject, Body: body, IncludeAttachments: &withTemplateFiles})
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(http.MethodPost, "/api/email/send-all-token", reqBody, "application/json")
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	var out struct {
		Success bool         `json:"success"`
		Results []SendResult `json:"results"`
	}
	if _, err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *MailerClient) CheckHealth() (HealthResponse, error) {
	var h HealthResponse
	req, err := c.newRequest(http.MethodGet, "/healthz", nil, "")
	if err != nil {
		return h, err
	}
	_, err = c.doJSON(req, &h)
	return h, err
}
