package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	edomain "github.com/harel159/email-automation-system/internal/email/domain"
	sdomain "github.com/harel159/email-automation-system/internal/settings/domain"
)

type captureSender struct {
	called bool
	last   edomain.Message
}

func (c *captureSender) Send(_ context.Context, msg edomain.Message) error {
	c.called = true
	c.last = msg
	return nil
}

func newTestRouter(vals map[string]string) (*Router, *captureSender, *captureSender) {
	r := NewRouter(mockSettings{vals: vals}, testConfig(), zerolog.Nop())
	// swap implementations with captures so we don't hit network
	smtpCap, brevoCap := &captureSender{}, &captureSender{}
	r.smtp, r.brevo, r.resend = smtpCap, brevoCap, &captureSender{}
	return r, smtpCap, brevoCap
}

func TestRouter_SelectsSMTP(t *testing.T) {
	r, smtpCap, brevoCap := newTestRouter(map[string]string{sdomain.KeyEmailProvider: "smtp"})
	require.NoError(t, r.Send(context.Background(), edomain.Message{To: []string{"a@b.com"}, Subject: "sub", HTML: "<p>body</p>"}))
	assert.True(t, smtpCap.called)
	assert.False(t, brevoCap.called)
}

func TestRouter_SelectsBrevo(t *testing.T) {
	r, smtpCap, brevoCap := newTestRouter(map[string]string{sdomain.KeyEmailProvider: "Brevo"})
	require.NoError(t, r.Send(context.Background(), edomain.Message{To: []string{"a@b.com"}}))
	assert.True(t, brevoCap.called)
	assert.False(t, smtpCap.called)
}

func TestRouter_FillsDefaults(t *testing.T) {
	r, smtpCap, _ := newTestRouter(map[string]string{sdomain.KeyReplyTo: "office@road.test"})
	require.NoError(t, r.Send(context.Background(), edomain.Message{To: []string{"a@b.com"}, HTML: "<p>hi</p>"}))
	assert.Equal(t, "Road", smtpCap.last.FromName)
	assert.Equal(t, "office@road.test", smtpCap.last.ReplyTo)
	assert.Equal(t, "hi", smtpCap.last.Text)

	require.NoError(t, r.Send(context.Background(), edomain.Message{To: []string{"a@b.com"}, FromName: "Desk", ReplyTo: "me@x.com"}))
	assert.Equal(t, "Desk", smtpCap.last.FromName)
	assert.Equal(t, "me@x.com", smtpCap.last.ReplyTo)
}

func TestRouter_SelectsResend(t *testing.T) {
	r, smtpCap, brevoCap := newTestRouter(map[string]string{sdomain.KeyEmailProvider: "resend"})
	require.NoError(t, r.Send(context.Background(), edomain.Message{To: []string{"a@b.com"}}))
	assert.True(t, r.resend.(*captureSender).called)
	assert.False(t, smtpCap.called)
	assert.False(t, brevoCap.called)
}

func TestRouter_UnknownProviderFallsBackToSMTP(t *testing.T) {
	r, smtpCap, _ := newTestRouter(map[string]string{sdomain.KeyEmailProvider: "carrier-pigeon"})
	require.NoError(t, r.Send(context.Background(), edomain.Message{To: []string{"a@b.com"}}))
	assert.True(t, smtpCap.called)
}

type downSettings struct{}

func (downSettings) GetString(_ context.Context, _ string, def string) (string, error) {
	return def, errors.New("connection refused")
}

func (downSettings) GetDuration(_ context.Context, _ string, def time.Duration) (time.Duration, error) {
	return def, nil
}

func (downSettings) GetInt(_ context.Context, _ string, def int) (int, error) { return def, nil }

func TestRouter_SettingsReadFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	r := NewRouter(downSettings{}, testConfig(), zerolog.New(&buf))
	smtpCap := &captureSender{}
	r.smtp, r.brevo, r.resend = smtpCap, &captureSender{}, &captureSender{}

	require.NoError(t, r.Send(context.Background(), edomain.Message{To: []string{"a@b.com"}}))
	assert.True(t, smtpCap.called)
	assert.Equal(t, "Road", smtpCap.last.FromName)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), sdomain.KeyEmailProvider)
	assert.Contains(t, buf.String(), "connection refused")
}
