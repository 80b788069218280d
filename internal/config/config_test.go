package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ADDR", "PORT", "EMAIL_PROVIDER", "MAIL_FROM_NAME", "ALLOWED_USERS", "ATTACHMENTS_DIR", "SMTP_FROM", "SMTP_USERNAME", "EMAIL_USER", "SHUTDOWN_TIMEOUT"} {
		t.Setenv(k, "")
	}
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.AppAddr)
	assert.Equal(t, "smtp", c.EmailProvider)
	assert.Equal(t, "Road", c.MailFromName)
	assert.Equal(t, "attachments", c.AttachmentsDir)
	assert.Equal(t, "no-reply@local.dev", c.SMTPFrom)
	assert.Equal(t, http.SameSiteLaxMode, c.CookieSameSite)
	assert.Empty(t, c.AllowedUsers)
	assert.Equal(t, 5*time.Minute, c.ShutdownTimeout)
}

func TestLoad_PortAndLegacySMTPNames(t *testing.T) {
	t.Setenv("APP_ADDR", "")
	t.Setenv("PORT", "5000")
	t.Setenv("SMTP_USERNAME", "")
	t.Setenv("SMTP_FROM", "")
	t.Setenv("EMAIL_USER", "ops@example.com")
	t.Setenv("EMAIL_PASS", "secret")
	t.Setenv("SESSION_TTL", "2h")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":5000", c.AppAddr)
	assert.Equal(t, "ops@example.com", c.SMTPUsername)
	assert.Equal(t, "ops@example.com", c.SMTPFrom)
	assert.Equal(t, "secret", c.SMTPPassword)
	assert.Equal(t, 2*time.Hour, c.SessionTTL)
}

func TestLoad_AllowedUsersLowercased(t *testing.T) {
	t.Setenv("ALLOWED_USERS", " Ops@Example.com, ,admin@x.io ")
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@example.com", "admin@x.io"}, c.AllowedUsers)
}

func TestLoad_InvalidProvider(t *testing.T) {
	t.Setenv("EMAIL_PROVIDER", "carrier-pigeon")
	_, err := Load()
	assert.Error(t, err)
}

func TestSplitCSV_EmptyIsWildcard(t *testing.T) {
	assert.Equal(t, []string{"*"}, splitCSV(" , "))
}
