package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	edomain "github.com/harel159/email-automation-system/internal/email/domain"
	sdomain "github.com/harel159/email-automation-system/internal/settings/domain"
)

type mockSettings struct{ vals map[string]string }

func (m mockSettings) GetString(_ context.Context, key string, def string) (string, error) {
	if v, ok := m.vals[key]; ok {
		return v, nil
	}
	return def, nil
}

func (m mockSettings) GetDuration(_ context.Context, _ string, def time.Duration) (time.Duration, error) {
	return def, nil
}

func (m mockSettings) GetInt(_ context.Context, _ string, def int) (int, error) { return def, nil }

var _ sdomain.Service = (*mockSettings)(nil)

func newMockedBrevo(t *testing.T, settings sdomain.Service) *Brevo {
	t.Helper()
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)
	cfg := testConfig()
	cfg.BrevoAPIKey = "cfg-key"
	return NewBrevo(settings, cfg, client)
}

func TestBrevo_PostsPayload(t *testing.T) {
	b := newMockedBrevo(t, mockSettings{vals: map[string]string{sdomain.KeyBrevoAPIKey: "settings-key"}})
	pdf := filepath.Join(t.TempDir(), "a.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("disk"), 0o644))

	var got brevoEmail
	var gotKey string
	httpmock.RegisterResponder(http.MethodPost, brevoEndpoint, func(req *http.Request) (*http.Response, error) {
		gotKey = req.Header.Get("api-key")
		if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
			return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
		}
		return httpmock.NewStringResponse(http.StatusCreated, `{"messageId":"<1@brevo>"}`), nil
	})

	err := b.Send(context.Background(), edomain.Message{
		To:       []string{"a@x.com", "b@x.com"},
		Subject:  "שלום",
		HTML:     "<p>hi</p>",
		Text:     "hi",
		FromName: "Road",
		ReplyTo:  "office@road.test",
		Attachments: []edomain.Attachment{
			{Filename: "מסמך.pdf", Path: pdf},
			{Filename: "mem.pdf", Content: []byte("mem")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Equal(t, "settings-key", gotKey)
	assert.Equal(t, brevoAddress{Email: "mailer@road.test", Name: "Road"}, got.Sender)
	assert.Len(t, got.To, 2)
	require.NotNil(t, got.ReplyTo)
	assert.Equal(t, "office@road.test", got.ReplyTo.Email)
	require.Len(t, got.Attachment, 2)
	assert.Equal(t, "מסמך.pdf", got.Attachment[0].Name)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("disk")), got.Attachment[0].Content)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("mem")), got.Attachment[1].Content)
}

func TestBrevo_ErrorStatus(t *testing.T) {
	b := newMockedBrevo(t, mockSettings{})
	httpmock.RegisterResponder(http.MethodPost, brevoEndpoint,
		httpmock.NewStringResponder(http.StatusBadRequest, `{"code":"invalid_parameter"}`))

	err := b.Send(context.Background(), edomain.Message{To: []string{"a@x.com"}, Subject: "s", HTML: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid_parameter")
}

func TestBrevo_MissingKey(t *testing.T) {
	b := newMockedBrevo(t, mockSettings{})
	b.cfg.BrevoAPIKey = ""
	err := b.Send(context.Background(), edomain.Message{To: []string{"a@x.com"}})
	assert.EqualError(t, err, "brevo not configured")
	assert.Zero(t, httpmock.GetTotalCallCount())
}
