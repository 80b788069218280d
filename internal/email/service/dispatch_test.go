package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	edomain "github.com/harel159/email-automation-system/internal/email/domain"
	evdomain "github.com/harel159/email-automation-system/internal/events/domain"
	"github.com/harel159/email-automation-system/internal/storage"
	tdomain "github.com/harel159/email-automation-system/internal/templates/domain"
)

type fakeSender struct {
	reject map[string]string
	sent   []edomain.Message
}

func (f *fakeSender) Send(_ context.Context, msg edomain.Message) error {
	f.sent = append(f.sent, msg)
	for _, to := range msg.To {
		if reason, ok := f.reject[to]; ok {
			return errors.New(reason)
		}
	}
	return nil
}

type fakeLogs struct {
	rows []edomain.LogEntry
	err  error
}

func (f *fakeLogs) Insert(_ context.Context, e edomain.LogEntry) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, e)
	return nil
}

type fakeLookup struct {
	ids   map[string]int64
	calls int
	asked []string
}

func (f *fakeLookup) LookupAuthorityIDs(_ context.Context, emails []string) (map[string]int64, error) {
	f.calls++
	f.asked = emails
	return f.ids, nil
}

type fakeTemplates struct {
	tpl *tdomain.Template
}

func (f fakeTemplates) Current(context.Context) (tdomain.Template, bool, error) {
	if f.tpl == nil {
		return tdomain.Template{}, false, nil
	}
	return *f.tpl, true, nil
}

type fakePublisher struct{ events []evdomain.Event }

func (f *fakePublisher) Publish(_ context.Context, e evdomain.Event) error {
	f.events = append(f.events, e)
	return nil
}

type fixture struct {
	sender *fakeSender
	logs   *fakeLogs
	lookup *fakeLookup
	files  *storage.Local
	pub    *fakePublisher
	d      *Dispatcher
}

func newFixture(t *testing.T, tpl *tdomain.Template, onDisk ...string) *fixture {
	t.Helper()
	dir := t.TempDir()
	for _, name := range onDisk {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o644))
	}
	files, err := storage.NewLocal(dir)
	require.NoError(t, err)
	f := &fixture{
		sender: &fakeSender{reject: map[string]string{}},
		logs:   &fakeLogs{},
		lookup: &fakeLookup{ids: map[string]int64{}},
		files:  files,
		pub:    &fakePublisher{},
	}
	f.d = NewDispatcher(f.sender, f.logs, f.lookup, fakeTemplates{tpl: tpl}, files, zerolog.Nop()).WithPublisher(f.pub)
	return f
}

func templateWith(atts ...string) *tdomain.Template {
	t := &tdomain.Template{ID: 7, Subject: "s", BodyHTML: "b"}
	for i, name := range atts {
		t.Attachments = append(t.Attachments, tdomain.Attachment{
			ID: int64(i + 1), TemplateID: 7, FileName: "display-" + name, FileURL: storage.URLPrefix + name,
		})
	}
	return t
}

func TestSendAll_PartialFailure(t *testing.T) {
	f := newFixture(t, templateWith())
	f.sender.reject["bad@x.com"] = "550 mailbox unavailable"
	f.lookup.ids["a@x.com"] = 11

	results, err := f.d.SendAll(context.Background(), edomain.SendRequest{
		To:      []edomain.Recipient{{Email: "a@x.com", Name: "A"}, {Email: "bad@x.com", Name: "B"}},
		Subject: "Hi {{name}}",
		Body:    "<p>Hello {{firstName}}</p>",
	}, "op@road.test")
	require.NoError(t, err)

	assert.Equal(t, []edomain.Result{
		{To: "a@x.com", Success: true},
		{To: "bad@x.com", Success: false, Error: "550 mailbox unavailable"},
	}, results)

	require.Len(t, f.logs.rows, 2)
	assert.Equal(t, edomain.StatusSent, f.logs.rows[0].Status)
	require.NotNil(t, f.logs.rows[0].AuthorityID)
	assert.EqualValues(t, 11, *f.logs.rows[0].AuthorityID)
	assert.EqualValues(t, 7, *f.logs.rows[0].TemplateID)
	assert.Equal(t, edomain.StatusFailed, f.logs.rows[1].Status)
	assert.Nil(t, f.logs.rows[1].AuthorityID, "unknown recipients log a null authority")
	require.NotNil(t, f.logs.rows[1].Error)

	assert.Equal(t, 1, f.lookup.calls, "one batched lookup")
	assert.Equal(t, "Hi A", f.sender.sent[0].Subject)
	assert.Equal(t, `<div dir="rtl" style="direction:rtl;text-align:right"><p>Hello A</p></div>`, f.sender.sent[0].HTML)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, "email.bulk.completed", f.pub.events[0].Type)
	assert.Equal(t, "1", f.pub.events[0].Meta["failed"])
}

func TestSendAll_OneLogPerRecipient(t *testing.T) {
	f := newFixture(t, nil)
	var to []edomain.Recipient
	for _, e := range []string{"a@x.com", "b@x.com", "c@x.com", "A@x.com", "d@x.com"} {
		to = append(to, edomain.Recipient{Email: e})
	}
	f.sender.reject["c@x.com"] = "boom"

	results, err := f.d.SendAll(context.Background(), edomain.SendRequest{To: to, Subject: "s", Body: "b"}, "")
	require.NoError(t, err)
	require.Len(t, results, len(to))
	require.Len(t, f.logs.rows, len(to))
	for i := range to {
		assert.Equal(t, to[i].Email, results[i].To)
		assert.Equal(t, to[i].Email, f.logs.rows[i].Email)
		wantStatus := edomain.StatusSent
		if !results[i].Success {
			wantStatus = edomain.StatusFailed
		}
		assert.Equal(t, wantStatus, f.logs.rows[i].Status)
		assert.Nil(t, f.logs.rows[i].TemplateID)
	}
	assert.ElementsMatch(t, []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"}, f.lookup.asked)
}

func TestSendAll_EscapesRecipientName(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.d.SendAll(context.Background(), edomain.SendRequest{
		To:      []edomain.Recipient{{Email: "x@x.com", Name: "<script>"}},
		Subject: "s",
		Body:    "<p>{{name}} {{zzz}}</p>",
	}, "")
	require.NoError(t, err)
	assert.Contains(t, f.sender.sent[0].HTML, "<p>&lt;script&gt; </p>")
}

func TestSendAll_ValidationBeforeIO(t *testing.T) {
	f := newFixture(t, nil)
	cases := []edomain.SendRequest{
		{Subject: "s", Body: "b"},
		{To: []edomain.Recipient{{Email: "nope"}}, Subject: "s", Body: "b"},
		{To: []edomain.Recipient{{Email: "a@x.com"}}, Body: "b"},
		{To: []edomain.Recipient{{Email: "a@x.com"}}, Subject: "s"},
	}
	for _, req := range cases {
		_, err := f.d.SendAll(context.Background(), req, "")
		assert.ErrorIs(t, err, edomain.ErrInvalid)
	}
	assert.Zero(t, f.lookup.calls)
	assert.Empty(t, f.sender.sent)
	assert.Empty(t, f.logs.rows)
}

func TestSendAll_MissingTemplateFilesAreSkipped(t *testing.T) {
	f := newFixture(t, templateWith("present.pdf", "gone.pdf"), "present.pdf")
	results, err := f.d.SendAll(context.Background(), edomain.SendRequest{
		To: []edomain.Recipient{{Email: "a@x.com"}}, Subject: "s", Body: "b",
	}, "")
	require.NoError(t, err)
	assert.True(t, results[0].Success)
	atts := f.sender.sent[0].Attachments
	require.Len(t, atts, 1)
	assert.Equal(t, "display-present.pdf", atts[0].Filename)
	assert.Equal(t, "application/pdf", atts[0].ContentType)
	assert.Equal(t, filepath.Join(f.files.Dir(), "present.pdf"), atts[0].Path)
}

func TestSendAll_AllTemplateFilesMissingStillSends(t *testing.T) {
	f := newFixture(t, templateWith("gone.pdf"))
	results, err := f.d.SendAll(context.Background(), edomain.SendRequest{
		To: []edomain.Recipient{{Email: "a@x.com"}}, Subject: "s", Body: "b",
	}, "")
	require.NoError(t, err)
	assert.True(t, results[0].Success)
	assert.Empty(t, f.sender.sent[0].Attachments)
}

func TestSendAll_OneTimeAttachmentsWin(t *testing.T) {
	f := newFixture(t, templateWith("present.pdf"), "present.pdf")
	include := true
	_, err := f.d.SendAll(context.Background(), edomain.SendRequest{
		To:                 []edomain.Recipient{{Email: "a@x.com"}},
		Subject:            "s",
		Body:               "b",
		IncludeAttachments: &include,
		Attachments:        []edomain.Attachment{{Filename: "once.pdf", ContentType: "application/pdf", Content: []byte("x")}},
	}, "")
	require.NoError(t, err)
	atts := f.sender.sent[0].Attachments
	require.Len(t, atts, 1)
	assert.Equal(t, "once.pdf", atts[0].Filename)
}

func TestSendAll_IncludeAttachmentsFalse(t *testing.T) {
	f := newFixture(t, templateWith("present.pdf"), "present.pdf")
	include := false
	_, err := f.d.SendAll(context.Background(), edomain.SendRequest{
		To: []edomain.Recipient{{Email: "a@x.com"}}, Subject: "s", Body: "b", IncludeAttachments: &include,
	}, "")
	require.NoError(t, err)
	assert.Empty(t, f.sender.sent[0].Attachments)
}

func TestSendAll_LogFailureIsNotFatalAndErrorIsTruncated(t *testing.T) {
	f := newFixture(t, nil)
	f.logs.err = errors.New("db down")
	f.sender.reject["a@x.com"] = strings.Repeat("א", 800)
	results, err := f.d.SendAll(context.Background(), edomain.SendRequest{
		To: []edomain.Recipient{{Email: "a@x.com"}, {Email: "b@x.com"}}, Subject: "s", Body: "b",
	}, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, []rune(results[0].Error), 500)
	assert.True(t, results[1].Success)
}

func TestTestSend_DefaultsAndSingleCall(t *testing.T) {
	f := newFixture(t, templateWith("present.pdf", "gone.pdf"), "present.pdf")
	err := f.d.TestSend(context.Background(), edomain.TestSendRequest{To: []string{"a@x.com", "b@x.com"}}, "op@road.test")
	require.NoError(t, err)
	require.Len(t, f.sender.sent, 1)
	msg := f.sender.sent[0]
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, msg.To)
	assert.Equal(t, "No subject", msg.Subject)
	assert.Contains(t, msg.HTML, "<p>No content provided.</p>")
	assert.Len(t, msg.Attachments, 1)
	assert.Empty(t, f.logs.rows, "test sends are not logged per recipient")
}

func TestTestSend_ErrorsSurface(t *testing.T) {
	f := newFixture(t, nil)
	f.sender.reject["a@x.com"] = "relay refused"
	err := f.d.TestSend(context.Background(), edomain.TestSendRequest{To: []string{"a@x.com"}, Subject: "s", Body: "b"}, "")
	assert.EqualError(t, err, "relay refused")

	err = f.d.TestSend(context.Background(), edomain.TestSendRequest{To: []string{"not-an-email"}}, "")
	assert.ErrorIs(t, err, edomain.ErrInvalid)
}
