package service

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	edomain "github.com/harel159/email-automation-system/internal/email/domain"
)

// Any run of characters without braces is a key, so Hebrew or punctuated
// keys are matched too.
var placeholder = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)

// Render substitutes {{key}} with the HTML-escaped value of vars[key].
// Unknown keys, including the empty {{}}, render as the empty string.
func Render(tpl string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
		key := strings.TrimSpace(placeholder.FindStringSubmatch(m)[1])
		return html.EscapeString(vars[key])
	})
}

// RecipientVars derives the template variables for one recipient. An empty
// name leaves every name variable empty.
func RecipientVars(r edomain.Recipient) map[string]string {
	full := strings.Join(strings.Fields(r.Name), " ")
	first, last := "", ""
	if parts := strings.Fields(full); len(parts) > 0 {
		first = parts[0]
		last = strings.Join(parts[1:], " ")
	}
	return map[string]string{
		"name":      full,
		"fullName":  full,
		"firstName": first,
		"lastName":  last,
		"email":     r.Email,
	}
}

const rtlOpen = `<div dir="rtl" style="direction:rtl;text-align:right">`

// WrapRTL puts body in a right-to-left container.
func WrapRTL(body string) string {
	return rtlOpen + body + `</div>`
}

var (
	textPolicy = bluemonday.StrictPolicy()
	blockTags  = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li|/h[1-6]|/tr)\s*/?>`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// PlainText is the text/plain alternative of an HTML body.
func PlainText(body string) string {
	s := blockTags.ReplaceAllString(body, "$0\n")
	s = html.UnescapeString(textPolicy.Sanitize(s))
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	s = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}
