package service

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/harel159/email-automation-system/internal/recipients/domain"
)

// Header aliases, compared after lower-casing and trimming. The Hebrew
// variants match the spreadsheets operators export from their address books.
var (
	nameHeaders   = []string{"name", "full name", "authority", "שם", "שם מלא", "רשות"}
	emailHeaders  = []string{"email", "e-mail", "mail", "אימייל", "מייל", "דוא\"ל", "דואל"}
	activeHeaders = []string{"active", "פעיל"}
)

type columns struct{ name, email, active int }

// ParseSpreadsheet reads authorities from the first sheet of an .xlsx file.
// When the first row carries recognised headers they pick the columns;
// otherwise column A is the name and column B the email and every row is data.
func ParseSpreadsheet(r io.Reader) ([]domain.NewAuthority, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return []domain.NewAuthority{}, nil
	}

	cols, hasHeader := detectColumns(rows[0])
	if hasHeader {
		rows = rows[1:]
	}
	out := make([]domain.NewAuthority, 0, len(rows))
	for _, row := range rows {
		email := cell(row, cols.email)
		if email == "" {
			continue
		}
		out = append(out, domain.NewAuthority{
			Name:   cell(row, cols.name),
			Email:  email,
			Active: parseActive(cell(row, cols.active)),
		})
	}
	return out, nil
}

func detectColumns(header []string) (columns, bool) {
	c := columns{name: -1, email: -1, active: -1}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case c.name < 0 && contains(nameHeaders, h):
			c.name = i
		case c.email < 0 && contains(emailHeaders, h):
			c.email = i
		case c.active < 0 && contains(activeHeaders, h):
			c.active = i
		}
	}
	if c.email < 0 {
		return columns{name: 0, email: 1, active: -1}, false
	}
	return c, true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseActive defaults to true; only explicit negatives deactivate.
func parseActive(v string) bool {
	switch strings.ToLower(v) {
	case "false", "0", "no", "n", "לא", "inactive":
		return false
	default:
		return true
	}
}
