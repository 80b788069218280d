package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/harel159/email-automation-system/internal/config"
	"github.com/harel159/email-automation-system/internal/db"
	rdomain "github.com/harel159/email-automation-system/internal/recipients/domain"
	rrepo "github.com/harel159/email-automation-system/internal/recipients/repository"
	tdomain "github.com/harel159/email-automation-system/internal/templates/domain"
	trepo "github.com/harel159/email-automation-system/internal/templates/repository"
)

var demoAuthorities = []rdomain.NewAuthority{
	{Name: "Tel Aviv-Yafo Municipality", Email: "roads@tel-aviv.example.org", Active: true},
	{Name: "Haifa Municipality", Email: "safety@haifa.example.org", Active: true},
	{Name: "Jerusalem Municipality", Email: "transport@jerusalem.example.org", Active: true},
	{Name: "Be'er Sheva Municipality", Email: "roads@beer-sheva.example.org", Active: false},
}

var demoCustomers = []rdomain.NewCustomer{
	{Name: "Dana Levi", Email: "dana@customer.example.org", Phone: "050-0000001", Active: true},
	{Name: "Yossi Cohen", Email: "yossi@customer.example.org", Phone: "050-0000002", Notes: "prefers phone", Active: true},
}

const (
	demoSubject = "Road hazard report for {{name}}"
	demoBody    = `<p>Hello {{firstName}},</p><p>Please find attached the latest road hazard report for your area.</p>`
)

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	sub := os.Args[1]
	fs := flag.NewFlagSet(sub, flag.ExitOnError)
	dsn := fs.String("database-url", "", "overrides DATABASE_URL")
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.Load()
	if err != nil {
		fatalf("load config: %v", err)
	}
	if *dsn != "" {
		cfg.DatabaseURL = *dsn
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		fatalf("%v", err)
	}
	defer pool.Close()

	recipients := rrepo.New(pool)
	templates := trepo.New(pool)

	out := map[string]string{}
	run := func(name string, fn func() (string, error)) {
		v, err := fn()
		if err != nil {
			fatalf("%s: %v", name, err)
		}
		out[name] = v
	}
	switch sub {
	case "authorities":
		run("AUTHORITIES_CREATED", func() (string, error) { return seedAuthorities(ctx, recipients) })
	case "customers":
		run("CUSTOMERS_CREATED", func() (string, error) { return seedCustomers(ctx, recipients) })
	case "template":
		run("TEMPLATE_ID", func() (string, error) { return seedTemplate(ctx, templates) })
	case "all":
		run("AUTHORITIES_CREATED", func() (string, error) { return seedAuthorities(ctx, recipients) })
		run("CUSTOMERS_CREATED", func() (string, error) { return seedCustomers(ctx, recipients) })
		run("TEMPLATE_ID", func() (string, error) { return seedTemplate(ctx, templates) })
	default:
		usage()
		os.Exit(2)
	}
	printEnv(out)
}

type authoritySeeder interface {
	InsertAuthoritiesIgnoringDuplicates(ctx context.Context, in []rdomain.NewAuthority) ([]rdomain.Authority, error)
}

type customerSeeder interface {
	ListCustomers(ctx context.Context, includeInactive bool) ([]rdomain.Customer, error)
	CreateCustomer(ctx context.Context, in rdomain.NewCustomer) (rdomain.Customer, error)
}

type templateSeeder interface {
	EnsureCurrent(ctx context.Context) (tdomain.Template, error)
	UpdateTemplate(ctx context.Context, id int64, in tdomain.TemplateInput) (tdomain.Template, error)
}

// seedAuthorities relies on the unique email index, so re-running only
// reports rows created this time.
func seedAuthorities(ctx context.Context, r authoritySeeder) (string, error) {
	created, err := r.InsertAuthoritiesIgnoringDuplicates(ctx, demoAuthorities)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(len(created)), nil
}

func seedCustomers(ctx context.Context, r customerSeeder) (string, error) {
	existing, err := r.ListCustomers(ctx, true)
	if err != nil {
		return "", err
	}
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[strings.ToLower(c.Email)] = true
	}
	n := 0
	for _, c := range demoCustomers {
		if seen[strings.ToLower(c.Email)] {
			continue
		}
		if _, err := r.CreateCustomer(ctx, c); err != nil {
			return "", err
		}
		n++
	}
	return fmt.Sprint(n), nil
}

// seedTemplate fills the singleton template only while it is still blank.
func seedTemplate(ctx context.Context, r templateSeeder) (string, error) {
	t, err := r.EnsureCurrent(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(t.BodyHTML) == "" {
		t, err = r.UpdateTemplate(ctx, t.ID, tdomain.TemplateInput{Title: "Default", Subject: demoSubject, BodyHTML: demoBody})
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprint(t.ID), nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: seed <authorities|customers|template|all> [--database-url URL]")
}

func printEnv(m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s=%s\n", k, m[k])
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "seed: "+format+"\n", args...)
	os.Exit(1)
}
