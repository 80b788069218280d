package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/harel159/email-automation-system/internal/auth/cryptojs"
)

var (
	cfgFile   string
	apiURL    string
	apiToken  string
	verbose   bool
	outputFmt string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mailer-cli",
	Short: "Email automation CLI - recipients, sends and operator tooling",
	Long: `mailer-cli talks to the email automation API from the terminal.
Import authorities, trigger bulk sends and prepare operator credentials.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mailer-cli.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "EMAIL_API_TOKEN for send-all-token")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "output format (table, json)")

	_ = viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("api_token", rootCmd.PersistentFlags().Lookup("token"))

	rootCmd.AddCommand(loginCmd, clientsCmd, importCmd, sendCmd, healthCmd)
	rootCmd.AddCommand(hashPasswordCmd, encryptPasswordCmd, configCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mailer-cli")
	}

	viper.SetEnvPrefix("MAILER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Printf("Using config file: %s\n", viper.ConfigFileUsed())
	}

	if apiURL == "" {
		apiURL = viper.GetString("api_url")
	}
	if apiToken == "" {
		apiToken = viper.GetString("api_token")
	}
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
}

func newClient() *MailerClient {
	return &MailerClient{
		BaseURL:    apiURL,
		Token:      apiToken,
		Session:    viper.GetString("session"),
		CookieName: viper.GetString("cookie_name"),
	}
}

var loginCmd = &cobra.Command{
	Use:   "login [email]",
	Short: "Log in and store the session cookie in the config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := viper.GetString("encryption_secret")
		if secret == "" {
			return fmt.Errorf("encryption secret is required (MAILER_ENCRYPTION_SECRET or encryption_secret in config)")
		}
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			var err error
			if password, err = readLine(cmd.InOrStdin(), cmd.OutOrStdout(), "Password: "); err != nil {
				return err
			}
		}
		enc, err := cryptojs.Encrypt(password, secret)
		if err != nil {
			return err
		}
		c := newClient()
		c.Session = ""
		sid, err := c.Login(args[0], enc)
		if err != nil {
			return err
		}
		viper.Set("session", sid)
		if err := writeConfig(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", args[0])
		return nil
	},
}

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Authority recipients",
}

var clientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List authorities",
	RunE: func(cmd *cobra.Command, args []string) error {
		active, _ := cmd.Flags().GetBool("active")
		c := newClient()
		c.Out = cmd.OutOrStdout()
		items, err := c.ListClients(active)
		if err != nil {
			return err
		}
		if outputFmt == "json" {
			return printJSON(cmd.OutOrStdout(), items)
		}
		c.PrintClients(items)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file.xlsx]",
	Short: "Import authorities from a spreadsheet (Name, Email columns)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ext := strings.ToLower(filepath.Ext(args[0])); ext != ".xlsx" {
			return fmt.Errorf("only .xlsx files are supported, got %q", ext)
		}
		res, err := newClient().Import(args[0])
		if err != nil {
			return err
		}
		if outputFmt == "json" {
			return printJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d, skipped %d\n", len(res.Created), res.Skipped)
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send the personalized email to a recipient list",
	Long: `Send uses the token-protected endpoint. Recipients come from --to
(comma separated addresses) or --recipients (JSON array of {email,name}).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if apiToken == "" {
			return fmt.Errorf("API token is required (use --token or MAILER_API_TOKEN)")
		}
		to, err := recipientsFromFlags(cmd)
		if err != nil {
			return err
		}
		subject, _ := cmd.Flags().GetString("subject")
		body, err := bodyFromFlags(cmd)
		if err != nil {
			return err
		}
		noFiles, _ := cmd.Flags().GetBool("no-template-files")

		results, err := newClient().SendAll(to, subject, body, !noFiles)
		if err != nil {
			return err
		}
		if outputFmt == "json" {
			return printJSON(cmd.OutOrStdout(), results)
		}
		failed := 0
		for _, r := range results {
			status := "sent"
			if !r.Success {
				status = "failed: " + r.Error
				failed++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-40s %s\n", r.To, status)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d sends failed", failed, len(results))
		}
		return nil
	},
}

func recipientsFromFlags(cmd *cobra.Command) ([]Recipient, error) {
	var to []Recipient
	list, _ := cmd.Flags().GetString("to")
	for _, a := range strings.Split(list, ",") {
		if a = strings.TrimSpace(a); a != "" {
			to = append(to, Recipient{Email: a})
		}
	}
	if path, _ := cmd.Flags().GetString("recipients"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var more []Recipient
		if err := json.Unmarshal(b, &more); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		to = append(to, more...)
	}
	if len(to) == 0 {
		return nil, fmt.Errorf("no recipients (use --to or --recipients)")
	}
	return to, nil
}

func bodyFromFlags(cmd *cobra.Command) (string, error) {
	body, _ := cmd.Flags().GetString("body")
	if path, _ := cmd.Flags().GetString("body-file"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		body = string(b)
	}
	return body, nil
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check API, database and cache health",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := newClient().CheckHealth()
		if err != nil {
			return err
		}
		if outputFmt == "json" {
			return printJSON(cmd.OutOrStdout(), h)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "status: %s\ndb:     %s\ncache:  %s\n", h.Status, h.DB, h.Cache)
		if h.DB != "ok" {
			return fmt.Errorf("database is %s", h.DB)
		}
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print a bcrypt hash for SHARED_USER_PASSWORD_HASH",
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := readLine(cmd.InOrStdin(), cmd.OutOrStdout(), "Password: ")
		if err != nil {
			return err
		}
		if pw == "" {
			return fmt.Errorf("password must not be empty")
		}
		cost, _ := cmd.Flags().GetInt("cost")
		h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(h))
		return nil
	},
}

var encryptPasswordCmd = &cobra.Command{
	Use:   "encrypt-password [password]",
	Short: "Encrypt a password the way the web client does before login",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := viper.GetString("encryption_secret")
		if secret == "" {
			return fmt.Errorf("encryption secret is required (MAILER_ENCRYPTION_SECRET)")
		}
		enc, err := cryptojs.Encrypt(args[0], secret)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), enc)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "API URL:   %s\n", apiURL)
		fmt.Fprintf(out, "API Token: %s\n", maskToken(apiToken))
		fmt.Fprintf(out, "Session:   %s\n", maskToken(viper.GetString("session")))
		if viper.ConfigFileUsed() != "" {
			fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().String("password", "", "plaintext password (prompted when omitted)")

	clientsCmd.AddCommand(clientsListCmd)
	clientsListCmd.Flags().Bool("active", false, "only active authorities")

	sendCmd.Flags().String("to", "", "comma separated recipient addresses")
	sendCmd.Flags().String("recipients", "", "JSON file with [{\"email\":...,\"name\":...}]")
	sendCmd.Flags().String("subject", "", "subject, may contain {{name}} placeholders")
	sendCmd.Flags().String("body", "", "HTML body, may contain {{name}} placeholders")
	sendCmd.Flags().String("body-file", "", "read the HTML body from a file")
	sendCmd.Flags().Bool("no-template-files", false, "do not attach the template's stored files")
	_ = sendCmd.MarkFlagRequired("subject")

	hashPasswordCmd.Flags().Int("cost", bcrypt.DefaultCost, "bcrypt cost")
}

func writeConfig() error {
	path := viper.ConfigFileUsed()
	if path == "" {
		if cfgFile != "" {
			path = cfgFile
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			path = filepath.Join(home, ".mailer-cli.yaml")
		}
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func readLine(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

func logVerbose(format string, args ...interface{}) {
	if verbose {
		log.Printf("[VERBOSE] "+format, args...)
	}
}
