// ABOUTME: Remembers recently used sign-in emails for the TUI login form
// ABOUTME: Stores the list as JSON in the config directory, never passwords or tokens

package recent

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// MaxEmails is the maximum number of emails to keep
const MaxEmails = 5

// FileName is the JSON file under the config directory
const FileName = "recent.json"

// Emails manages the list of recently used sign-in emails
type Emails struct {
	configDir string
	emails    []string
}

type recentData struct {
	Emails []string `json:"emails"`
}

// New creates a manager rooted at configDir
func New(configDir string) *Emails {
	return &Emails{configDir: configDir}
}

func (e *Emails) configFile() string {
	return filepath.Join(e.configDir, FileName)
}

// Load reads the list from disk. A missing or unreadable file yields an
// empty list.
func (e *Emails) Load() ([]string, error) {
	data, err := os.ReadFile(e.configFile())
	if os.IsNotExist(err) {
		e.emails = []string{}
		return e.emails, nil
	}
	if err != nil {
		return nil, err
	}

	var recent recentData
	if err := json.Unmarshal(data, &recent); err != nil {
		// Invalid JSON, start fresh
		e.emails = []string{}
		return e.emails, nil
	}

	e.emails = make([]string, 0, len(recent.Emails))
	for _, addr := range recent.Emails {
		if addr = strings.TrimSpace(addr); addr != "" {
			e.emails = append(e.emails, addr)
		}
	}
	return e.emails, nil
}

// Save writes the list to disk, trimmed to MaxEmails
func (e *Emails) Save(emails []string) error {
	if err := os.MkdirAll(e.configDir, 0700); err != nil {
		return err
	}
	if len(emails) > MaxEmails {
		emails = emails[:MaxEmails]
	}
	e.emails = emails

	data, err := json.MarshalIndent(recentData{Emails: emails}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(e.configFile(), data, 0600)
}

// Add moves email to the front of the list. Emails compare case-insensitively.
func (e *Emails) Add(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	if e.emails == nil {
		if _, err := e.Load(); err != nil {
			e.emails = []string{}
		}
	}

	next := make([]string, 0, len(e.emails)+1)
	next = append(next, email)
	for _, addr := range e.emails {
		if !strings.EqualFold(addr, email) {
			next = append(next, addr)
		}
	}
	return e.Save(next)
}

// Last returns the most recently used email, or ""
func (e *Emails) Last() string {
	if e.emails == nil {
		e.Load()
	}
	if len(e.emails) == 0 {
		return ""
	}
	return e.emails[0]
}
