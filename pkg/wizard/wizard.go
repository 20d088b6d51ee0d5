// Package wizard writes the channelsync config file from interactive answers.
package wizard

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/lkarlslund/channelsync/pkg/config"
)

type Wizard struct {
	in  *bufio.Scanner
	out io.Writer
	// ReadSecret reads one line without echo. When nil secrets are read like
	// any other answer.
	ReadSecret func() (string, error)
}

func New(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{in: bufio.NewScanner(in), out: out}
}

// Terminal prompts on stdin/stdout and hides secrets when stdin is a terminal.
func Terminal() *Wizard {
	w := New(os.Stdin, os.Stdout)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		w.ReadSecret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(w.out)
			return string(b), err
		}
	}
	return w
}

func (w *Wizard) Run(path string, cfg *config.Config) error {
	fmt.Fprintln(w.out, "channelsync configuration")
	cfg.BaseURL = w.ask("Admin panel base URL", cfg.BaseURL)
	cfg.ClientType = w.ask("Client type (onehub/oneapi/newapi)", cfg.ClientType)

	token, err := w.secret("Access token (empty to use username and password)", cfg.AccessToken)
	if err != nil {
		return err
	}
	cfg.AccessToken = token
	if cfg.AccessToken == "" {
		cfg.Username = w.ask("Username", cfg.Username)
		if cfg.Password, err = w.secret("Password", cfg.Password); err != nil {
			return err
		}
	}

	status := w.ask("Target channel status (0 all, 1 enabled, 2 manually disabled, 3 auto disabled)", strconv.Itoa(cfg.TargetChannelStatus))
	if v, err := strconv.Atoi(strings.TrimSpace(status)); err == nil {
		cfg.TargetChannelStatus = v
	}
	delay := w.ask("Maximum delay between channels in seconds", strconv.FormatFloat(cfg.DelaySeconds, 'f', -1, 64))
	if v, err := strconv.ParseFloat(strings.TrimSpace(delay), 64); err == nil {
		cfg.DelaySeconds = v
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(w.out, "Saved %s\n", path)
	return nil
}

func (w *Wizard) ask(label, def string) string {
	if def == "" {
		fmt.Fprintf(w.out, "%s: ", label)
	} else {
		fmt.Fprintf(w.out, "%s [%s]: ", label, def)
	}
	if !w.in.Scan() {
		return def
	}
	txt := strings.TrimSpace(w.in.Text())
	if txt == "" {
		return def
	}
	return txt
}

// secret keeps def on an empty answer without ever echoing it.
func (w *Wizard) secret(label, def string) (string, error) {
	if def == "" {
		fmt.Fprintf(w.out, "%s: ", label)
	} else {
		fmt.Fprintf(w.out, "%s [keep current]: ", label)
	}
	var txt string
	if w.ReadSecret != nil {
		v, err := w.ReadSecret()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
		}
		txt = v
	} else if w.in.Scan() {
		txt = w.in.Text()
	}
	txt = strings.TrimSpace(txt)
	if txt == "" {
		return def, nil
	}
	return txt, nil
}
