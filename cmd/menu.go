package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lkarlslund/channelsync/pkg/config"
	"github.com/lkarlslund/channelsync/pkg/gateway"
	"github.com/lkarlslund/channelsync/pkg/report"
)

const (
	choiceExit   = 0
	choiceBatch  = 1
	choiceSingle = 2
)

var errInvalidInput = errors.New("invalid input")

// lineReader reads stdin on its own goroutine so a prompt can be abandoned
// when ctx is cancelled.
type lineReader struct {
	lines chan string
	err   error
}

func newLineReader(in io.Reader) *lineReader {
	r := &lineReader{lines: make(chan string)}
	go func() {
		defer close(r.lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			r.lines <- sc.Text()
		}
		r.err = sc.Err()
	}()
	return r
}

func (r *lineReader) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-r.lines:
		if !ok {
			if r.err != nil {
				return "", r.err
			}
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func prompt(ctx context.Context, r *lineReader, out *report.Printer, label string) (int, error) {
	fmt.Fprint(out.Writer(), label)
	line, err := r.next(ctx)
	if err != nil {
		return 0, err
	}
	if !isDigits(line) {
		out.Failf("please enter a number")
		return 0, errInvalidInput
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		out.Failf("number out of range")
		return 0, errInvalidInput
	}
	return n, nil
}

// readMenu shows the menu and returns the selected action and, for a single
// update, the channel id.
func readMenu(ctx context.Context, r *lineReader, out *report.Printer) (int, int, error) {
	out.Infof("")
	out.Rule()
	out.Infof("Channel update tool")
	out.Rule()
	out.Infof("%d. Update all channels", choiceBatch)
	out.Infof("%d. Update a single channel", choiceSingle)
	out.Infof("%d. Exit", choiceExit)
	out.Rule()

	choice, err := prompt(ctx, r, out, "Select an option (0-2): ")
	if err != nil {
		return 0, 0, err
	}
	switch choice {
	case choiceExit, choiceBatch:
		return choice, 0, nil
	case choiceSingle:
		id, err := prompt(ctx, r, out, "Channel ID: ")
		if err != nil {
			return 0, 0, err
		}
		return choice, id, nil
	default:
		out.Failf("invalid choice, please try again")
		return 0, 0, errInvalidInput
	}
}

// runMenu loops until the user exits, input ends, or a hard error occurs.
// Ordinary update failures are reported and the menu is shown again.
func runMenu(ctx context.Context, s *gateway.Syncer, cfg *config.Config, in io.Reader) error {
	out := s.Out
	r := newLineReader(in)
	for {
		choice, id, err := readMenu(ctx, r, out)
		switch {
		case errors.Is(err, errInvalidInput):
			continue
		case errors.Is(err, io.EOF):
			out.Infof("")
			out.Infof("Goodbye!")
			return nil
		case err != nil:
			return err
		}

		switch choice {
		case choiceExit:
			out.Infof("")
			out.Infof("Goodbye!")
			return nil
		case choiceBatch:
			_, err = s.BatchUpdate(ctx, batchOptions(cfg, false))
		case choiceSingle:
			_, err = s.UpdateChannel(ctx, id, gateway.UpdateOptions{})
		}
		if err != nil && (ctx.Err() != nil || gateway.IsUnsupported(err)) {
			return err
		}
	}
}
