package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/voxtutor/voxtutor/internal/render"
	"github.com/voxtutor/voxtutor/internal/session"
)

const helpText = `Commands:
  /files [query]     list uploaded notes, optionally filtered
  /upload <path>     upload a PDF, text or markdown file
  /delete <name>     delete a note (asks for confirmation)
  /mode [name]       show or switch the answering mode
  /listen            start voice capture (say "send" to submit)
  /stop              stop voice capture
  /speak on|off      toggle spoken answers
  /help              show this help
Anything else is sent to the assistant as a question.`

// repl reads user commands line by line until ctx is cancelled or the input
// stream ends.
func (a *App) repl(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(a.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	a.printMessages(a.store.Messages())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			a.handleLine(ctx, line)
		}
	}
}

func (a *App) handleLine(ctx context.Context, line string) {
	line = strings.TrimSpace(line)

	// A pending delete intercepts the next line as its confirmation.
	if candidate := a.store.DeleteCandidate(); candidate != nil {
		switch strings.ToLower(line) {
		case "y", "yes":
			before := len(a.store.Messages())
			if err := a.store.ConfirmDelete(ctx); err != nil {
				fmt.Fprintf(a.out, "!! %v\n", err)
				return
			}
			a.printMessages(a.store.Messages()[before:])
		default:
			a.store.CancelDelete()
			fmt.Fprintln(a.out, "Delete cancelled.")
		}
		return
	}

	if line == "" {
		if pending := a.takePending(); pending != "" {
			a.ask(ctx, pending)
		}
		return
	}

	if !strings.HasPrefix(line, "/") {
		a.ask(ctx, line)
		return
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		fmt.Fprintln(a.out, helpText)

	case "/files":
		query := strings.Join(args, " ")
		files := a.store.FilterFiles(query)
		if len(files) == 0 {
			fmt.Fprintln(a.out, "No notes found.")
			return
		}
		fmt.Fprintf(a.out, "Your Notes (%d):\n", len(files))
		for _, f := range files {
			if f.UploadedAt != "" {
				fmt.Fprintf(a.out, "  %s (uploaded %s)\n", f.Filename, f.UploadedAt)
			} else {
				fmt.Fprintf(a.out, "  %s\n", f.Filename)
			}
		}

	case "/upload":
		if len(args) == 0 {
			fmt.Fprintln(a.out, "Usage: /upload <path>")
			return
		}
		before := len(a.store.Messages())
		if err := a.store.Upload(ctx, strings.Join(args, " ")); err != nil {
			fmt.Fprintf(a.out, "!! %v\n", err)
			return
		}
		a.printMessages(a.store.Messages()[before:])

	case "/delete":
		if len(args) == 0 {
			fmt.Fprintln(a.out, "Usage: /delete <filename>")
			return
		}
		name := strings.Join(args, " ")
		if err := a.store.RequestDelete(name); err != nil {
			fmt.Fprintf(a.out, "!! %v\n", err)
			return
		}
		fmt.Fprintf(a.out, "Delete %s permanently? [y/N] ", name)

	case "/mode":
		if len(args) == 0 {
			for _, m := range session.Modes {
				marker := "  "
				if m == a.store.Mode() {
					marker = "* "
				}
				fmt.Fprintf(a.out, "%s%s — %s\n", marker, m, m.Label())
			}
			return
		}
		mode := session.Mode(strings.ToLower(args[0]))
		if err := a.store.SetMode(mode); err != nil {
			fmt.Fprintf(a.out, "!! %v\n", err)
			return
		}
		fmt.Fprintf(a.out, "Active Mode: %s\n", mode.Label())

	case "/listen":
		if a.capture == nil {
			fmt.Fprintln(a.out, "Voice capture is not configured.")
			return
		}
		if err := a.capture.Start(ctx); err != nil {
			fmt.Fprintf(a.out, "!! %v\n", err)
			return
		}
		fmt.Fprintln(a.out, "Listening… say \"send\" to submit, or /stop to finish.")

	case "/stop":
		if a.capture == nil {
			fmt.Fprintln(a.out, "Voice capture is not configured.")
			return
		}
		a.capture.Stop(ctx)

	case "/speak":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			fmt.Fprintln(a.out, "Usage: /speak on|off")
			return
		}
		a.store.SetAutoSpeak(args[0] == "on")
		fmt.Fprintf(a.out, "Spoken answers %s.\n", args[0])

	default:
		fmt.Fprintf(a.out, "Unknown command %s — try /help\n", cmd)
	}
}

// ask submits a question and prints the resulting transcript entries.
func (a *App) ask(ctx context.Context, question string) {
	before := len(a.store.Messages())
	err := a.store.Ask(ctx, question)
	switch {
	case errors.Is(err, session.ErrEmptyQuestion):
		return
	case errors.Is(err, session.ErrAskInFlight):
		fmt.Fprintln(a.out, "Still answering the previous question…")
		return
	case err != nil:
		fmt.Fprintf(a.out, "!! %v\n", err)
		return
	}
	a.printMessages(a.store.Messages()[before:])
}

// printMessages renders transcript entries to the output stream.
func (a *App) printMessages(msgs []session.Message) {
	for _, m := range msgs {
		switch m.Role {
		case session.RoleUser:
			fmt.Fprintf(a.out, "> %s\n", m.Text)
		case session.RoleSystem:
			fmt.Fprintf(a.out, "-- %s\n", m.Text)
		case session.RoleAssistant:
			a.printAnswer(m)
		}
	}
}

// printAnswer renders one assistant message: body, deduplicated source
// labels, then any recommended video links.
func (a *App) printAnswer(m session.Message) {
	answer := render.Parse(m.Text)
	fmt.Fprintln(a.out, answer.Body)

	if labels := render.SourceLabels(m.Sources); len(labels) > 0 {
		fmt.Fprintf(a.out, "Sources: %s\n", strings.Join(labels, ", "))
	}
	if len(answer.VideoIDs) > 0 {
		fmt.Fprintln(a.out, "Recommended Videos:")
		for _, id := range answer.VideoIDs {
			fmt.Fprintf(a.out, "  %s\n", render.WatchURL(id))
		}
	}
}
