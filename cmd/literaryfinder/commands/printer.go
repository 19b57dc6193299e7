package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/literaryfinder/core"
	"github.com/hupe1980/literaryfinder/engine"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Output formats accepted by --format.
const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
	formatYAML     = "yaml"
)

func checkFormat(f string) error {
	switch f {
	case formatMarkdown, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown format %q (valid: markdown, json, yaml)", f)
	}
}

func printSuccess(w io.Writer, format string, a ...any) {
	green.Fprintf(w, "✓ "+format+"\n", a...)
}

func printWarning(w io.Writer, format string, a ...any) {
	yellow.Fprintf(w, "⚠️  "+format+"\n", a...)
}

// printError prints a red title and an optional hint, and returns the title
// as an error for cobra.
func printError(w io.Writer, title, hint string) error {
	red.Fprintf(w, "%s\n", title)
	if hint != "" {
		fmt.Fprintf(w, "\n%s\n", hint)
	}
	return fmt.Errorf("%s", title)
}

// syncWriter serializes writes to a writer shared by the progress callbacks
// of parallel workers and the logger.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newSyncWriter(w io.Writer) *syncWriter {
	return &syncWriter{w: w}
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// printWorker is the progress line of one finished worker. The line is
// rendered first and written at once so concurrent lines never interleave.
func printWorker(w io.Writer, cc *engine.CallbackContext) {
	var line bytes.Buffer
	switch cc.Status {
	case core.StatusSucceeded:
		printSuccess(&line, "%s finished in %s", cc.Role, cc.Latency.Round(time.Millisecond))
	default:
		msg := fmt.Sprintf("%s %s after %s", cc.Role, cc.Status, cc.Latency.Round(time.Millisecond))
		if cc.Err != nil {
			msg += ": " + cc.Err.Error()
		}
		printWarning(&line, "%s", msg)
	}
	_, _ = w.Write(line.Bytes())
}

// writeResponse renders resp to w in the given format. Markdown output is the
// report followed by the performance summary; a response without a report
// prints its errors instead.
func writeResponse(w io.Writer, resp *engine.Response, format string) error {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return err
		}
		return enc.Close()
	}

	if resp.FinalReport != nil {
		fmt.Fprint(w, *resp.FinalReport)
	} else {
		fmt.Fprintf(w, "No report for %q.\n", resp.Subject)
		for _, e := range resp.Errors {
			fmt.Fprintf(w, "- %s\n", e)
		}
	}
	if resp.PerformanceReport != nil {
		fmt.Fprintf(w, "\n%s\n", strings.TrimRight(resp.PerformanceReport.Summary(), "\n"))
	}
	return nil
}

// writeListing prints one line per archived response.
func writeListing(w io.Writer, subject string, responses []*engine.Response) {
	if len(responses) == 0 {
		fmt.Fprintf(w, "No archived analyses for %q.\n", subject)
		return
	}
	cyan.Fprintf(w, "%d archived analyses for %q\n", len(responses), subject)
	for _, r := range responses {
		status := green.Sprint("success")
		if !r.Success {
			status = red.Sprint("failed")
		}
		fmt.Fprintf(w, "  %s  %s  %-10s  %d/%d workers  %s\n",
			r.RequestID, r.CompletedAt.UTC().Format("2006-01-02 15:04:05"), r.Mode,
			r.Slots.Succeeded(), len(core.Roles), status)
	}
}
