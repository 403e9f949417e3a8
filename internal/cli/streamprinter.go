package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/tidwall/gjson"

	"github.com/fine-dev/fine-go/pkg/ai"
)

var runLabel = color.New(color.FgHiMagenta, color.Bold)
var eventLabel = color.New(color.FgHiWhite, color.Faint)
var failLabel = color.New(color.FgHiRed)

// streamPrinter renders run events as they arrive. With -j every event is written as one line
// of JSON; otherwise text found at textPath is printed inline and other events show as a
// faint [type] marker.
type streamPrinter struct {
	out      io.Writer
	textPath string
	raw      bool
	runs     map[string]bool
	midLine  bool
	failed   bool
}

func newStreamPrinter(out io.Writer, textPath string, raw bool) *streamPrinter {
	return &streamPrinter{
		out:      out,
		textPath: textPath,
		raw:      raw,
		runs:     map[string]bool{},
	}
}

func (p *streamPrinter) handle(ev ai.Event) {
	if ev.IsRunError() {
		p.failed = true
	}
	if p.raw {
		fmt.Fprintln(p.out, string(ev.Raw))
		return
	}

	if id, ok := ev.RunID(); ok && id != "" && !p.runs[id] {
		p.runs[id] = true
		p.endLine()
		runLabel.Fprintf(p.out, "Run %s\n", id)
	}

	if ev.IsRunError() {
		p.endLine()
		failLabel.Fprintf(p.out, "❗ run failed: %s\n", ev.Get("error").String())
		return
	}

	if text := ev.Get(p.textPath); text.Exists() && text.Type == gjson.String {
		fmt.Fprint(p.out, text.String())
		p.midLine = true
		return
	}

	p.endLine()
	eventLabel.Fprintf(p.out, "[%s]\n", ev.Type())
}

func (p *streamPrinter) endLine() {
	if p.midLine {
		fmt.Fprintln(p.out)
		p.midLine = false
	}
}

// finish terminates a partially printed line.
func (p *streamPrinter) finish() {
	p.endLine()
}
