package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"
)

const clearLine = "\x1b[1A\x1b[2K"

// consoleDisplay redraws the status lines of running tasks below the
// scrolling log output.
// Mutable
type consoleDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	tasks   []*consoleTask
	drawn   int
}

// NewConsole creates a Display that writes to standard error.
func NewConsole() Display {
	return &consoleDisplay{out: os.Stderr}
}

// NewWriterDisplay creates a Display that writes to w.
func NewWriterDisplay(w io.Writer) Display {
	return &consoleDisplay{out: w}
}

// Discard returns a Display that prints nothing.
func Discard() Display {
	return &consoleDisplay{out: io.Discard}
}

func (d *consoleDisplay) SetVerbose(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.verbose = v
}

func (d *consoleDisplay) StartTask(name string) Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := &consoleTask{d: d, name: name}
	d.clear()
	d.tasks = append(d.tasks, t)
	d.redraw()
	return t
}

func (d *consoleDisplay) Log(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.verbose {
		return
	}
	d.emit(msg)
}

func (d *consoleDisplay) Print(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clear()
	fmt.Fprint(d.out, msg)
	d.redraw()
}

func (d *consoleDisplay) Table(header []string, rows [][]string) {
	d.Print(RenderTable(header, rows))
}

func (d *consoleDisplay) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = nil
	d.drawn = 0
}

// emit prints one line above the task area. Caller holds mu.
func (d *consoleDisplay) emit(line string) {
	d.clear()
	fmt.Fprintln(d.out, strings.TrimRight(line, "\n"))
	d.redraw()
}

func (d *consoleDisplay) clear() {
	for i := 0; i < d.drawn; i++ {
		fmt.Fprint(d.out, clearLine)
	}
	d.drawn = 0
}

func (d *consoleDisplay) redraw() {
	for _, t := range d.tasks {
		fmt.Fprintln(d.out, t.status())
	}
	d.drawn = len(d.tasks)
}

func (d *consoleDisplay) remove(t *consoleTask) {
	for i, x := range d.tasks {
		if x == t {
			d.tasks = append(d.tasks[:i], d.tasks[i+1:]...)
			return
		}
	}
}

// Mutable, guarded by the owning display's mutex.
type consoleTask struct {
	d       *consoleDisplay
	name    string
	stage   string
	target  string
	percent int
	message string
}

func (t *consoleTask) status() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]", t.name)
	if t.stage != "" {
		fmt.Fprintf(&sb, " %s", t.stage)
	}
	if t.target != "" {
		fmt.Fprintf(&sb, " %s", t.target)
	}
	if t.percent > 0 {
		fmt.Fprintf(&sb, " %d%%", t.percent)
	}
	if t.message != "" {
		fmt.Fprintf(&sb, " %s", t.message)
	}
	return sb.String()
}

func (t *consoleTask) Log(msg string) {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	if !t.d.verbose {
		return
	}
	t.d.emit(fmt.Sprintf("[%s] %s", t.name, msg))
}

func (t *consoleTask) SetStage(name string, target string) {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	t.stage = name
	t.target = target
	t.d.clear()
	t.d.redraw()
}

func (t *consoleTask) Progress(percent int, message string) {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	t.percent = min(max(percent, 0), 100)
	t.message = message
	t.d.clear()
	t.d.redraw()
}

func (t *consoleTask) Done() {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	t.d.clear()
	t.d.remove(t)
	fmt.Fprintf(t.d.out, "[%s] Done\n", t.name)
	t.d.redraw()
}

// RenderTable lays out rows in padded columns under header with a dashed
// separator. Columns are measured in terminal cells.
func RenderTable(header []string, rows [][]string) string {
	if len(header) == 0 {
		return ""
	}
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		var line strings.Builder
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			line.WriteString(cell)
			line.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell)+2))
		}
		sb.WriteString(strings.TrimRight(line.String(), " "))
		sb.WriteString("\n")
	}

	writeRow(header)
	total := 0
	for _, w := range widths {
		total += w + 2
	}
	sb.WriteString(strings.Repeat("-", total-2) + "\n")
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

type nopTask struct{}

func (nopTask) Log(string)              {}
func (nopTask) SetStage(string, string) {}
func (nopTask) Progress(int, string)    {}
func (nopTask) Done()                   {}

// NopTask returns a Task that ignores all updates.
func NopTask() Task {
	return nopTask{}
}
