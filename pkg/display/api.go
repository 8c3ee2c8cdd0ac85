// Package display renders user-facing progress and results. Diagnostics go
// through zerolog; anything a user is meant to read goes through here.
package display

// Task is one tracked unit of work, e.g. fetching a single image.
type Task interface {
	// Log attaches a message to the task. Shown only in verbose mode.
	Log(msg string)
	// SetStage names the current step ("Fetch", "Analyze") and what it works on.
	SetStage(name string, target string)
	// Progress updates the completion percentage (0-100) and a status line.
	Progress(percent int, message string)
	// Done marks the task finished. The creator of the task must call it.
	Done()
}

// Display owns the terminal output of one process.
type Display interface {
	StartTask(name string) Task
	// Log prints a diagnostic line, only in verbose mode.
	Log(msg string)
	// Print writes primary output (tables, results) unconditionally.
	Print(msg string)
	// Table prints rows aligned under header.
	Table(header []string, rows [][]string)
	SetVerbose(v bool)
	// Close finishes any running tasks' lines.
	Close()
}
