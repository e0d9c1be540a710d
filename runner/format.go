package runner

import (
	"fmt"
	"strings"

	"github.com/gookit/color"
	"github.com/timewinder-dev/cbot"
)

const rule = "--------------------------------------------------------------------------------"

// FormatResult formats the outcome of a run for display
func FormatResult(r *Result) string {
	var b strings.Builder
	b.WriteString(color.Gray.Sprint(rule))
	b.WriteString("\n")
	switch r.Status {
	case cbot.Finished:
		b.WriteString(color.Green.Sprint("FINISHED"))
	default:
		b.WriteString(color.Red.Sprint(strings.ToUpper(r.Status.String())))
	}
	b.WriteString("\n")
	b.WriteString(color.Bold.Sprint("Run:         "))
	b.WriteString(fmt.Sprintf("%s\n", r.RunID))
	if r.Value != nil {
		b.WriteString(color.Bold.Sprint("Value:       "))
		b.WriteString(color.Yellow.Sprintf("%s\n", r.Value))
	}
	if r.Err != nil {
		b.WriteString(color.Bold.Sprint("Error:       "))
		b.WriteString(color.Red.Sprintf("%s\n", r.Err))
	}
	b.WriteString(color.Bold.Sprint("Ticks:       "))
	b.WriteString(fmt.Sprintf("%d\n", r.Ticks))
	b.WriteString(color.Bold.Sprint("Checkpoints: "))
	b.WriteString(fmt.Sprintf("%d\n", r.Checkpoints))
	b.WriteString(color.Gray.Sprint(rule))
	b.WriteString("\n")
	return b.String()
}
