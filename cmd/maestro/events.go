package main

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/tessellate-ai/maestro/internal/blackboard"
)

// consumeEvents prints blackboard events to stdout and records them for
// persistence. It returns once the stream channel closes.
func consumeEvents(events <-chan blackboard.Event, record *[]blackboard.Event) {
	for ev := range events {
		*record = append(*record, ev)
		printEvent(ev)
	}
}

// printEvent renders one blackboard event as a single status line.
func printEvent(ev blackboard.Event) {
	switch ev.Type {
	case blackboard.EventTaskStatusChanged:
		taskID, _ := ev.Data["task_id"].(string)
		status := fmt.Sprint(ev.Data["to"])
		c := statusColor(status)
		if ev.Agent != "" {
			fmt.Printf("%s task %s (%s)\n", c.Sprintf("[%s]", status), taskID, ev.Agent)
		} else {
			fmt.Printf("%s task %s\n", c.Sprintf("[%s]", status), taskID)
		}
	case blackboard.EventArtifactCreated:
		name, _ := ev.Data["name"].(string)
		fmt.Printf("%s %s (%s)\n", color.New(color.FgCyan).Sprint("[artifact]"), name, ev.Agent)
	case blackboard.EventNoteCreated:
		fmt.Printf("%s from %s\n", color.New(color.FgMagenta).Sprint("[note]"), ev.Agent)
	}
}

func statusColor(status string) *color.Color {
	switch status {
	case "completed":
		return color.New(color.FgGreen)
	case "failed":
		return color.New(color.FgRed)
	case "blocked":
		return color.New(color.FgYellow)
	case "running":
		return color.New(color.FgBlue)
	default:
		return color.New(color.FgWhite)
	}
}
