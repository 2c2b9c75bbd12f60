package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"gracefulexit/shutdown"
)

// consoleListener prints lifecycle events as colored one-line summaries.
// It is wired in development mode only.
func consoleListener(w io.Writer) shutdown.Listener {
	dim := color.New(color.FgHiBlack)

	return func(ev shutdown.Event) {
		dim.Fprintf(w, "%s ", time.Now().Format("15:04:05.000"))

		switch e := ev.(type) {
		case shutdown.BeforeShutdown:
			color.New(color.FgCyan, color.Bold).Fprintln(w, "shutdown requested")
		case shutdown.Error:
			color.New(color.FgRed).Fprintf(w, "callback %s failed: ", e.Callback)
			fmt.Fprintln(w, e.Err)
		case shutdown.Timeout:
			if e.Forced {
				color.New(color.FgRed, color.Bold).Fprintln(w, "repeated trigger, forcing exit")
				return
			}
			color.New(color.FgRed, color.Bold).Fprintln(w, "deadline exceeded, forcing exit")
		case shutdown.BeforeExit:
			color.New(color.FgGreen, color.Bold).Fprintln(w, "all callbacks settled, exiting")
		}
	}
}
