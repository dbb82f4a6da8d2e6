package main

import (
	"context"
	"fmt"
	"io"

	"alarmbell-backend/internal/render"
)

// terminalDisplay prints notifications shown while the shell is focused.
type terminalDisplay struct {
	w io.Writer
}

func (d terminalDisplay) Show(_ context.Context, n render.Notification) error {
	_, err := fmt.Fprintf(d.w, "[%s] %s\n  %s\n", n.Title, n.Body, n.Target.Path)
	return err
}
