package listener

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

// Sleep waits d or until ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

const countdownWidth = 80

// Countdown returns a backoff that redraws a one-line countdown on w every
// second and clears it when done.
func Countdown(w io.Writer, message string) BackoffFunc {
	if message == "" {
		message = "Waiting to check"
	}
	dots := []string{".", "..", "..."}
	return func(ctx context.Context, d time.Duration) error {
		remaining := int(d.Round(time.Second) / time.Second)
		if remaining <= 0 {
			return Sleep(ctx, d)
		}
		defer fmt.Fprint(w, strings.Repeat(" ", countdownWidth)+"\r")

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for i := 0; remaining > 0; i++ {
			text := fmt.Sprintf("[⏳] %s%-3s next in %2ds", message, dots[i%len(dots)], remaining)
			fmt.Fprintf(w, "%-*s\r", countdownWidth, text)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				remaining--
			}
		}
		return nil
	}
}

// TerminalBackoff uses Countdown when f is a terminal and Sleep otherwise, so
// redirected output is not filled with carriage returns.
func TerminalBackoff(f *os.File) BackoffFunc {
	if f != nil && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return Countdown(f, "")
	}
	return Sleep
}
