package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"replaylistener/internal/barapi"
	"replaylistener/internal/services"
)

const apiCheckTimeout = 5 * time.Second

// CheckAPI verifies that the replay search endpoint answers a one-record query.
func CheckAPI(ctx context.Context, baseURL string) Result {
	const name = "Replay API"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	client, err := barapi.New(base, barapi.WithTimeouts(apiCheckTimeout, 0, 0))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	start := time.Now()
	if err := client.Ping(ctx); err != nil {
		return Result{Name: name, Detail: summarizeAPIError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable in %v)", base, time.Since(start).Round(time.Millisecond))}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeAPIError(err error) string {
	switch {
	case errors.Is(err, services.ErrTimeout):
		return "request timed out (API unresponsive)"
	case errors.Is(err, services.ErrNotFound):
		return "search endpoint not found (check api.base_url)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out (API unreachable)"
	}
	return err.Error()
}
