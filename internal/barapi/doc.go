// Package barapi talks to the Beyond All Reason replay service.
//
// Client covers the three endpoints the listener needs: the paginated replay
// search, the per-replay detail document, and the binary replay origin. Every
// request carries its own timeout. Search is fail-soft and returns an empty
// page on any error; the detail and download calls return errors tagged with
// the services markers so callers can log a reason class per dropped replay.
package barapi
