package replay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the layout of the date component of a replay start time.
const DateLayout = "2006-01-02"

// ID is a remote replay identifier. The API has served ids both as strings
// and as numbers, so decoding accepts either; null decodes to the empty ID.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("replay id: unsupported value %s", trimmed)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Empty reports whether the record carried no usable id.
func (id ID) Empty() bool { return strings.TrimSpace(string(id)) == "" }

// Record is one entry of a search page.
type Record struct {
	ID        ID     `json:"id"`
	StartTime string `json:"startTime"`
}

// Metadata is the replay detail document. Raw holds the body exactly as the
// API returned it and is what gets persisted.
type Metadata struct {
	ID        ID
	FileName  string
	StartTime string
	Raw       json.RawMessage
}

// ParseMetadata decodes the fields the pipeline depends on while keeping the
// raw document intact. The rest of the schema is not validated.
func ParseMetadata(id ID, body []byte) (Metadata, error) {
	var head struct {
		FileName  string `json:"fileName"`
		StartTime string `json:"startTime"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return Metadata{}, fmt.Errorf("decode metadata for %s: %w", id, err)
	}
	raw := make(json.RawMessage, len(body))
	copy(raw, body)
	return Metadata{
		ID:        id,
		FileName:  strings.TrimSpace(head.FileName),
		StartTime: strings.TrimSpace(head.StartTime),
		Raw:       raw,
	}, nil
}

// FetchResult is the handoff between the fetch and download stages.
type FetchResult struct {
	ID        ID
	FileName  string
	StartTime string
}

// Date returns the calendar date component of the start time. A start time
// shorter than a date or with an invalid date prefix is an error.
func (r FetchResult) Date() (string, error) {
	return DateOf(r.StartTime)
}

// DateOf extracts the YYYY-MM-DD prefix of an API timestamp.
func DateOf(startTime string) (string, error) {
	startTime = strings.TrimSpace(startTime)
	if len(startTime) < len(DateLayout) {
		return "", fmt.Errorf("start time %q has no date component", startTime)
	}
	date := startTime[:len(DateLayout)]
	if _, err := time.Parse(DateLayout, date); err != nil {
		return "", fmt.Errorf("start time %q: %w", startTime, err)
	}
	return date, nil
}

// DownloadStatus is the per-item result of the download stage.
type DownloadStatus string

const (
	StatusOK     DownloadStatus = "ok"
	StatusExists DownloadStatus = "exists"
	StatusFail   DownloadStatus = "fail"
)

// Confirmed reports whether the status should be recorded in the ledger.
func (s DownloadStatus) Confirmed() bool {
	return s == StatusOK || s == StatusExists
}

// DownloadOutcome carries the status and destination of one download.
type DownloadOutcome struct {
	ID     ID
	Status DownloadStatus
	Folder string
	Path   string
	Bytes  int64
	Err    error
}

// SearchPage mirrors the search endpoint envelope.
type SearchPage struct {
	Data []Record `json:"data"`
}
