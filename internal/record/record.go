// Package record parses proxy access-log lines into typed outcome records.
//
// DESIGN: The proxy writes one JSON object per line. Lines can be truncated
// mid-write during rotation, so parsing must never panic and must fail closed:
// anything that doesn't yield a complete record is a ParseError and the line
// contributes nothing to downstream state. gjson is used because it tolerates
// arbitrary garbage input.
package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Outcome is one parsed request outcome from the proxy access log.
type Outcome struct {
	Time             time.Time
	ClientStatus     int
	UpstreamStatuses []int
	Pool             string
	Release          string
	Request          string
	Duration         time.Duration
}

// IsError reports whether the client-visible response was a server error.
func (o *Outcome) IsError() bool {
	return o.ClientStatus >= 500
}

// HasPool reports whether a backend pool produced the final response.
// Proxy-synthesized errors (no upstream reachable) carry no pool.
func (o *Outcome) HasPool() bool {
	return o.Pool != ""
}

// Retried reports whether the proxy made more than one upstream attempt.
func (o *Outcome) Retried() bool {
	return len(o.UpstreamStatuses) > 1
}

// ParseError describes a log line that could not be turned into an Outcome.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable log line: %s", e.Reason)
}

// Parse converts one raw log line into an Outcome.
// Returns a ParseError for blank, malformed, or incomplete lines.
func Parse(line string) (*Outcome, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, &ParseError{Reason: "empty line"}
	}
	if !gjson.Valid(line) {
		return nil, &ParseError{Reason: "not valid JSON"}
	}

	doc := gjson.Parse(line)

	status := doc.Get("status")
	if !status.Exists() {
		return nil, &ParseError{Reason: "missing status field"}
	}
	code := int(status.Int())
	if code < 100 || code > 599 {
		return nil, &ParseError{Reason: fmt.Sprintf("status %q out of range", status.String())}
	}

	ts, err := parseTime(doc.Get("time").String())
	if err != nil {
		return nil, &ParseError{Reason: err.Error()}
	}

	return &Outcome{
		Time:             ts,
		ClientStatus:     code,
		UpstreamStatuses: parseUpstreamStatuses(doc.Get("upstream_status").String()),
		Pool:             doc.Get("pool").String(),
		Release:          doc.Get("release").String(),
		Request:          doc.Get("request").String(),
		Duration:         time.Duration(doc.Get("request_time").Float() * float64(time.Second)),
	}, nil
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing time field")
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time %q", raw)
	}
	return ts, nil
}

// parseUpstreamStatuses splits the comma-separated per-attempt status list.
// nginx writes "-" for attempts that produced no status; those are skipped.
// An empty result means the proxy synthesized the response itself.
func parseUpstreamStatuses(raw string) []int {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	statuses := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		code, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		statuses = append(statuses, code)
	}
	if len(statuses) == 0 {
		return nil
	}
	return statuses
}
