package controller

import (
	"strconv"
	"time"
)

// State is the Controller's position in its fixed lifecycle:
// Idle -> Running -> Stopping -> Idle.
type State string

const (
	StateIdle     State = "Idle"
	StateRunning  State = "Running"
	StateStopping State = "Stopping"
)

// Progress is one crawl progress event, emitted by the reporter at least
// twice a second and once more on completion.
type Progress struct {
	URLsCrawled     int64
	TotalDiscovered int64
	QueueSize       int64
	ActiveWorkers   int64
	ErrorCount      int64
	Elapsed         time.Duration
	LastCrawledURL  string
}

// reasonPhrases is the fixed status-code-to-reason-phrase table progress
// lines render from; any other code renders as its bare integer.
var reasonPhrases = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	500: "Internal Server Error",
	502: "Bad Gateway",
	503: "Service Unavailable",
}

// statusText renders an HTTP status code using the fixed reason-phrase
// table, falling back to "Connection Failed" for zero and the bare integer
// for anything else the table doesn't cover.
func statusText(code int) string {
	if code == 0 {
		return "Connection Failed"
	}
	if phrase, ok := reasonPhrases[code]; ok {
		return strconv.Itoa(code) + " " + phrase
	}
	return strconv.Itoa(code)
}

// decorateLastCrawled builds the "✓ {url} ({status_text})" / "✗ {url}
// ({status_text})" marker Progress.LastCrawledURL carries.
func decorateLastCrawled(address string, statusCode int) string {
	mark := "✗"
	if statusCode >= 200 && statusCode < 300 {
		mark = "✓"
	}
	return mark + " " + address + " (" + statusText(statusCode) + ")"
}
