package model

import (
	"errors"
	"time"

	"github.com/Robertiks/erase-watermark/internal/dewatermark"
)

// Request is one unit of batch work, fixed at dispatch time.
type Request struct {
	InputPath  string
	OutputPath string
	UseAPI     bool
}

type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindDecode          ErrorKind = "decode"
	KindIO              ErrorKind = "io"
	KindRemoteService   ErrorKind = "remote_service"
	KindInvalidResponse ErrorKind = "invalid_response"
	KindUnknown         ErrorKind = "unknown"
)

// Result is what processing a single file produced. Err is nil on success.
type Result struct {
	Name    string
	Success bool
	UsedAPI bool
	Kind    ErrorKind
	Err     error
}

// Message is the error text shown next to a failed file.
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

func Succeeded(name string, usedAPI bool) Result {
	return Result{Name: name, Success: true, UsedAPI: usedAPI}
}

func Failed(name string, usedAPI bool, err error) Result {
	return Result{Name: name, UsedAPI: usedAPI, Kind: KindOf(err), Err: err}
}

// KindOf classifies err into the error taxonomy.
func KindOf(err error) ErrorKind {
	var (
		remote  *dewatermark.RemoteServiceError
		invalid *dewatermark.InvalidResponseError
	)
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, dewatermark.ErrDecode):
		return KindDecode
	case errors.Is(err, dewatermark.ErrIO):
		return KindIO
	case errors.As(err, &remote):
		return KindRemoteService
	case errors.As(err, &invalid):
		return KindInvalidResponse
	default:
		return KindUnknown
	}
}

// Summary aggregates a batch run.
type Summary struct {
	RunID      string
	Total      int
	Successful int
	Failed     int
	APIUsed    int
	APILimit   int
	Elapsed    time.Duration
	OutputDir  string
}

// APIUsage is the number of API-eligible files, capped at the limit.
func (s Summary) APIUsage() int {
	return min(s.APIUsed, s.APILimit)
}
