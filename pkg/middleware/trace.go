package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/godeps/community-sdk-go/pkg/telemetry"
)

// TraceEvent is one line of the JSONL call trace.
type TraceEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
	Method     string    `json:"method"`
	Route      string    `json:"route,omitempty"`
	Target     string    `json:"target"`
	Upload     bool      `json:"upload,omitempty"`
	Status     int       `json:"status"`
	Code       string    `json:"code,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// TraceMiddleware appends every call to a daily JSONL file under outputDir.
// Targets are masked before they are written.
type TraceMiddleware struct {
	*BaseMiddleware
	outputDir string
	logger    *slog.Logger
	filter    *telemetry.Filter
	clock     func() time.Time

	mu      sync.Mutex
	day     string
	file    *os.File
	written int
}

// NewTraceMiddleware writes to outputDir (".trace" when empty).
func NewTraceMiddleware(outputDir string, logger *slog.Logger) *TraceMiddleware {
	dir := strings.TrimSpace(outputDir)
	if dir == "" {
		dir = ".trace"
	}
	if logger == nil {
		logger = slog.Default()
	}
	// default patterns always compile
	filter, _ := telemetry.NewFilter(telemetry.FilterConfig{})
	return &TraceMiddleware{
		BaseMiddleware: NewBaseMiddleware("trace", PriorityTrace),
		outputDir:      dir,
		logger:         logger,
		filter:         filter,
		clock:          time.Now,
	}
}

// Dir returns the directory traces are written to.
func (m *TraceMiddleware) Dir() string { return m.outputDir }

func (m *TraceMiddleware) ExecuteCall(ctx context.Context, req *CallRequest, next CallFunc) (*CallResponse, error) {
	if next == nil {
		return nil, ErrMissingNext
	}
	start := m.clock()
	resp, err := next(ctx, req)

	evt := TraceEvent{
		Timestamp: start.UTC(),
		RequestID: RequestIDFromContext(ctx),
		Method:    req.Method,
		Route:     req.Route,
		Target:    m.filter.MaskText(req.Target),
		Upload:    req.Upload,
	}
	if resp != nil {
		evt.Status = resp.Status
		evt.Code = resp.Code()
		evt.DurationMS = resp.Duration.Milliseconds()
	} else {
		evt.DurationMS = m.clock().Sub(start).Milliseconds()
	}
	if err != nil {
		evt.Error = err.Error()
	}
	if werr := m.write(evt); werr != nil {
		m.logger.Warn("trace: write event", "dir", m.outputDir, "error", werr)
	}
	return resp, err
}

// OnStop closes the current trace file.
func (m *TraceMiddleware) OnStop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked()
}

// Written reports how many events were appended since creation.
func (m *TraceMiddleware) Written() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written
}

func (m *TraceMiddleware) write(evt TraceEvent) error {
	line, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	day := evt.Timestamp.Format("20060102")
	if m.file == nil || m.day != day {
		if err := m.closeLocked(); err != nil {
			return err
		}
		if err := os.MkdirAll(m.outputDir, 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		path := filepath.Join(m.outputDir, "calls-"+day+".jsonl")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		m.file, m.day = f, day
	}
	if _, err := m.file.Write(append(line, '\n')); err != nil {
		return err
	}
	m.written++
	return nil
}

func (m *TraceMiddleware) closeLocked() error {
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}
