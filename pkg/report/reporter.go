package report

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/entrhq/e2ekit/pkg/logging"
)

// DefaultReportsDir is used when Config.ReportsDir is empty.
const DefaultReportsDir = "Reports"

// Config describes the run a report is written for.
type Config struct {
	ReportsDir      string
	ApplicationName string
	Environment     string
	Browser         string
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithLogger sets the process logger that mirrors every entry message.
func WithLogger(log *logging.Logger) Option {
	return func(r *Reporter) {
		if log != nil {
			r.log = log
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		r.now = now
	}
}

// SystemInfo is a labelled property of the run environment.
type SystemInfo struct {
	Name  string
	Value string
}

// Reporter accumulates scenario entries and renders them as Markdown and
// HTML. The Log* methods act on the current entry, which CreateTest moves;
// concurrent workers hold their own *Entry instead.
type Reporter struct {
	cfg     Config
	log     *logging.Logger
	now     func() time.Time
	started time.Time
	system  []SystemInfo

	mu      sync.Mutex
	entries []*Entry
	current *Entry
}

// NewReporter creates a reporter and records the system information.
func NewReporter(cfg Config, opts ...Option) *Reporter {
	if cfg.ReportsDir == "" {
		cfg.ReportsDir = DefaultReportsDir
	}

	r := &Reporter{
		cfg: cfg,
		log: logging.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.started = r.now()
	r.system = collectSystemInfo(cfg)
	return r
}

func collectSystemInfo(cfg Config) []SystemInfo {
	userName := os.Getenv("USER")
	if u, err := user.Current(); err == nil {
		userName = u.Username
	}
	host, _ := os.Hostname()

	return []SystemInfo{
		{Name: "Application", Value: cfg.ApplicationName},
		{Name: "Environment", Value: cfg.Environment},
		{Name: "Browser", Value: cfg.Browser},
		{Name: "OS", Value: runtime.GOOS + "/" + runtime.GOARCH},
		{Name: "User", Value: userName},
		{Name: "Machine", Value: host},
		{Name: "Run ID", Value: logging.GetRunID()},
	}
}

// SystemInfo returns the properties recorded at construction.
func (r *Reporter) SystemInfo() []SystemInfo {
	return append([]SystemInfo(nil), r.system...)
}

// CreateTest opens a new entry and makes it current.
func (r *Reporter) CreateTest(name, description string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := &Entry{
		Name:        name,
		Description: description,
		Started:     r.now(),
		Status:      StatusInfo,
		r:           r,
	}
	r.entries = append(r.entries, e)
	r.current = e
	r.log.Debugf("Report entry created: %s", name)
	return e
}

// Current returns the entry the Log* methods write to, or nil.
func (r *Reporter) Current() *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// LogInfo logs to the current entry.
func (r *Reporter) LogInfo(message string) { r.logCurrent(StatusInfo, message) }

// LogPass logs a passed step to the current entry.
func (r *Reporter) LogPass(message string) { r.logCurrent(StatusPass, message) }

// LogFail logs a failure to the current entry.
func (r *Reporter) LogFail(message string) { r.logCurrent(StatusFail, message) }

// LogWarning logs a warning to the current entry.
func (r *Reporter) LogWarning(message string) { r.logCurrent(StatusWarning, message) }

// LogSkip logs a skip to the current entry.
func (r *Reporter) LogSkip(message string) { r.logCurrent(StatusSkip, message) }

// AttachScreenshot attaches path to the current entry. Missing files and a
// missing entry are ignored.
func (r *Reporter) AttachScreenshot(path string) {
	if e := r.Current(); e != nil {
		e.Attach(path)
	}
}

func (r *Reporter) logCurrent(status Status, message string) {
	r.mu.Lock()
	e := r.current
	r.mu.Unlock()

	if e == nil {
		r.logProcess(status, "", message)
		return
	}
	r.append(e, status, message)
}

func (r *Reporter) append(e *Entry, status Status, message string) {
	r.mu.Lock()
	e.Logs = append(e.Logs, LogLine{Time: r.now(), Status: status, Message: message})
	if status > e.Status {
		e.Status = status
	}
	r.mu.Unlock()

	r.logProcess(status, e.Name, message)
}

func (r *Reporter) logProcess(status Status, entry, message string) {
	if entry != "" {
		message = fmt.Sprintf("[%s] %s", entry, message)
	}
	switch status {
	case StatusFail:
		r.log.Errorf("%s", message)
	case StatusWarning:
		r.log.Warnf("%s", message)
	default:
		r.log.Infof("%s", message)
	}
}

func (r *Reporter) attach(e *Entry, path string) {
	if _, err := os.Stat(path); err != nil {
		r.log.Debugf("Screenshot not attached, file missing: %s", path)
		return
	}

	r.mu.Lock()
	e.Screenshots = append(e.Screenshots, path)
	r.mu.Unlock()
	r.log.Infof("Screenshot attached: %s", path)
}

// Entries returns copies of all entries in creation order.
func (r *Reporter) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e.snapshot())
	}
	return entries
}

// ReportPaths returns the Markdown and HTML report paths of this run.
func (r *Reporter) ReportPaths() (markdown, html string) {
	base := filepath.Join(r.cfg.ReportsDir, "TestReport_"+r.started.Format("20060102_150405"))
	return base + ".md", base + ".html"
}

// FlushReports renders all entries to the Markdown and HTML report files.
// Repeated calls overwrite the same files.
func (r *Reporter) FlushReports() error {
	if err := os.MkdirAll(r.cfg.ReportsDir, 0750); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	mdPath, htmlPath := r.ReportPaths()
	md := r.renderMarkdown(r.Entries())

	if err := os.WriteFile(mdPath, md, 0600); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}

	html, err := renderHTML(r.title(), md)
	if err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}
	if err := os.WriteFile(htmlPath, html, 0600); err != nil {
		return fmt.Errorf("failed to write html report: %w", err)
	}

	r.log.Infof("Reports flushed to: %s", r.cfg.ReportsDir)
	return nil
}

func (r *Reporter) title() string {
	if r.cfg.ApplicationName != "" {
		return r.cfg.ApplicationName + " Test Report"
	}
	return "Test Report"
}
