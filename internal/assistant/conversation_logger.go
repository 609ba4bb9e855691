package assistant

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/ashureev/paradox/internal/config"
)

// ConversationLogConfig is an alias so callers can pass the loaded config directly.
type ConversationLogConfig = config.ConversationLogConfig

// ConversationLogEvent is one NDJSON line of the conversation log.
type ConversationLogEvent struct {
	Timestamp  string         `json:"ts"`
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id"`
	Channel    string         `json:"channel"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	Mode       string         `json:"mode,omitempty"`
	ContentRaw string         `json:"content_raw"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// ConversationLogger records queries and responses.
type ConversationLogger interface {
	Log(event ConversationLogEvent)
	Close() error
}

type noopConversationLogger struct{}

func (noopConversationLogger) Log(ConversationLogEvent) {}
func (noopConversationLogger) Close() error             { return nil }

// NopConversationLogger returns a logger that discards everything.
func NopConversationLogger() ConversationLogger { return noopConversationLogger{} }

type fileConversationLogger struct {
	cfg    ConversationLogConfig
	logger *slog.Logger
	queue  chan ConversationLogEvent
	done   chan struct{}
	once   sync.Once

	files  map[string]*os.File
	global *os.File
}

// NewConversationLogger creates an asynchronous NDJSON logger writing one
// file per user session under cfg.Dir. A disabled config yields a no-op logger.
func NewConversationLogger(cfg ConversationLogConfig, logger *slog.Logger) (ConversationLogger, error) {
	if !cfg.Enabled {
		return noopConversationLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}

	l := &fileConversationLogger{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan ConversationLogEvent, cfg.QueueSize),
		done:   make(chan struct{}),
		files:  make(map[string]*os.File),
	}
	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0o750); err != nil {
			return nil, fmt.Errorf("create global conversation log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.GlobalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open global conversation log: %w", err)
		}
		l.global = f
	}

	go l.run()
	return l, nil
}

// Log enqueues event. Events are dropped when the queue is full.
func (l *fileConversationLogger) Log(event ConversationLogEvent) {
	if event.Content == "" {
		event.Content = cleanForReadability(event.ContentRaw)
	}
	select {
	case l.queue <- event:
	default:
		l.logger.Warn("conversation log queue full, dropping event", "user_id", event.UserID, "event_type", event.EventType)
	}
}

// Close drains the queue and closes every file.
func (l *fileConversationLogger) Close() error {
	l.once.Do(func() { close(l.queue) })
	<-l.done

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if l.global != nil {
		if err := l.global.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (l *fileConversationLogger) run() {
	defer close(l.done)
	for event := range l.queue {
		line, err := json.Marshal(event)
		if err != nil {
			l.logger.Warn("failed to marshal conversation event", "error", err)
			continue
		}
		line = append(line, '\n')

		f, err := l.sessionFile(event.UserID, event.SessionID)
		if err != nil {
			l.logger.Warn("failed to open conversation log", "user_id", event.UserID, "error", err)
		} else if _, err := f.Write(line); err != nil {
			l.logger.Warn("failed to write conversation log", "user_id", event.UserID, "error", err)
		}
		if l.global != nil {
			if _, err := l.global.Write(line); err != nil {
				l.logger.Warn("failed to write global conversation log", "error", err)
			}
		}
	}
}

func (l *fileConversationLogger) sessionFile(userID, sessionID string) (*os.File, error) {
	user := safePathSegment(userID, "unknown")
	session := safePathSegment(sessionID, "default")
	key := user + "/" + session
	if f, ok := l.files[key]; ok {
		return f, nil
	}

	dir := filepath.Join(l.cfg.Dir, user)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, session+".ndjson"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, err
	}
	l.files[key] = f
	return f, nil
}

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func safePathSegment(s, fallback string) string {
	s = unsafePathChars.ReplaceAllString(s, "_")
	if s == "" || s == "." || s == ".." {
		return fallback
	}
	return s
}

var (
	ansiEscape   = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// cleanForReadability strips ANSI sequences and control characters.
func cleanForReadability(s string) string {
	s = ansiEscape.ReplaceAllString(s, "")
	s = controlChars.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
