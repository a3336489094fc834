package notifier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"DivergenceSentinel/internal/model"
)

// FileSink appends one line per alert to a text log:
// "timestamp | instrument | kind | price".
type FileSink struct {
	mu   sync.Mutex
	path string
}

// NewFileSink creates the log (with a header) if it does not exist yet.
func NewFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	switch {
	case err == nil:
		_, werr := fmt.Fprintf(f, "# RSI divergence log, created %s\n# timestamp | instrument | kind | price\n",
			time.Now().Format("2006-01-02 15:04:05"))
		cerr := f.Close()
		if werr != nil {
			return nil, werr
		}
		if cerr != nil {
			return nil, cerr
		}
	case os.IsExist(err):
	default:
		return nil, fmt.Errorf("open alert log: %w", err)
	}
	return &FileSink{path: path}, nil
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Notify(_ context.Context, ev model.AlertEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open alert log: %w", err)
	}
	_, err = fmt.Fprintf(f, "%s | %s | %s | %.4f\n",
		ev.Timestamp.Format("2006-01-02 15:04:05"), ev.Instrument, ev.Kind, ev.ReferencePrice)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
