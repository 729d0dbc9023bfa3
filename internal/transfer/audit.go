package transfer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/JaimeStill/camxfer/internal/ledger"
)

// AuditHeader is the first line of every audit log.
const AuditHeader = "Image,Source path,Bucket,Destination path,Progress"

// AuditLog is the append-only per-run record of asset outcomes.
type AuditLog struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// OpenAuditLog opens the audit log at p for appending, writing the header
// when the file is new or empty.
func OpenAuditLog(p string) (*AuditLog, error) {
	f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat audit log: %w", err)
	}

	a := &AuditLog{w: f, closer: f}
	if info.Size() == 0 {
		if _, err := io.WriteString(f, AuditHeader+"\n"); err != nil {
			f.Close()
			return nil, fmt.Errorf("write audit header: %w", err)
		}
	}
	return a, nil
}

// NewAuditLog writes the header to w and returns a log appending to it.
func NewAuditLog(w io.Writer) (*AuditLog, error) {
	if _, err := io.WriteString(w, AuditHeader+"\n"); err != nil {
		return nil, fmt.Errorf("write audit header: %w", err)
	}
	return &AuditLog{w: w}, nil
}

// Write appends the row of one outcome. The progress trail is joined with
// carriage returns and always quoted.
func (a *AuditLog) Write(o Outcome) error {
	progress := `"` + strings.ReplaceAll(strings.Join(o.Progress, "\r"), `"`, `""`) + `"`
	row := ledger.JoinFields([]string{o.Asset, o.Source, o.Bucket, o.Destination}) + "," + progress + "\n"

	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := io.WriteString(a.w, row)
	return err
}

// Close closes the underlying file, if any.
func (a *AuditLog) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
