// Package tail follows an append-only log file across rotation and truncation.
//
// DESIGN: An explicit read loop holding an open handle plus the file's
// last-known identity and read offset, instead of OS-level change
// notifications. Rotation handling is an ordinary state transition: after
// draining to EOF the follower stats the path, and a changed identity or a
// shrunken size means the source was rotated or truncated, so reading resumes
// from the start of the new content. A partial trailing line is held back
// until its newline arrives, so a line read mid-write is never handed out.
package tail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds follower settings.
type Config struct {
	Path         string
	FromStart    bool          // read the existing content instead of seeking to the end
	PollInterval time.Duration // how often to look for appended lines
	MaxFailures  int           // consecutive source failures before giving up; 0 disables
	OnRotate     func()        // optional hook, called when rotation/truncation is detected
}

// SourceError reports that the log source stayed unreadable past the
// configured failure budget. It terminates the follower.
type SourceError struct {
	Path     string
	Failures int
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("log source %s unreadable after %d consecutive failures: %v", e.Path, e.Failures, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Follower tails one log file and hands complete lines to a callback.
type Follower struct {
	cfg      Config
	file     *os.File
	reader   *bufio.Reader
	info     os.FileInfo // identity of the open file
	offset   int64       // bytes consumed from the open file
	pending  []byte      // partial line awaiting its newline
	failures int
}

// NewFollower creates a follower for cfg.Path.
func NewFollower(cfg Config) *Follower {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	return &Follower{cfg: cfg}
}

// Run tails the file until ctx is cancelled, invoking handle once per complete
// line, in order. It returns nil on cancellation and a SourceError when the
// source stays unreadable past the failure budget.
func (f *Follower) Run(ctx context.Context, handle func(line string)) error {
	resume := int64(-1) // seek to end
	if f.cfg.FromStart {
		resume = 0
	}
	if err := f.openFile(ctx, resume); err != nil {
		return ignoreCancel(err)
	}
	defer f.closeFile()

	for {
		if err := f.drain(handle); err != nil {
			log.Warn().Err(err).Str("path", f.cfg.Path).Msg("tail: read error, reopening")
			f.closeFile()
			if err := f.openFile(ctx, f.offset); err != nil {
				return ignoreCancel(err)
			}
		}

		if err := f.checkSource(ctx); err != nil {
			return ignoreCancel(err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(f.cfg.PollInterval):
		}
	}
}

// drain reads every complete line currently available.
func (f *Follower) drain(handle func(string)) error {
	for {
		chunk, err := f.reader.ReadString('\n')
		f.offset += int64(len(chunk))

		if err == nil {
			line := chunk[:len(chunk)-1] // strip the newline
			if len(f.pending) > 0 {
				line = string(f.pending) + line
				f.pending = f.pending[:0]
			}
			handle(line)
			continue
		}

		if len(chunk) > 0 {
			f.pending = append(f.pending, chunk...)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
}

// checkSource detects rotation and truncation after draining to EOF.
func (f *Follower) checkSource(ctx context.Context) error {
	st, err := os.Stat(f.cfg.Path)
	if err != nil {
		f.failures++
		log.Warn().Err(err).Str("path", f.cfg.Path).Int("failures", f.failures).Msg("tail: source unavailable")
		if f.cfg.MaxFailures > 0 && f.failures >= f.cfg.MaxFailures {
			return &SourceError{Path: f.cfg.Path, Failures: f.failures, Err: err}
		}
		return nil
	}
	f.failures = 0

	if !os.SameFile(f.info, st) {
		log.Info().Str("path", f.cfg.Path).Msg("tail: file rotated, reopening")
		f.notifyRotate()
		f.closeFile()
		return f.openFile(ctx, 0)
	}

	if st.Size() < f.offset {
		log.Info().Str("path", f.cfg.Path).Int64("size", st.Size()).Msg("tail: file truncated, restarting from top")
		f.notifyRotate()
		if _, err := f.file.Seek(0, io.SeekStart); err != nil {
			f.closeFile()
			return f.openFile(ctx, 0)
		}
		f.reader.Reset(f.file)
		f.offset = 0
		f.pending = nil
	}

	return nil
}

// openFile opens the source, retrying with backoff while it is unavailable.
// resume < 0 seeks to the end, 0 starts at the top, > 0 resumes at that offset
// (clamped to the start if the file shrank in the meantime).
func (f *Follower) openFile(ctx context.Context, resume int64) error {
	backoff := f.cfg.PollInterval

	for {
		file, err := os.Open(f.cfg.Path)
		if err == nil {
			info, serr := file.Stat()
			if serr == nil {
				f.install(file, info, resume)
				return nil
			}
			file.Close()
			err = serr
		}

		f.failures++
		log.Warn().Err(err).Str("path", f.cfg.Path).Int("failures", f.failures).Msg("tail: cannot open source")
		if f.cfg.MaxFailures > 0 && f.failures >= f.cfg.MaxFailures {
			return &SourceError{Path: f.cfg.Path, Failures: f.failures, Err: err}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
}

func (f *Follower) install(file *os.File, info os.FileInfo, resume int64) {
	f.failures = 0
	f.file = file
	f.info = info
	f.pending = nil

	switch {
	case resume < 0:
		f.offset, _ = file.Seek(0, io.SeekEnd)
	case resume == 0:
		f.offset = 0
	default:
		if resume > info.Size() {
			resume = 0
		}
		f.offset, _ = file.Seek(resume, io.SeekStart)
	}
	f.reader = bufio.NewReader(file)
}

func (f *Follower) closeFile() {
	if f.file != nil {
		_ = f.file.Close()
		f.file = nil
	}
}

func (f *Follower) notifyRotate() {
	if f.cfg.OnRotate != nil {
		f.cfg.OnRotate()
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
