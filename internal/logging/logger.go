// Package logging is a small tagged, leveled logger.
//
// Packages derive a tagged logger once:
//
//	var log = logging.DefaultLogger.WithTag("gstview")
//
// and the LOGLEVEL environment variable selects verbosity per tag, e.g.
// LOGLEVEL=info,gstview=debug.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const timestampFormat = "2006-01-02 15:04:05.000"

type Logger struct {
	level atomic.Int32

	// Tag used to filter and classify log messages.
	Tag string

	// Shared by all derived loggers so that lines never interleave.
	out *output
}

type output struct {
	mu sync.Mutex
	w  io.Writer
}

// DefaultLogger writes to stderr.
var DefaultLogger = newLogger(defaultLevel, "", &output{w: os.Stderr})

func newLogger(level Level, tag string, out *output) *Logger {
	l := &Logger{Tag: tag, out: out}
	l.level.Store(int32(level))
	return l
}

// SetDestination redirects this logger and every logger sharing its output.
func (log *Logger) SetDestination(w io.Writer) {
	log.out.mu.Lock()
	log.out.w = w
	log.out.mu.Unlock()
}

// WithTag derives a logger with the given tag. The level is looked up from
// LOGLEVEL, falling back to this logger's level.
func (log *Logger) WithTag(tag string) *Logger {
	return newLogger(determineLevel(tag, log.Level()), tag, log.out)
}

func (log *Logger) Level() Level {
	return Level(log.level.Load())
}

func (log *Logger) SetLevel(level Level) {
	log.level.Store(int32(level))
}

// Enabled reports whether a message at level would be written.
func (log *Logger) Enabled(level Level) bool {
	return level <= log.Level()
}

type buffer []byte

func (b *buffer) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}

var bufPool = sync.Pool{
	New: func() interface{} {
		b := make(buffer, 0, 256)
		return &b
	},
}

// Log writes a message at the given level, attributed to the caller
// calldepth frames above Log's caller.
func (log *Logger) Log(level Level, calldepth int, format string, a ...interface{}) {
	if !log.Enabled(level) {
		return
	}

	bp := bufPool.Get().(*buffer)
	buf := (*bp)[:0]
	defer func() {
		*bp = buf[:0]
		bufPool.Put(bp)
	}()

	buf = time.Now().AppendFormat(buf, timestampFormat)

	_, file, line, ok := runtime.Caller(calldepth + 1)
	if !ok {
		file = "?"
	}
	prefix := fmt.Sprintf(" %c/%s[%s:%d] ", level.letter(), log.Tag, filepath.Base(file), line)
	buf = append(buf, level.color().Sprint(prefix)...)

	fmt.Fprintf(&buf, format, a...)
	if n := len(buf); n == 0 || buf[n-1] != '\n' {
		buf = append(buf, '\n')
	}

	log.out.mu.Lock()
	defer log.out.mu.Unlock()
	if _, err := log.out.w.Write(buf); err != nil {
		panic(fmt.Sprintf("failed to log to %v: %v", log.out.w, err))
	}
}

func (log *Logger) Error(format string, a ...interface{}) {
	log.Log(Error, 1, format, a...)
}

func (log *Logger) Warn(format string, a ...interface{}) {
	log.Log(Warn, 1, format, a...)
}

func (log *Logger) Info(format string, a ...interface{}) {
	log.Log(Info, 1, format, a...)
}

func (log *Logger) Debug(format string, a ...interface{}) {
	log.Log(Debug, 1, format, a...)
}

func (log *Logger) Trace(n int, format string, a ...interface{}) {
	log.Log(Level(n), 1, format, a...)
}

// Fatalf logs at Error and exits the process.
func (log *Logger) Fatalf(format string, a ...interface{}) {
	log.Log(Error, 1, format, a...)
	os.Exit(1)
}
