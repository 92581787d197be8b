package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type LogLevel string

const (
	DEBUG LogLevel = "DEBUG"
	INFO  LogLevel = "INFO"
	WARN  LogLevel = "WARN"
	ERROR LogLevel = "ERROR"
)

var levelOrder = map[LogLevel]int{DEBUG: 0, INFO: 1, WARN: 2, ERROR: 3}

// Logger is a small leveled logger with structured key-value fields.
// Events are snake_case strings; fields are passed either as alternating
// key/value arguments or as a single map[string]interface{}.
type Logger struct {
	level   LogLevel
	json    bool
	out     io.Writer
	context map[string]interface{}
	mu      *sync.Mutex
}

var (
	global *Logger
	once   sync.Once
)

// New creates a standalone logger. A nil writer discards all output
// (used by tests).
func New(level LogLevel, jsonFormat bool, out io.Writer) *Logger {
	if out == nil {
		out = io.Discard
	}
	if _, ok := levelOrder[level]; !ok {
		level = INFO
	}
	return &Logger{
		level:   level,
		json:    jsonFormat,
		out:     out,
		context: map[string]interface{}{},
		mu:      &sync.Mutex{},
	}
}

// Init configures the global logger.
func Init(level LogLevel, jsonFormat bool, out io.Writer) {
	global = New(level, jsonFormat, out)
}

// GetLogger returns the global logger, initializing a default one if
// Init was never called.
func GetLogger() *Logger {
	once.Do(func() {
		if global == nil {
			Init(INFO, false, os.Stdout)
		}
	})
	return global
}

// WithContext returns a logger that attaches the given field to every event.
func (l *Logger) WithContext(key string, value interface{}) *Logger {
	ctx := make(map[string]interface{}, len(l.context)+1)
	for k, v := range l.context {
		ctx[k] = v
	}
	ctx[key] = value
	return &Logger{level: l.level, json: l.json, out: l.out, context: ctx, mu: l.mu}
}

func (l *Logger) Debug(event string, args ...interface{}) { l.log(DEBUG, event, args...) }
func (l *Logger) Info(event string, args ...interface{})  { l.log(INFO, event, args...) }
func (l *Logger) Warn(event string, args ...interface{})  { l.log(WARN, event, args...) }
func (l *Logger) Error(event string, args ...interface{}) { l.log(ERROR, event, args...) }

// Package-level shortcuts on the global logger.
func Debug(event string, args ...interface{}) { GetLogger().Debug(event, args...) }
func Info(event string, args ...interface{})  { GetLogger().Info(event, args...) }
func Warn(event string, args ...interface{})  { GetLogger().Warn(event, args...) }
func Error(event string, args ...interface{}) { GetLogger().Error(event, args...) }

func (l *Logger) log(level LogLevel, event string, args ...interface{}) {
	if levelOrder[level] < levelOrder[l.level] {
		return
	}

	fields := make(map[string]interface{}, len(l.context)+len(args)/2)
	for k, v := range l.context {
		fields[k] = v
	}
	parseArgs(fields, args)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.json {
		entry := map[string]interface{}{
			"time":  time.Now().Format(time.RFC3339),
			"level": string(level),
			"event": event,
		}
		for k, v := range fields {
			entry[k] = v
		}
		data, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(l.out, `{"level":"ERROR","event":"log_marshal_failed"}`+"\n")
			return
		}
		l.out.Write(append(data, '\n'))
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	b.WriteString(" [")
	b.WriteString(string(level))
	b.WriteString("] ")
	b.WriteString(event)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	b.WriteByte('\n')
	l.out.Write([]byte(b.String()))
}

// parseArgs accepts either a single map or alternating key/value pairs.
func parseArgs(fields map[string]interface{}, args []interface{}) {
	if len(args) == 1 {
		if m, ok := args[0].(map[string]interface{}); ok {
			for k, v := range m {
				fields[k] = v
			}
			return
		}
	}
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("arg%d", i)
		}
		fields[key] = args[i+1]
	}
}
