package domain

import (
	"fmt"
	"strings"
)

// ResultCode is the result reported by the external compiler service.
type ResultCode int

const (
	// ResultSuccess means the compilation produced its outputs.
	ResultSuccess ResultCode = iota
	// ResultCompilationError means the sources did not compile.
	ResultCompilationError
	// ResultInternalError means the compiler itself failed.
	ResultInternalError
)

// String returns the string representation of the result code.
func (c ResultCode) String() string {
	switch c {
	case ResultSuccess:
		return "COMPILATION_SUCCESS"
	case ResultCompilationError:
		return "COMPILATION_ERROR"
	case ResultInternalError:
		return "INTERNAL_ERROR"
	default:
		return fmt.Sprintf("ResultCode(%d)", int(c))
	}
}

// Outcome is the terminal result of one module's compilation.
type Outcome string

const (
	// OutcomeSuccess indicates the module compiled.
	OutcomeSuccess Outcome = "success"
	// OutcomeCompilationError indicates the module sources failed to compile.
	OutcomeCompilationError Outcome = "compilation-error"
	// OutcomeInternalError indicates the toolchain or its transport failed.
	OutcomeInternalError Outcome = "internal-error"
	// OutcomeCancelled indicates the compilation was cancelled on request.
	OutcomeCancelled Outcome = "cancelled"
)

// OutcomeFromResult translates a compiler result code into an outcome.
func OutcomeFromResult(code ResultCode) Outcome {
	switch code {
	case ResultSuccess:
		return OutcomeSuccess
	case ResultCompilationError:
		return OutcomeCompilationError
	default:
		return OutcomeInternalError
	}
}

// IsSuccess reports whether the outcome is Success.
func (o Outcome) IsSuccess() bool {
	return o == OutcomeSuccess
}

// LogLevel represents the severity of a log message, mirroring the standard slog levels.
type LogLevel int

const (
	// LogLevelDebug represents debug-level verbosity.
	LogLevelDebug LogLevel = -4
	// LogLevelInfo represents informational verbosity.
	LogLevelInfo LogLevel = 0
	// LogLevelWarn represents warning verbosity.
	LogLevelWarn LogLevel = 4
	// LogLevelError represents error verbosity.
	LogLevelError LogLevel = 8
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ParseLogLevel converts a level name to a LogLevel, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Diagnostic is one message captured from a compiler call.
type Diagnostic struct {
	Level   LogLevel `json:"level"`
	Message string   `json:"message"`
}

// String formats the diagnostic as "LEVEL: message".
func (d Diagnostic) String() string {
	return d.Level.String() + ": " + d.Message
}

// CompilationResult is the outcome of one module compilation with its captured diagnostics.
type CompilationResult struct {
	Outcome     Outcome
	Diagnostics []Diagnostic
}

// Messages returns the diagnostics at the given level.
func (r CompilationResult) Messages(level LogLevel) []string {
	var msgs []string
	for _, d := range r.Diagnostics {
		if d.Level == level {
			msgs = append(msgs, d.Message)
		}
	}
	return msgs
}
