// Package logger is the colored console logger used throughout the CLI
// binaries. It keeps the teacher's bracketed, ANSI-colored console texture
// (Debug/Info/Warn/Error/Success/Fatal/InfoCyan/Section/Banner) but delegates
// formatting and level filtering to logrus, and adds a per-transfer
// correlation id (rs/xid) so interleaved sender/receiver log lines stay
// attributable.
package logger

import (
	"fmt"
	"os"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// ANSI color codes, kept identical to the teacher's palette.
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[37m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
)

var base = logrus.New()

func init() {
	base.SetOutput(os.Stdout)
	base.SetFormatter(&consoleFormatter{TimeFormat: "15:04:05"})
	base.SetLevel(logrus.InfoLevel)
}

// SetLevel sets the minimum log level by name ("debug", "info", "warn",
// "error"). An unrecognised name is treated as "info".
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)
}

// ShowTime enables or disables the leading timestamp.
func ShowTime(show bool) {
	if f, ok := base.Formatter.(*consoleFormatter); ok {
		f.HideTime = !show
	}
}

// consoleFormatter renders log entries in the teacher's
// "[time] COLOR[LEVEL]RESET message" shape instead of logrus's default
// key=value text output.
type consoleFormatter struct {
	TimeFormat string
	HideTime   bool
}

func (f *consoleFormatter) Format(e *logrus.Entry) ([]byte, error) {
	color, prefix := levelStyle(e.Level)
	if marker, ok := e.Data["marker"]; ok && marker == "success" {
		color, prefix = ColorGreen, "SUCCESS"
	}
	if c, ok := e.Data["color"]; ok {
		color = c.(string)
	}

	var ts string
	if !f.HideTime {
		ts = fmt.Sprintf("%s[%s]%s ", ColorGray, e.Time.Format(f.TimeFormat), ColorReset)
	}

	sess := ""
	if id, ok := e.Data["session"]; ok {
		sess = fmt.Sprintf("%s(%v)%s ", ColorGray, id, ColorReset)
	}

	line := fmt.Sprintf("%s%s%s[%s]%s %s\n", ts, sess, color, prefix, ColorReset, e.Message)
	return []byte(line), nil
}

func levelStyle(lvl logrus.Level) (color, prefix string) {
	switch lvl {
	case logrus.DebugLevel:
		return ColorGray, "DEBUG"
	case logrus.WarnLevel:
		return ColorYellow, "WARN"
	case logrus.ErrorLevel, logrus.FatalLevel:
		return ColorRed, "ERROR"
	default:
		return ColorWhite, "INFO"
	}
}

// NewSessionID mints a correlation id for one transfer, using rs/xid's
// sortable, allocation-light globally unique id.
func NewSessionID() string { return xid.New().String() }

// WithSession returns a logrus.Entry that tags every subsequent log line
// with the given correlation id, so multiple concurrent transfers sharing
// one process stay attributable in the log stream.
func WithSession(id string) *logrus.Entry { return base.WithField("session", id) }

func Debug(format string, args ...interface{}) { base.Debugf(format, args...) }
func Info(format string, args ...interface{})  { base.Infof(format, args...) }
func Warn(format string, args ...interface{})  { base.Warnf(format, args...) }
func Error(format string, args ...interface{}) { base.Errorf(format, args...) }

// Success logs at info level with the green "SUCCESS" marker.
func Success(format string, args ...interface{}) {
	base.WithField("marker", "success").Infof(format, args...)
}

// InfoCyan logs an info message in cyan, for highlighting milestones like
// handshake completion.
func InfoCyan(format string, args ...interface{}) {
	base.WithField("color", ColorCyan).Infof(format, args...)
}

// Fatal logs at fatal level and exits the process (logrus's FatalLevel
// calls os.Exit(1) once the hooks and formatter have run).
func Fatal(format string, args ...interface{}) { base.Fatalf(format, args...) }

// Section prints a boxed section header, unchanged from the teacher.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Printf("\n%s╔%s╗%s\n", ColorCyan, border, ColorReset)
	fmt.Printf("%s║%s %-57s %s║%s\n", ColorCyan, ColorReset, title, ColorCyan, ColorReset)
	fmt.Printf("%s╚%s╝%s\n\n", ColorCyan, border, ColorReset)
}

// Banner prints the application banner, retitled for FRFTP.
func Banner(title, version string) {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   ███████╗██████╗ ███████╗████████╗██████╗               ║
║   ██╔════╝██╔══██╗██╔════╝╚══██╔══╝██╔══██╗              ║
║   █████╗  ██████╔╝█████╗     ██║   ██████╔╝              ║
║   ██╔══╝  ██╔══██╗██╔══╝     ██║   ██╔═══╝               ║
║   ██║     ██║  ██║██║        ██║   ██║                   ║
║   ╚═╝     ╚═╝  ╚═╝╚═╝        ╚═╝   ╚═╝                   ║
║                                                           ║
║              %s%-37s%s║
║                    %sVersion %-7s%s                      ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, ColorCyan, title, ColorReset, ColorGreen, version, ColorReset)
}
