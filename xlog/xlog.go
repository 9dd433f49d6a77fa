// Package xlog provides a minimal Logger interface whose nil value
// discards all output. The optimizer traces thousands of trials; callers
// enable the trace by passing any value satisfying Logger, for instance a
// *log.Logger, and disable it by passing nil without paying for argument
// formatting.
package xlog

import "fmt"

// Logger is the output sink. The standard library's *log.Logger satisfies
// it.
type Logger interface {
	Output(calldepth int, s string) error
}

// Printf formats and logs the arguments. A nil logger discards them.
func Printf(l Logger, format string, v ...interface{}) {
	if l != nil {
		l.Output(2, fmt.Sprintf(format, v...))
	}
}

// Println logs the arguments followed by a newline. A nil logger discards
// them.
func Println(l Logger, v ...interface{}) {
	if l != nil {
		l.Output(2, fmt.Sprintln(v...))
	}
}
