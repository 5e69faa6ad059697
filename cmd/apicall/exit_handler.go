package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/loykin/apicall/internal/common"
)

// ExitHandler provides a testable way to handle program termination
type ExitHandler interface {
	Exit(code int)
	Fail(w io.Writer, err error)
}

// usageError is an argument count or shape problem; the usage text goes to stderr.
type usageError struct {
	usage string
	msg   string
}

func (e *usageError) Error() string { return e.msg }

// reportedError has already been shown to the user and only sets the exit code.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// DefaultExitHandler implements ExitHandler for production use
type DefaultExitHandler struct{}

// Exit terminates the program with the given exit code
func (h *DefaultExitHandler) Exit(code int) {
	os.Exit(code)
}

// Fail writes err to w, with credentials masked, and exits with status 1.
func (h *DefaultExitHandler) Fail(w io.Writer, err error) {
	report(w, err)
	h.Exit(1)
}

func report(w io.Writer, err error) {
	var ue *usageError
	var re *reportedError
	switch {
	case errors.As(err, &ue):
		_, _ = fmt.Fprintln(w, "Error: "+ue.msg)
		_, _ = fmt.Fprint(w, ue.usage)
		if !strings.HasSuffix(ue.usage, "\n") {
			_, _ = fmt.Fprintln(w)
		}
	case errors.As(err, &re):
	default:
		_, _ = fmt.Fprintln(w, common.GetGlobalMasker().MaskString(err.Error()))
	}
}

// Global exit handler (can be replaced for testing)
var exitHandler ExitHandler = &DefaultExitHandler{}
