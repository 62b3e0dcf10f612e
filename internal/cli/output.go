package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"parishregistry/pkg/domain"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitRefused      = 1 // the register refused the operation
	ExitCommandError = 2 // bad flags, unreadable files, storage trouble
)

// usageError marks failures of the invocation itself.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var usage usageError
	if errors.As(err, &usage) {
		return ExitCommandError
	}
	switch domain.KindOf(err) {
	case domain.FailureStorage:
		return ExitCommandError
	default:
		return ExitRefused
	}
}

// response is the JSON envelope of every command.
type response struct {
	Status string         `json:"status"`
	Data   any            `json:"data,omitempty"`
	Error  *responseError `json:"error,omitempty"`
}

type responseError struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

type output struct {
	json bool
	w    io.Writer
	errw io.Writer
}

func newOutput(opts *RootOptions, w, errw io.Writer) output {
	return output{json: opts.Format == "json", w: w, errw: errw}
}

var (
	okMark    = color.New(color.FgGreen).Sprint("✓")
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
	headColor = color.New(color.Bold)
)

// emit writes data as a JSON envelope, or calls text for human output.
func (o output) emit(data any, text func(w io.Writer)) error {
	if o.json {
		return json.NewEncoder(o.w).Encode(response{Status: "ok", Data: data})
	}
	text(o.w)
	return nil
}

// fail renders err. JSON failures go to stdout so callers always get one
// envelope; text failures go to stderr.
func (o output) fail(err error) {
	kind := string(domain.KindOf(err))
	var usage usageError
	if errors.As(err, &usage) {
		kind = "usage"
	}
	var fields []string
	var verr domain.ValidationError
	if errors.As(err, &verr) {
		fields = verr.Fields
	}
	if o.json {
		_ = json.NewEncoder(o.w).Encode(response{
			Status: "error",
			Error:  &responseError{Kind: kind, Message: err.Error(), Fields: fields},
		})
		return
	}
	fmt.Fprintf(o.errw, "%s [%s] %v\n", errColor.Sprint("error"), kind, err)
	var taken domain.LedgerHeadTakenError
	if errors.As(err, &taken) {
		fmt.Fprintf(o.errw, "hint: %s\n", reseedHint)
	}
}

// table writes aligned columns with a bold header row.
func table(w io.Writer, header []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, h := range header {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, headColor.Sprint(h))
	}
	fmt.Fprintln(tw)
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	_ = tw.Flush()
}

func locatorText(l domain.Locator) string {
	return fmt.Sprintf("%s/%s/%s", l.Book, l.Folio, l.Entry)
}
