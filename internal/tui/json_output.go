package tui

import (
	"encoding/json"
	"errors"
	"io"

	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
)

// JSONOutput renders machine-readable output, one JSON value per line.
// Intended for scripting and piping into tools like jq.
type JSONOutput struct {
	w       io.Writer
	encoder *json.Encoder
}

// NewJSONOutput creates a JSON output writer.
func NewJSONOutput(w io.Writer) *JSONOutput {
	return &JSONOutput{
		w:       w,
		encoder: json.NewEncoder(w),
	}
}

// jsonMessage is the wire shape for success, warning, and info messages.
type jsonMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// jsonError is the wire shape for errors. Details carries the wrapped cause
// and Suggestion the recovery command, when either is known.
type jsonError struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// jsonTable is the wire shape for tabular data: one object per row keyed by
// header name.
type jsonTable struct {
	Type string              `json:"type"`
	Rows []map[string]string `json:"rows"`
}

// Success emits a success message object.
func (o *JSONOutput) Success(msg string) {
	//nolint:errchkjson // Best-effort output, nowhere to report the failure
	_ = o.encoder.Encode(jsonMessage{Type: "success", Message: msg})
}

// Error emits an error object with the wrapped cause and the recovery
// suggestion when one is known for the error.
func (o *JSONOutput) Error(err error) {
	if err == nil {
		return
	}

	message, action := gaffererrors.Actionable(err)
	payload := jsonError{
		Type:       "error",
		Message:    message,
		Suggestion: action,
	}
	if cause := errors.Unwrap(err); cause != nil {
		payload.Details = cause.Error()
	}

	//nolint:errchkjson // Best-effort output, nowhere to report the failure
	_ = o.encoder.Encode(payload)
}

// Warning emits a warning message object.
func (o *JSONOutput) Warning(msg string) {
	//nolint:errchkjson // Best-effort output, nowhere to report the failure
	_ = o.encoder.Encode(jsonMessage{Type: "warning", Message: msg})
}

// Info emits an info message object.
func (o *JSONOutput) Info(msg string) {
	//nolint:errchkjson // Best-effort output, nowhere to report the failure
	_ = o.encoder.Encode(jsonMessage{Type: "info", Message: msg})
}

// Table emits rows as objects keyed by header name so consumers do not need
// positional knowledge.
func (o *JSONOutput) Table(headers []string, rows [][]string) {
	out := jsonTable{
		Type: "table",
		Rows: make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		obj := make(map[string]string, len(headers))
		for i, header := range headers {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			obj[header] = value
		}
		out.Rows = append(out.Rows, obj)
	}

	//nolint:errchkjson // Best-effort output, nowhere to report the failure
	_ = o.encoder.Encode(out)
}

// JSON emits v directly as one JSON line.
func (o *JSONOutput) JSON(v any) error {
	if err := o.encoder.Encode(v); err != nil {
		return gaffererrors.Wrap(err, "failed to encode JSON output")
	}
	return nil
}
