package assistants

import "fmt"

// APIError is a decoded error envelope returned by the remote service.
type APIError struct {
	StatusCode int
	Message    string
	Type       string
	Code       string
}

func (e *APIError) Error() string {
	if e.Type != "" || e.Code != "" {
		return fmt.Sprintf("assistants API error (status %d): %s (type: %s, code: %s)",
			e.StatusCode, e.Message, e.Type, e.Code)
	}
	return fmt.Sprintf("assistants API error (status %d): %s", e.StatusCode, e.Message)
}

// MissingFieldError reports that a response decoded successfully but an
// expected field was absent. Distinct from a failed call.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("response field %q is absent", e.Field)
}

// ToolCalls extracts the pending tool calls from a run paused on
// requires_action. Returns MissingFieldError when the run carries no
// submit_tool_outputs payload.
func (r *Run) ToolCalls() ([]ToolCall, error) {
	if r.RequiredAction == nil {
		return nil, &MissingFieldError{Field: "required_action"}
	}
	if r.RequiredAction.SubmitToolOutputs == nil {
		return nil, &MissingFieldError{Field: "required_action.submit_tool_outputs"}
	}
	return r.RequiredAction.SubmitToolOutputs.ToolCalls, nil
}
