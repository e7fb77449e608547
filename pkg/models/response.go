package models

import "time"

// ResponseStatus is the outcome classification of a dispatched call.
type ResponseStatus string

const (
	ResponseSuccess ResponseStatus = "success"
	ResponseError   ResponseStatus = "error"
	ResponseWarning ResponseStatus = "warning"
)

// Response is the standardized value contract every dispatched tool or
// handler call is normalized into before it touches task state.
//
// Invariant: Success=false implies Status=ResponseError and a non-empty
// ErrorCode.
type Response struct {
	Success bool           `json:"success"`
	Status  ResponseStatus `json:"status"`

	Result any `json:"result,omitempty"`
	// Response duplicates Result for legacy consumers that read the old key.
	Response any `json:"response,omitempty"`

	Error        string         `json:"error,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty"`
	ErrorDetails map[string]any `json:"error_details,omitempty"`

	Warning        string         `json:"warning,omitempty"`
	WarningCode    string         `json:"warning_code,omitempty"`
	WarningDetails map[string]any `json:"warning_details,omitempty"`

	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewSuccess builds a conformant success response around a result value.
func NewSuccess(result any) *Response {
	return &Response{
		Success:   true,
		Status:    ResponseSuccess,
		Result:    result,
		Response:  result,
		Timestamp: time.Now().UTC(),
	}
}

// NewWarning builds a success-with-warning response. The task completes,
// the warning fields are retained on its output.
func NewWarning(result any, message, code string, details map[string]any) *Response {
	return &Response{
		Success:        true,
		Status:         ResponseWarning,
		Result:         result,
		Response:       result,
		Warning:        message,
		WarningCode:    code,
		WarningDetails: details,
		Timestamp:      time.Now().UTC(),
	}
}

// NewFailure builds a conformant error response. An empty code falls back
// to the unknown category so the Success=false invariant always holds.
func NewFailure(message, code string, details map[string]any) *Response {
	if code == "" {
		code = CodeUnknown
	}

	return &Response{
		Success:      false,
		Status:       ResponseError,
		Error:        message,
		ErrorCode:    code,
		ErrorDetails: details,
		Timestamp:    time.Now().UTC(),
	}
}

// View renders the response as the mapping template references resolve
// against, so ${task.result.x} walks output.result.x.
func (r *Response) View() map[string]any {
	view := map[string]any{
		"success":   r.Success,
		"status":    string(r.Status),
		"timestamp": r.Timestamp.Format(time.RFC3339Nano),
	}

	if r.Result != nil {
		view["result"] = r.Result
		view["response"] = r.Response
	}

	if r.Error != "" {
		view["error"] = r.Error
		view["error_code"] = r.ErrorCode
	}

	if r.ErrorDetails != nil {
		view["error_details"] = r.ErrorDetails
	}

	if r.Warning != "" {
		view["warning"] = r.Warning
		view["warning_code"] = r.WarningCode
	}

	if r.WarningDetails != nil {
		view["warning_details"] = r.WarningDetails
	}

	if r.Metadata != nil {
		view["metadata"] = r.Metadata
	}

	return view
}

// Normalize converts a raw dispatch return into a Standard Response.
// Already-conformant responses pass through (missing fields completed),
// partial mappings carrying success/status keys are completed, and any
// other bare value is wrapped as a success result.
func Normalize(raw any) *Response {
	switch v := raw.(type) {
	case *Response:
		return normalizeResponse(v)
	case Response:
		return normalizeResponse(&v)
	case map[string]any:
		if _, ok := v["success"]; ok {
			return normalizeMap(v)
		}

		if _, ok := v["status"]; ok {
			return normalizeMap(v)
		}

		return NewSuccess(v)
	default:
		return NewSuccess(raw)
	}
}

func normalizeResponse(resp *Response) *Response {
	if resp.Timestamp.IsZero() {
		resp.Timestamp = time.Now().UTC()
	}

	if resp.Status == "" {
		if resp.Success {
			resp.Status = ResponseSuccess
		} else {
			resp.Status = ResponseError
		}
	}

	if !resp.Success {
		resp.Status = ResponseError

		if resp.ErrorCode == "" {
			resp.ErrorCode = CodeUnknown
		}
	}

	if resp.Response == nil {
		resp.Response = resp.Result
	} else if resp.Result == nil {
		resp.Result = resp.Response
	}

	return resp
}

func normalizeMap(m map[string]any) *Response {
	resp := &Response{}

	if success, ok := m["success"].(bool); ok {
		resp.Success = success
	}

	if status, ok := m["status"].(string); ok {
		resp.Status = ResponseStatus(status)
	}

	if result, ok := m["result"]; ok {
		resp.Result = result
	} else if result, ok := m["response"]; ok {
		resp.Result = result
	}

	if msg, ok := m["error"].(string); ok {
		resp.Error = msg
	}

	if code, ok := m["error_code"].(string); ok {
		resp.ErrorCode = code
	}

	if details, ok := m["error_details"].(map[string]any); ok {
		resp.ErrorDetails = details
	}

	if msg, ok := m["warning"].(string); ok {
		resp.Warning = msg
	}

	if code, ok := m["warning_code"].(string); ok {
		resp.WarningCode = code
	}

	if details, ok := m["warning_details"].(map[string]any); ok {
		resp.WarningDetails = details
	}

	if metadata, ok := m["metadata"].(map[string]any); ok {
		resp.Metadata = metadata
	}

	// A status without an explicit success flag implies one.
	if _, ok := m["success"]; !ok {
		resp.Success = resp.Status == ResponseSuccess || resp.Status == ResponseWarning
	}

	return normalizeResponse(resp)
}
