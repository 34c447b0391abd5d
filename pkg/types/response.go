package types

import "encoding/json"

// APIResult is the outcome of a proxied backend call.
// Status is zero when the round trip itself failed.
type APIResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Status  int             `json:"status,omitempty"`
}

// Response is the single reply produced for every inbound message:
// {success: true, ...result} or {success: false, error}.
type Response struct {
	Success  bool            `json:"success"`
	Error    string          `json:"error,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Status   int             `json:"status,omitempty"`
	Sessions []TabSession    `json:"sessions,omitempty"`
	Analysis Analysis        `json:"analysis,omitempty"`
	Tab      *Tab            `json:"tab,omitempty"`
}

// MarshalJSON flattens the response, always emitting "sessions" when it was set
// so an empty registry renders as [] rather than disappearing.
func (r Response) MarshalJSON() ([]byte, error) {
	type wire struct {
		Success  bool            `json:"success"`
		Error    string          `json:"error,omitempty"`
		Data     json.RawMessage `json:"data,omitempty"`
		Status   int             `json:"status,omitempty"`
		Sessions *[]TabSession   `json:"sessions,omitempty"`
		Analysis Analysis        `json:"analysis,omitempty"`
		Tab      *Tab            `json:"tab,omitempty"`
	}
	w := wire{
		Success:  r.Success,
		Error:    r.Error,
		Data:     r.Data,
		Status:   r.Status,
		Analysis: r.Analysis,
		Tab:      r.Tab,
	}
	if r.Sessions != nil {
		sessions := r.Sessions
		w.Sessions = &sessions
	}
	return json.Marshal(w)
}

// OK returns a bare success response.
func OK() Response {
	return Response{Success: true}
}

// Fail converts an error into a failure response.
func Fail(err error) Response {
	if err == nil {
		return Response{Success: false, Error: "unknown error"}
	}
	return Response{Success: false, Error: err.Error()}
}

// FromAPIResult relays a proxy result verbatim.
func FromAPIResult(res APIResult) Response {
	return Response{
		Success: res.Success,
		Data:    res.Data,
		Error:   res.Error,
		Status:  res.Status,
	}
}
