package core

import "strings"

// Request is the input of one analysis run.
type Request struct {
	// Subject names the writer under research. Required.
	Subject string `json:"subject" yaml:"subject"`
	// Mode selects parallel or sequential dispatch. Empty means parallel.
	Mode Mode `json:"mode,omitempty" yaml:"mode,omitempty"`
	// Selectors are opaque worker/model selectors forwarded verbatim to workers.
	Selectors map[string]string `json:"worker_selectors,omitempty" yaml:"worker_selectors,omitempty"`
}

// Normalize returns a copy with the subject trimmed and the default mode
// applied. Selectors are shallow copied so workers cannot mutate the caller's map.
func (r Request) Normalize() Request {
	out := Request{
		Subject: strings.TrimSpace(r.Subject),
		Mode:    r.Mode,
	}
	if out.Mode == "" {
		out.Mode = ModeParallel
	}
	if len(r.Selectors) > 0 {
		out.Selectors = make(map[string]string, len(r.Selectors))
		for k, v := range r.Selectors {
			out.Selectors[k] = v
		}
	}
	return out
}

// Validate checks the request before anything is dispatched.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Subject) == "" {
		return &ValidationError{Field: "subject", Message: "subject is required and cannot be empty"}
	}
	if _, err := ParseMode(string(r.Mode)); err != nil {
		return &ValidationError{Field: "mode", Message: err.Error()}
	}
	return nil
}
