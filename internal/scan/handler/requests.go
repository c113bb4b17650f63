package handler

import (
	"encoding/base64"
	"strings"

	dErrors "mrzgate/pkg/domain-errors"
)

// ExtractRequest is the JSON body accepted by POST /extract-mrz.
type ExtractRequest struct {
	Base64 string `json:"base64"`

	// Populated by Validate
	data []byte
}

// Validate decodes the payload, dropping an optional data URL prefix.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ExtractRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "no image provided")
	}
	payload := strings.TrimSpace(r.Base64)
	if payload == "" {
		return dErrors.New(dErrors.CodeBadRequest, "no image provided")
	}
	if strings.HasPrefix(payload, "data:") {
		if _, after, ok := strings.Cut(payload, ","); ok {
			payload = after
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid base64 image")
	}
	r.data = data
	return nil
}

// Data returns the decoded image bytes.
func (r *ExtractRequest) Data() []byte {
	return r.data
}
