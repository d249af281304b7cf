/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package httpapi exposes one chi handler per RPC operation: a single
// HTTP endpoint taking typed arguments and returning a typed result.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/skillcore/coordinator/internal/apperrors"
)

// validate runs struct-tag validation ("validate:\"required\"" etc.) on
// decoded request bodies; a single instance is safe for concurrent use and
// caches its struct reflection, per the library's own documented usage.
var validate = validator.New(validator.WithRequiredStructEnabled())

// errorEnvelope is the wire shape of a failed call: a tagged Ok(T) | Err(text)
// result, realized over HTTP as status-code + body.
type errorEnvelope struct {
	Kind    apperrors.Kind `json:"kind"`
	Message string         `json:"message"`
	Details string         `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var ae *apperrors.AppError
	kind := apperrors.KindOf(err)
	status := (&apperrors.AppError{Kind: kind}).StatusCode()
	message := err.Error()
	details := ""
	if casted, ok := err.(*apperrors.AppError); ok {
		ae = casted
		message = ae.Message
		details = ae.Details
	}
	writeJSON(w, status, errorEnvelope{Kind: kind, Message: message, Details: details})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.Wrapf(err, apperrors.InvalidArgument, "malformed request body")
	}
	if err := validate.Struct(dst); err != nil {
		// dst is a slice/map/scalar rather than a struct (e.g. add_skill_batch's
		// bare array body) — nothing to validate via struct tags.
		if _, notStruct := err.(*validator.InvalidValidationError); notStruct {
			return nil
		}
		return apperrors.Wrapf(err, apperrors.InvalidArgument, "request failed validation")
	}
	return nil
}
