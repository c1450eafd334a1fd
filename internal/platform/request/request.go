// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away common body decoding and query parsing patterns, ensuring
consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/taibuivan/accounts/internal/platform/apperr"
	"github.com/taibuivan/accounts/internal/platform/ctxutil"
	"github.com/taibuivan/accounts/internal/platform/sec"
	"github.com/taibuivan/accounts/internal/platform/validate"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - writer: http.ResponseWriter (used to cap the body size)
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	request.Body = http.MaxBytesReader(writer, request.Body, maxBodyBytes)

	decoder := json.NewDecoder(request.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Query returns the trimmed value of a URL query parameter.
*/
func Query(request *http.Request, name string) string {
	return strings.TrimSpace(request.URL.Query().Get(name))
}

/*
RequiredClaims ensures the request is authenticated and returns the access claims.

Returns:
  - *sec.AccessClaims: The verified claims placed by the auth middleware
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredClaims(request *http.Request) (*sec.AccessClaims, error) {

	// Get access claims
	claims := ctxutil.GetAccessClaims(request.Context())

	// If the caller is not authenticated, return an error
	if claims == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	return claims, nil
}
