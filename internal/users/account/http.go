// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/accounts/internal/platform/middleware"
	requestutil "github.com/taibuivan/accounts/internal/platform/request"
	"github.com/taibuivan/accounts/internal/platform/respond"
	"github.com/taibuivan/accounts/internal/platform/validate"
	"github.com/taibuivan/accounts/internal/users/auth"
)

// Handler implements the HTTP layer for profile management.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] with the profile endpoints, mounted at /me.
//
// # Endpoints
//   - GET   / : Private profile of the caller.
//   - PATCH / : Partial update of the caller's names.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.getMe)
	router.Patch("/", handler.updateMe)

	return router
}

type updateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

/*
GET /api/v1/me.

Response:
  - 200: User
  - 401: Authentication required
  - 404: Account no longer exists
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetProfile(request.Context(), claims.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
PATCH /api/v1/me.

Request:
  - Body: updateProfileRequest (FirstName?, LastName?)

Response:
  - 200: User
  - 400: Validation failure
  - 401: Authentication required
*/
func (handler *Handler) updateMe(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateProfileRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Custom(auth.FieldFirstName, input.FirstName == nil && input.LastName == nil, "at least one field is required")
	if input.FirstName != nil {
		validator.Required(auth.FieldFirstName, *input.FirstName).
			MaxLen(auth.FieldFirstName, *input.FirstName, auth.NameMaxLength)
	}
	if input.LastName != nil {
		validator.Required(auth.FieldLastName, *input.LastName).
			MaxLen(auth.FieldLastName, *input.LastName, auth.NameMaxLength)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.UpdateProfile(request.Context(), claims.UserID, UpdateProfileInput{
		FirstName: input.FirstName,
		LastName:  input.LastName,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}
