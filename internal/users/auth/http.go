// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/accounts/internal/platform/middleware"
	requestutil "github.com/taibuivan/accounts/internal/platform/request"
	"github.com/taibuivan/accounts/internal/platform/respond"
	"github.com/taibuivan/accounts/internal/platform/validate"
	"github.com/taibuivan/accounts/pkg/email"
)

// # Definitions & Constructors

// Handler implements the authentication HTTP endpoints.
//
// # Scope
//
// This layer is strictly responsible for transport concerns: decoding,
// input validation, email normalization and status codes. Every policy
// decision belongs to [Service].
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// The router expects [middleware.Authenticate] to run upstream so that
// /logout can read the caller's claims.
//
// # Endpoints
//   - POST /login                 : Opens a session.
//   - POST /register              : Creates an unverified account.
//   - POST /logout                : Revokes the current session.
//   - POST /refresh               : Rotates the session and issues new tokens.
//   - POST /forgot-password       : Emails a reset link.
//   - GET  /verify/forgot-password: Checks a reset link.
//   - POST /reset-password        : Applies a new password.
//   - GET  /verify/email          : Confirms an email address.
//   - POST /verify/email/resend   : Emails a new verification link.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/login", handler.login)
	router.Post("/register", handler.register)
	router.Post("/refresh", handler.refresh)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Get("/verify/forgot-password", handler.verifyForgotPassword)
	router.Post("/reset-password", handler.resetPassword)
	router.Get("/verify/email", handler.verifyEmail)
	router.Post("/verify/email/resend", handler.resendVerifyEmail)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/logout", handler.logout)
	})

	return router
}

// # Payloads

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// userIDResponse is the body of every flow that only reports which account it touched.
type userIDResponse struct {
	UserID string `json:"userId"`
}

/*
Login authenticates a user and opens a session.

POST /api/v1/auth/login

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: TokenPair
  - 400: Validation failure
  - 401: Invalid login credentials
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	input.Email = email.Normalize(input.Email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.SignIn(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

/*
Register creates a new account and sends its verification email.

POST /api/v1/auth/register

Request:
  - Body: registerRequest (Email, Password, FirstName, LastName)

Response:
  - 201: userIDResponse
  - 400: Validation failure
  - 409: Email already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	input.Email = email.Normalize(input.Email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		MaxLen(FieldEmail, input.Email, EmailMaxLength).
		Email(FieldEmail, input.Email).
		Password(FieldPassword, input.Password).
		Required(FieldFirstName, input.FirstName).
		MaxLen(FieldFirstName, input.FirstName, NameMaxLength).
		Required(FieldLastName, input.LastName).
		MaxLen(FieldLastName, input.LastName, NameMaxLength)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	userID, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, userIDResponse{UserID: userID})
}

/*
Logout revokes the session of the calling access token.

POST /api/v1/auth/logout

Response:
  - 204: No Content
  - 401: Missing or revoked token
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), claims); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
Refresh exchanges a refresh token for a new pair.

POST /api/v1/auth/refresh

Request:
  - Body: refreshRequest (RefreshToken)

Response:
  - 200: TokenPair
  - 401: Invalid, rotated or revoked refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.Required(FieldRefreshToken, input.RefreshToken).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.RefreshToken(request.Context(), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

/*
ForgotPassword emails a password reset link.

POST /api/v1/auth/forgot-password

Response:
  - 200: userIDResponse
  - 404: Unknown email
  - 429: Too many attempts
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	address, ok := handler.decodeEmail(writer, request)
	if !ok {
		return
	}

	userID, err := handler.authService.ForgotPassword(request.Context(), address)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, userIDResponse{UserID: userID})
}

// verifyForgotPassword handles GET /api/v1/auth/verify/forgot-password?token=.
func (handler *Handler) verifyForgotPassword(writer http.ResponseWriter, request *http.Request) {
	token, ok := handler.queryToken(writer, request)
	if !ok {
		return
	}

	userID, err := handler.authService.VerifyForgotPassword(request.Context(), token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, userIDResponse{UserID: userID})
}

/*
ResetPassword applies a new password with a reset token.

POST /api/v1/auth/reset-password

Request:
  - Body: resetPasswordRequest (Token, Password)

Response:
  - 200: userIDResponse
  - 400: Validation failure
  - 401: Invalid, consumed or superseded token
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token).
		Password(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	userID, err := handler.authService.ResetPassword(request.Context(), input.Token, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, userIDResponse{UserID: userID})
}

// verifyEmail handles GET /api/v1/auth/verify/email?token=.
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	token, ok := handler.queryToken(writer, request)
	if !ok {
		return
	}

	userID, err := handler.authService.VerifyEmail(request.Context(), token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, userIDResponse{UserID: userID})
}

// resendVerifyEmail handles POST /api/v1/auth/verify/email/resend.
func (handler *Handler) resendVerifyEmail(writer http.ResponseWriter, request *http.Request) {
	address, ok := handler.decodeEmail(writer, request)
	if !ok {
		return
	}

	userID, err := handler.authService.ResendVerificationEmail(request.Context(), address)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, userIDResponse{UserID: userID})
}

// # Helpers

// decodeEmail reads an emailRequest body and returns the normalized address.
// On failure the error response has already been written.
func (handler *Handler) decodeEmail(writer http.ResponseWriter, request *http.Request) (string, bool) {
	var input emailRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return "", false
	}

	address := email.Normalize(input.Email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, address).Email(FieldEmail, address)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return "", false
	}
	return address, true
}

func (handler *Handler) queryToken(writer http.ResponseWriter, request *http.Request) (string, bool) {
	token := requestutil.Query(request, FieldToken)

	validator := &validate.Validator{}
	if err := validator.Required(FieldToken, token).Err(); err != nil {
		respond.Error(writer, request, err)
		return "", false
	}
	return token, true
}
