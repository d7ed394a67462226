package services

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge-api/shared"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	jwtSvc := NewJWTService("test-secret-do-not-use", time.Hour)
	authSvc := NewAuthService(newTestSqlService(t), jwtSvc, nil, 24*time.Hour)
	rlSvc := NewRateLimitService(1000, 1000, time.Minute, 1000)

	return BuildApp(jwtSvc, authSvc, rlSvc, []string{"/ping"}, nil)
}

func jsonRequest(t *testing.T, app *fiber.App, method, path, body, bearer string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return body
}

func decodeResponse(t *testing.T, resp *http.Response) shared.Response {
	t.Helper()
	var envelope shared.Response
	require.NoError(t, shared.JSONAPI.Unmarshal(readBody(t, resp), &envelope))
	return envelope
}

const (
	registerBody = `{"email":"johndoe@example.com","username":"johndoe","password":"SecurePass123!"}`
	loginBody    = `{"username":"johndoe","password":"SecurePass123!"}`
)

func loginTestUser(t *testing.T, app *fiber.App) (accessToken, refreshToken string) {
	t.Helper()

	resp := jsonRequest(t, app, http.MethodPost, "/api/v1/register", registerBody, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/login", loginBody, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeResponse(t, resp)
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)

	accessToken, _ = data["accessToken"].(string)
	refreshToken, _ = data["refreshToken"].(string)
	require.NotEmpty(t, accessToken)
	require.NotEmpty(t, refreshToken)
	return accessToken, refreshToken
}

func TestPing(t *testing.T) {
	app := newTestApp(t)

	resp := jsonRequest(t, app, http.MethodGet, "/ping", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeResponse(t, resp)
	assert.Equal(t, "pong", envelope.Data)
}

func TestRegisterLoginMeFlow(t *testing.T) {
	app := newTestApp(t)
	accessToken, _ := loginTestUser(t, app)

	resp := jsonRequest(t, app, http.MethodGet, "/api/v1/me", "", accessToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeResponse(t, resp)
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "johndoe", data["username"])
	assert.Equal(t, "johndoe@example.com", data["email"])
}

func TestMeWithoutTokenIsUnauthorized(t *testing.T) {
	app := newTestApp(t)

	resp := jsonRequest(t, app, http.MethodGet, "/api/v1/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	envelope := decodeResponse(t, resp)
	assert.Equal(t, 401, envelope.Code)
	assert.Equal(t, "Unauthorized", envelope.Message)
}

func TestLoginFailureBodiesAreIdentical(t *testing.T) {
	app := newTestApp(t)

	resp := jsonRequest(t, app, http.MethodPost, "/api/v1/register", registerBody, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	unknown := jsonRequest(t, app, http.MethodPost, "/api/v1/login",
		`{"username":"nobody","password":"SecurePass123!"}`, "")
	wrongPass := jsonRequest(t, app, http.MethodPost, "/api/v1/login",
		`{"username":"johndoe","password":"WrongPass123!"}`, "")

	assert.Equal(t, http.StatusUnauthorized, unknown.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, wrongPass.StatusCode)

	// Byte-for-byte the same. Nothing in the response may narrow the guess.
	assert.Equal(t, readBody(t, unknown), readBody(t, wrongPass))
}

func TestRegisterValidationFailure(t *testing.T) {
	app := newTestApp(t)

	resp := jsonRequest(t, app, http.MethodPost, "/api/v1/register",
		`{"email":"not-an-email","username":"johndoe","password":"weak"}`, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := readBody(t, resp)
	assert.Contains(t, string(body), "Validation failed")
}

func TestRefreshFlowOverHTTP(t *testing.T) {
	app := newTestApp(t)
	_, refreshToken := loginTestUser(t, app)

	resp := jsonRequest(t, app, http.MethodPost, "/api/v1/refresh",
		`{"refreshToken":"`+refreshToken+`"}`, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeResponse(t, resp)
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["accessToken"])
	assert.NotEqual(t, refreshToken, data["refreshToken"])

	// Replaying the consumed token fails with the generic body.
	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/refresh",
		`{"refreshToken":"`+refreshToken+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	envelope = decodeResponse(t, resp)
	assert.Equal(t, "Unauthorized", envelope.Message)
}

func TestLogoutBlacklistsAccessToken(t *testing.T) {
	app := newTestApp(t)
	accessToken, refreshToken := loginTestUser(t, app)

	resp := jsonRequest(t, app, http.MethodPost, "/api/v1/logout",
		`{"refreshToken":"`+refreshToken+`"}`, accessToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The blacklisted access token no longer authenticates.
	resp = jsonRequest(t, app, http.MethodGet, "/api/v1/me", "", accessToken)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Neither does the revoked refresh token rotate.
	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/refresh",
		`{"refreshToken":"`+refreshToken+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutMalformedBodyRejected(t *testing.T) {
	app := newTestApp(t)
	accessToken, _ := loginTestUser(t, app)

	resp := jsonRequest(t, app, http.MethodPost, "/api/v1/logout",
		`{"refreshToken":`, accessToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The rejected request must not have blacklisted the access token.
	resp = jsonRequest(t, app, http.MethodGet, "/api/v1/me", "", accessToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChangePasswordOverHTTP(t *testing.T) {
	app := newTestApp(t)
	accessToken, _ := loginTestUser(t, app)

	resp := jsonRequest(t, app, http.MethodPut, "/api/v1/password",
		`{"current_password":"SecurePass123!","new_password":"EvenBetter456!"}`, accessToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/login", loginBody, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/login",
		`{"username":"johndoe","password":"EvenBetter456!"}`, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRouteReturns404Envelope(t *testing.T) {
	app := newTestApp(t)

	resp := jsonRequest(t, app, http.MethodGet, "/api/v1/nope", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	envelope := decodeResponse(t, resp)
	assert.Equal(t, 404, envelope.Code)
	assert.Equal(t, "Not Found", envelope.Message)
}
