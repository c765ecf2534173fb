package signup

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sandboxsignup/internal/config"
	"sandboxsignup/internal/directory"
)

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) CreateAccount(ctx context.Context, in directory.CreateAccountInput) (*directory.Account, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*directory.Account), args.Error(1)
}

func (m *mockDirectory) ConfirmRegistration(ctx context.Context, username, code string) error {
	args := m.Called(ctx, username, code)
	return args.Error(0)
}

func (m *mockDirectory) ResendConfirmationCode(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *mockDirectory) VerifyAttribute(ctx context.Context, username, attribute, code string) error {
	args := m.Called(ctx, username, attribute, code)
	return args.Error(0)
}

type mockBotCheck struct {
	mock.Mock
}

func (m *mockBotCheck) Token(ctx context.Context, action string) (string, error) {
	args := m.Called(ctx, action)
	return args.String(0), args.Error(1)
}

type envelope struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
	Message string         `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details"`
	} `json:"error"`
}

func testConfig() *config.Config {
	return &config.Config{
		Pool: config.PoolConfig{
			UserPoolID:      "eu-west-1_sandbox",
			ClientID:        "client-123",
			Region:          "eu-west-1",
			HostedDomain:    "auth.sandbox.example.org",
			RedirectURI:     "https://sandbox.example.org/callback",
			LoginURL:        "https://auth.sandbox.example.org/login",
			BotCheckSiteKey: "site-key",
		},
		VerifyMode:    "confirm_registration",
		HandoffDelay:  5 * time.Second,
		RedirectDelay: 3 * time.Second,
	}
}

func newTestRouter(cfg *config.Config, dir directory.Client, bc *mockBotCheck) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v1 := r.Group("/api/v1")
	NewHandler(cfg, dir, bc, nil).RegisterRoutes(v1)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func signupBody() map[string]any {
	return map[string]any{
		"email":             "jane@example.org",
		"password":          "correct-horse-battery",
		"given_name":        "Jane",
		"family_name":       "Mwangi",
		"gender":            "Female",
		"age_category":      "25-34",
		"phone_number":      "+254712345678",
		"organisation":      "University of Nairobi",
		"organisation_type": "University / Research institute",
		"interests":         []string{"Water Management", "Wetlands"},
		"countries":         []string{"Kenya"},
		"timeframe":         "Immediately",
		"referral_source":   "Colleague or friend",
	}
}

func TestHandler_Submit_Success(t *testing.T) {
	dir := new(mockDirectory)
	bc := new(mockBotCheck)
	bc.On("Token", mock.Anything, "signup").Return("ok-token", nil)
	dir.On("CreateAccount", mock.Anything, mock.Anything).
		Return(&directory.Account{Username: "jane@example.org", Sub: "abc-123"}, nil).Once()

	r := newTestRouter(testConfig(), dir, bc)
	w, env := doJSON(t, r, http.MethodPost, "/api/v1/signup", signupBody())

	assert.Equal(t, http.StatusCreated, w.Code)
	require.True(t, env.Success)
	assert.Equal(t, "jane@example.org", env.Data["username"])
	assert.Equal(t, "verify", env.Data["next"])
	assert.Equal(t, float64(5), env.Data["handoff_delay_seconds"])
	dir.AssertExpectations(t)
}

func TestHandler_Submit_MissingFields(t *testing.T) {
	dir := new(mockDirectory)
	bc := new(mockBotCheck)

	body := signupBody()
	body["organisation"] = ""

	r := newTestRouter(testConfig(), dir, bc)
	w, env := doJSON(t, r, http.MethodPost, "/api/v1/signup", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "MISSING_FIELDS", env.Error.Code)
	dir.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything)
}

func TestHandler_Submit_InvalidPhone(t *testing.T) {
	dir := new(mockDirectory)
	bc := new(mockBotCheck)

	body := signupBody()
	body["phone_number"] = "0123456789"

	r := newTestRouter(testConfig(), dir, bc)
	w, env := doJSON(t, r, http.MethodPost, "/api/v1/signup", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_PHONE", env.Error.Code)
	assert.Contains(t, env.Error.Message, "+12025550123")
}

func TestHandler_Submit_UnknownOption(t *testing.T) {
	dir := new(mockDirectory)
	bc := new(mockBotCheck)

	body := signupBody()
	body["interests"] = []string{"Cryptocurrency"}

	r := newTestRouter(testConfig(), dir, bc)
	w, env := doJSON(t, r, http.MethodPost, "/api/v1/signup", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	dir.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything)
}

func TestHandler_Submit_EmailExists(t *testing.T) {
	dir := new(mockDirectory)
	bc := new(mockBotCheck)
	bc.On("Token", mock.Anything, "signup").Return("ok-token", nil)
	dir.On("CreateAccount", mock.Anything, mock.Anything).Return(nil, directory.ErrAccountExists)

	r := newTestRouter(testConfig(), dir, bc)
	w, env := doJSON(t, r, http.MethodPost, "/api/v1/signup", signupBody())

	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "EMAIL_EXISTS", env.Error.Code)
	assert.Contains(t, env.Error.Message, "sign in")
}

func TestHandler_Submit_BotCheckUnavailable(t *testing.T) {
	dir := new(mockDirectory)
	bc := new(mockBotCheck)
	bc.On("Token", mock.Anything, "signup").Return("", assert.AnError)

	r := newTestRouter(testConfig(), dir, bc)
	w, env := doJSON(t, r, http.MethodPost, "/api/v1/signup", signupBody())

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "BOT_CHECK_UNAVAILABLE", env.Error.Code)
	dir.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything)
}

func TestHandler_Verify_MissingUsername(t *testing.T) {
	dir := new(mockDirectory)
	bc := new(mockBotCheck)

	r := newTestRouter(testConfig(), dir, bc)
	w, env := doJSON(t, r, http.MethodPost, "/api/v1/signup/verify", map[string]any{
		"username": "",
		"code":     "123456",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "MISSING_USERNAME", env.Error.Code)
	assert.Contains(t, env.Error.Message, "restart")
	dir.AssertNotCalled(t, "ConfirmRegistration", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Verify_Success(t *testing.T) {
	dir := new(mockDirectory)
	bc := new(mockBotCheck)
	dir.On("ConfirmRegistration", mock.Anything, "jane@example.org", "123456").Return(nil).Once()

	r := newTestRouter(testConfig(), dir, bc)
	w, env := doJSON(t, r, http.MethodPost, "/api/v1/signup/verify", map[string]any{
		"username": "jane@example.org",
		"code":     "123456",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)
	assert.Equal(t, "https://auth.sandbox.example.org/login", env.Data["login_url"])
	assert.Equal(t, float64(3), env.Data["redirect_delay_seconds"])
	dir.AssertExpectations(t)
}

func TestHandler_Verify_AttributeMode(t *testing.T) {
	dir := new(mockDirectory)
	bc := new(mockBotCheck)
	dir.On("VerifyAttribute", mock.Anything, "jane@example.org", "phone_number", "123456").Return(nil).Once()

	cfg := testConfig()
	cfg.VerifyMode = "verify_attribute"

	r := newTestRouter(cfg, dir, bc)
	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/signup/verify", map[string]any{
		"username": "jane@example.org",
		"code":     "123456",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	dir.AssertExpectations(t)
}

func TestHandler_Verify_EmptyCode(t *testing.T) {
	dir := new(mockDirectory)
	bc := new(mockBotCheck)

	r := newTestRouter(testConfig(), dir, bc)
	w, env := doJSON(t, r, http.MethodPost, "/api/v1/signup/verify", map[string]any{
		"username": "jane@example.org",
		"code":     "",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "MISSING_CODE", env.Error.Code)
	dir.AssertNotCalled(t, "ConfirmRegistration", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Resend_Banner(t *testing.T) {
	dir := new(mockDirectory)
	bc := new(mockBotCheck)
	dir.On("ResendConfirmationCode", mock.Anything, "jane@example.org").Return(nil).Once()

	r := newTestRouter(testConfig(), dir, bc)
	w, env := doJSON(t, r, http.MethodPost, "/api/v1/signup/resend", map[string]any{
		"username": "jane@example.org",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Contains(t, env.Message, "new verification code")
	dir.AssertExpectations(t)
}

func TestHandler_ConfigAndOptions(t *testing.T) {
	r := newTestRouter(testConfig(), new(mockDirectory), new(mockBotCheck))

	w, env := doJSON(t, r, http.MethodGet, "/api/v1/signup/config", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://auth.sandbox.example.org/login", env.Data["login_url"])
	assert.Equal(t, "site-key", env.Data["bot_check_site_key"])

	w, env = doJSON(t, r, http.MethodGet, "/api/v1/signup/options", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, env.Data["genders"])
	assert.NotEmpty(t, env.Data["countries"])
}

func TestHandler_DevLoginAbsentWithoutDevPool(t *testing.T) {
	r := newTestRouter(testConfig(), new(mockDirectory), new(mockBotCheck))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dev/login", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
