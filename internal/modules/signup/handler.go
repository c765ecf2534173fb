package signup

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sandboxsignup/internal/botcheck"
	"sandboxsignup/internal/config"
	"sandboxsignup/internal/directory"
	"sandboxsignup/internal/pkg/response"
	"sandboxsignup/internal/refdata"
	signupflow "sandboxsignup/internal/signup"
)

// Handler serves the sign-up page's JSON API. Each request runs one pass
// through a fresh flow instance; the browser owns the display delays using
// the values echoed back here.
type Handler struct {
	cfg       *config.Config
	directory directory.Client
	botcheck  botcheck.Provider
	devpool   *directory.DevPool
}

func NewHandler(cfg *config.Config, dir directory.Client, bc botcheck.Provider, devpool *directory.DevPool) *Handler {
	return &Handler{
		cfg:       cfg,
		directory: dir,
		botcheck:  bc,
		devpool:   devpool,
	}
}

func (h *Handler) RegisterRoutes(v1 *gin.RouterGroup) {
	group := v1.Group("/signup")
	{
		group.GET("/config", h.GetConfig)
		group.GET("/options", h.GetOptions)
		group.POST("", h.Submit)
		group.POST("/verify", h.Verify)
		group.POST("/resend", h.Resend)
	}

	if h.devpool != nil {
		v1.POST("/dev/login", h.DevLogin)
	}
}

// GetConfig returns the public configuration subset the form needs. All of
// these values are public in a hosted user pool setup.
func (h *Handler) GetConfig(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"user_pool_id":           h.cfg.Pool.UserPoolID,
		"client_id":              h.cfg.Pool.ClientID,
		"region":                 h.cfg.Pool.Region,
		"hosted_domain":          h.cfg.Pool.HostedDomain,
		"redirect_uri":           h.cfg.Pool.RedirectURI,
		"login_url":              h.cfg.Pool.LoginURL,
		"bot_check_site_key":     h.cfg.Pool.BotCheckSiteKey,
		"verify_mode":            h.cfg.VerifyMode,
		"handoff_delay_seconds":  int(h.cfg.HandoffDelay.Seconds()),
		"redirect_delay_seconds": int(h.cfg.RedirectDelay.Seconds()),
	})
}

func (h *Handler) GetOptions(c *gin.Context) {
	response.Success(c, http.StatusOK, refdata.Options())
}

func (h *Handler) Submit(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if details := checkOptions(&req); len(details) > 0 {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown option value", details)
		return
	}

	form := signupflow.NewForm(h.directory, h.botcheck,
		signupflow.WithHandoffDelay(h.cfg.HandoffDelay))
	defer form.Close()

	result, err := form.Submit(c.Request.Context(), req.toDraft())
	if err != nil {
		h.renderFlowError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"username":              result.Username,
		"sub":                   result.Account.Sub,
		"message":               result.Message,
		"next":                  "verify",
		"handoff_delay_seconds": int(result.HandoffDelay.Seconds()),
	})
}

func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	flow, err := h.newVerification(req.Username, false)
	if err != nil {
		h.renderFlowError(c, err)
		return
	}
	defer flow.Close()

	result, err := flow.Verify(c.Request.Context(), req.Code)
	if err != nil {
		h.renderFlowError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message":                result.Message,
		"login_url":              result.LoginURL,
		"redirect_delay_seconds": int(result.RedirectDelay.Seconds()),
	})
}

func (h *Handler) Resend(c *gin.Context) {
	var req ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	flow, err := h.newVerification(req.Username, h.cfg.ResendBotCheck)
	if err != nil {
		h.renderFlowError(c, err)
		return
	}
	defer flow.Close()

	message, err := flow.Resend(c.Request.Context())
	if err != nil {
		h.renderFlowError(c, err)
		return
	}

	response.Banner(c, http.StatusOK, message)
}

func (h *Handler) DevLogin(c *gin.Context) {
	var req DevLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	result, err := h.devpool.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect")
		case errors.Is(err, directory.ErrNotConfirmed):
			response.Error(c, http.StatusForbidden, "NOT_CONFIRMED", "Confirm your account before signing in")
		default:
			response.Error(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to sign in")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": result.Token,
		"account": gin.H{
			"username": result.Account.Username,
			"sub":      result.Account.Sub,
		},
	})
}

func (h *Handler) newVerification(username string, withBotCheck bool) (*signupflow.Verification, error) {
	opts := []signupflow.VerificationOption{
		signupflow.WithRedirect(nil, h.cfg.Pool.LoginURL, h.cfg.RedirectDelay),
	}
	if h.cfg.VerifyMode == "verify_attribute" {
		opts = append(opts, signupflow.WithMode(signupflow.ModeVerifyAttribute))
	}
	if withBotCheck {
		opts = append(opts, signupflow.WithResendBotCheck(h.botcheck))
	}
	return signupflow.NewVerification(h.directory, username, opts...)
}

func (h *Handler) renderFlowError(c *gin.Context, err error) {
	var verr *signupflow.ValidationError
	if errors.As(err, &verr) {
		switch verr.Kind {
		case signupflow.KindMissingFields:
			response.Error(c, http.StatusBadRequest, "MISSING_FIELDS", verr.Message)
		case signupflow.KindInvalidPhoneFormat:
			response.Error(c, http.StatusBadRequest, "INVALID_PHONE", verr.Message)
		case signupflow.KindMissingCode:
			response.Error(c, http.StatusBadRequest, "MISSING_CODE", verr.Message)
		case signupflow.KindBotCheckUnavailable:
			response.Error(c, http.StatusServiceUnavailable, "BOT_CHECK_UNAVAILABLE", verr.Message)
		case signupflow.KindBotCheckRejected:
			response.Error(c, http.StatusBadRequest, "BOT_CHECK_REJECTED", verr.Message)
		default:
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", verr.Message)
		}
		return
	}

	var rerr *signupflow.RemoteError
	if errors.As(err, &rerr) {
		if rerr.Kind == signupflow.RemoteAccountExists {
			response.Error(c, http.StatusConflict, "EMAIL_EXISTS", rerr.Message)
			return
		}
		// Remote failure messages are surfaced verbatim.
		response.Error(c, http.StatusBadGateway, "REMOTE_ERROR", rerr.Message)
		return
	}

	if errors.Is(err, signupflow.ErrMissingUsername) {
		response.Error(c, http.StatusBadRequest, "MISSING_USERNAME",
			"No username provided. Please restart from the sign-up form.")
		return
	}

	response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
}

func checkOptions(req *SignupRequest) map[string]string {
	details := make(map[string]string)
	if req.Gender != "" && !refdata.ValidGender(req.Gender) {
		details["gender"] = req.Gender
	}
	if req.AgeCategory != "" && !refdata.ValidAgeCategory(req.AgeCategory) {
		details["age_category"] = req.AgeCategory
	}
	if req.OrganisationType != "" && !refdata.ValidOrganisationType(req.OrganisationType) {
		details["organisation_type"] = req.OrganisationType
	}
	if req.Timeframe != "" && !refdata.ValidTimeframe(req.Timeframe) {
		details["timeframe"] = req.Timeframe
	}
	if req.ReferralSource != "" && !refdata.ValidReferralSource(req.ReferralSource) {
		details["referral_source"] = req.ReferralSource
	}
	for _, interest := range req.Interests {
		if !refdata.ValidInterest(interest) {
			details["interests"] = interest
		}
	}
	for _, country := range req.Countries {
		if !refdata.ValidCountry(country) {
			details["countries"] = country
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}
