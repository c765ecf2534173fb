package signup

import (
	signupflow "sandboxsignup/internal/signup"
)

// Field presence and phone format are owned by the flow engine so failures
// carry the right kind and message; binding tags only cover what the engine
// does not check itself.
type SignupRequest struct {
	Email            string   `json:"email" binding:"omitempty,email"`
	Password         string   `json:"password" binding:"omitempty,min=8"`
	GivenName        string   `json:"given_name"`
	FamilyName       string   `json:"family_name"`
	Gender           string   `json:"gender"`
	AgeCategory      string   `json:"age_category"`
	Phone            string   `json:"phone_number"`
	Organisation     string   `json:"organisation"`
	OrganisationType string   `json:"organisation_type"`
	Interests        []string `json:"interests"`
	Countries        []string `json:"countries"`
	Timeframe        string   `json:"timeframe"`
	ReferralSource   string   `json:"referral_source"`
}

func (r *SignupRequest) toDraft() *signupflow.Draft {
	return &signupflow.Draft{
		Email:            r.Email,
		Password:         r.Password,
		GivenName:        r.GivenName,
		FamilyName:       r.FamilyName,
		Gender:           r.Gender,
		AgeCategory:      r.AgeCategory,
		Phone:            r.Phone,
		Organisation:     r.Organisation,
		OrganisationType: r.OrganisationType,
		Interests:        r.Interests,
		Countries:        r.Countries,
		Timeframe:        r.Timeframe,
		ReferralSource:   r.ReferralSource,
	}
}

type VerifyRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

type ResendRequest struct {
	Username string `json:"username"`
}

type DevLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}
