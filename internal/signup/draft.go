package signup

import (
	"fmt"
	"regexp"
	"strings"

	"sandboxsignup/internal/directory"
)

// E.164: plus sign, then 2-15 digits with no leading zero.
var phoneRegex = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

const phoneExample = "+12025550123"

// Draft holds everything the sign-up form collects. It lives in memory for
// the lifetime of one form instance and is discarded after a successful
// submission.
type Draft struct {
	Email            string
	Password         string
	GivenName        string
	FamilyName       string
	Gender           string
	AgeCategory      string
	Phone            string
	Organisation     string
	OrganisationType string
	Interests        []string
	Countries        []string
	Timeframe        string
	ReferralSource   string
}

// Validate enforces the submission preconditions: every field populated and
// a well-formed phone number. It performs no external calls.
func (d *Draft) Validate() error {
	var missing []string
	check := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, label)
		}
	}

	check("email", d.Email)
	check("password", d.Password)
	check("given name", d.GivenName)
	check("family name", d.FamilyName)
	check("gender", d.Gender)
	check("age category", d.AgeCategory)
	check("phone number", d.Phone)
	check("organisation", d.Organisation)
	check("organisation type", d.OrganisationType)
	check("timeframe", d.Timeframe)
	check("referral source", d.ReferralSource)
	if len(d.Interests) == 0 {
		missing = append(missing, "interests")
	}
	if len(d.Countries) == 0 {
		missing = append(missing, "countries")
	}

	if len(missing) > 0 {
		return &ValidationError{
			Kind:    KindMissingFields,
			Message: "Please fill in all required fields: " + strings.Join(missing, ", "),
		}
	}

	if !phoneRegex.MatchString(d.Phone) {
		return &ValidationError{
			Kind:    KindInvalidPhoneFormat,
			Message: fmt.Sprintf("Phone number must be in international format, e.g. %s", phoneExample),
		}
	}

	return nil
}

// Attributes flattens the profile for the directory. Multi-valued fields are
// comma-joined, the way the directory stores them as single strings.
func (d *Draft) Attributes() []directory.Attribute {
	return []directory.Attribute{
		{Name: "email", Value: d.Email},
		{Name: "given_name", Value: d.GivenName},
		{Name: "family_name", Value: d.FamilyName},
		{Name: "phone_number", Value: d.Phone},
		{Name: "gender", Value: d.Gender},
		{Name: "custom:age_category", Value: d.AgeCategory},
		{Name: "custom:organisation", Value: d.Organisation},
		{Name: "custom:organisation_type", Value: d.OrganisationType},
		{Name: "custom:interests", Value: strings.Join(d.Interests, ",")},
		{Name: "custom:countries", Value: strings.Join(d.Countries, ",")},
		{Name: "custom:timeframe", Value: d.Timeframe},
		{Name: "custom:referral_source", Value: d.ReferralSource},
	}
}
