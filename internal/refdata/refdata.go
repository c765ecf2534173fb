package refdata

// Static option sets for the sign-up form. These are reference data for
// validation and rendering only; the identity directory stores the chosen
// values as plain attribute strings.

var Genders = []string{
	"Male",
	"Female",
	"Other",
	"Prefer not to say",
}

var AgeCategories = []string{
	"Under 18",
	"18-24",
	"25-34",
	"35-44",
	"45-54",
	"55+",
}

var OrganisationTypes = []string{
	"University / Research institute",
	"Government agency",
	"Non-governmental organisation",
	"Private sector",
	"Intergovernmental organisation",
	"Other",
}

var Interests = []string{
	"Agriculture",
	"Coastal Monitoring",
	"Land Cover Change",
	"Urbanisation",
	"Water Management",
	"Wetlands",
	"Vegetation Health",
	"Disaster Response",
}

var Countries = []string{
	"Algeria",
	"Botswana",
	"Egypt",
	"Ethiopia",
	"Ghana",
	"Kenya",
	"Morocco",
	"Mozambique",
	"Nigeria",
	"Rwanda",
	"Senegal",
	"South Africa",
	"Tanzania",
	"Tunisia",
	"Uganda",
	"Zambia",
	"Zimbabwe",
	"Regional (multi-country)",
}

var Timeframes = []string{
	"Immediately",
	"Within 3 months",
	"Within 6 months",
	"Just exploring",
}

var ReferralSources = []string{
	"Search engine",
	"Colleague or friend",
	"Conference or workshop",
	"Social media",
	"Publication",
	"Other",
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func ValidGender(v string) bool           { return contains(Genders, v) }
func ValidAgeCategory(v string) bool      { return contains(AgeCategories, v) }
func ValidOrganisationType(v string) bool { return contains(OrganisationTypes, v) }
func ValidInterest(v string) bool         { return contains(Interests, v) }
func ValidCountry(v string) bool          { return contains(Countries, v) }
func ValidTimeframe(v string) bool        { return contains(Timeframes, v) }
func ValidReferralSource(v string) bool   { return contains(ReferralSources, v) }

// Options is the payload served to the form so dropdown contents stay in one
// place on the server side.
func Options() map[string][]string {
	return map[string][]string{
		"genders":            Genders,
		"age_categories":     AgeCategories,
		"organisation_types": OrganisationTypes,
		"interests":          Interests,
		"countries":          Countries,
		"timeframes":         Timeframes,
		"referral_sources":   ReferralSources,
	}
}
