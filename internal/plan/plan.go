// Package plan defines the pricing catalogue for the Chatdeck platform.
package plan

import "errors"

// ErrUnknownPlan is returned for plan keys not in the catalogue.
var ErrUnknownPlan = errors.New("plan: unknown plan key")

// Key identifies the pricing tier.
type Key string

const (
	Free       Key = "free"
	Basic      Key = "basic"
	Pro        Key = "pro"
	Enterprise Key = "enterprise"
)

// Features describes what a plan includes.
type Features struct {
	Chatbots        int  `json:"chatbots"`
	TokensPerMonth  int  `json:"tokensPerMonth"`
	Scheduling      bool `json:"scheduling"`
	IntakeForms     bool `json:"intakeForms"`
	CaseStudyMode   bool `json:"caseStudyMode"`
	Analytics       bool `json:"analytics"`
	SSO             bool `json:"sso"`
	PrioritySupport bool `json:"prioritySupport"`
}

// Limits are the hard caps enforced per plan.
type Limits struct {
	MaxChatbots          int `json:"maxChatbots"`
	MaxTokensPerMonth    int `json:"maxTokensPerMonth"`
	MaxTeamMembers       int `json:"maxTeamMembers"`
	MaxAPICallsPerMinute int `json:"maxApiCallsPerMinute"`
}

// LimitName selects a limit for WithinLimit checks.
type LimitName string

const (
	LimitChatbots          LimitName = "maxChatbots"
	LimitTokensPerMonth    LimitName = "maxTokensPerMonth"
	LimitTeamMembers       LimitName = "maxTeamMembers"
	LimitAPICallsPerMinute LimitName = "maxApiCallsPerMinute"
)

// Plan is one catalogue entry.
type Plan struct {
	Key          Key      `json:"key"`
	Label        string   `json:"label"`
	PriceMonthly int      `json:"priceMonthly"` // USD
	PriceYearly  int      `json:"priceYearly"`  // USD
	Features     Features `json:"features"`
	Limits       Limits   `json:"limits"`
}

// Catalog is the hardcoded plan catalogue.
var Catalog = map[Key]Plan{
	Free: {
		Key:          Free,
		Label:        "Free",
		PriceMonthly: 0,
		PriceYearly:  0,
		Features: Features{
			Chatbots:       1,
			TokensPerMonth: 1000,
		},
		Limits: Limits{
			MaxChatbots:          1,
			MaxTokensPerMonth:    1000,
			MaxTeamMembers:       1,
			MaxAPICallsPerMinute: 10,
		},
	},
	Basic: {
		Key:          Basic,
		Label:        "Basic",
		PriceMonthly: 29,
		PriceYearly:  290,
		Features: Features{
			Chatbots:       1,
			TokensPerMonth: 5000,
			Scheduling:     true,
		},
		Limits: Limits{
			MaxChatbots:          1,
			MaxTokensPerMonth:    5000,
			MaxTeamMembers:       3,
			MaxAPICallsPerMinute: 50,
		},
	},
	Pro: {
		Key:          Pro,
		Label:        "Pro",
		PriceMonthly: 99,
		PriceYearly:  990,
		Features: Features{
			Chatbots:       3,
			TokensPerMonth: 100000,
			Scheduling:     true,
			IntakeForms:    true,
			CaseStudyMode:  true,
			Analytics:      true,
		},
		Limits: Limits{
			MaxChatbots:          3,
			MaxTokensPerMonth:    100000,
			MaxTeamMembers:       10,
			MaxAPICallsPerMinute: 200,
		},
	},
	Enterprise: {
		Key:          Enterprise,
		Label:        "Enterprise",
		PriceMonthly: 299,
		PriceYearly:  2990,
		Features: Features{
			Chatbots:        10,
			TokensPerMonth:  1000000,
			Scheduling:      true,
			IntakeForms:     true,
			CaseStudyMode:   true,
			Analytics:       true,
			SSO:             true,
			PrioritySupport: true,
		},
		Limits: Limits{
			MaxChatbots:          10,
			MaxTokensPerMonth:    1000000,
			MaxTeamMembers:       50,
			MaxAPICallsPerMinute: 1000,
		},
	},
}

// Valid returns true if the plan key is recognised.
func Valid(k Key) bool {
	_, ok := Catalog[k]
	return ok
}

// Get returns the catalogue entry for a key.
func Get(k Key) (Plan, error) {
	p, ok := Catalog[k]
	if !ok {
		return Plan{}, ErrUnknownPlan
	}
	return p, nil
}

// GetFeatures returns the feature set for a key.
func GetFeatures(k Key) (Features, error) {
	p, err := Get(k)
	if err != nil {
		return Features{}, err
	}
	return p.Features, nil
}

// GetLimits returns the limits for a key.
func GetLimits(k Key) (Limits, error) {
	p, err := Get(k)
	if err != nil {
		return Limits{}, err
	}
	return p.Limits, nil
}

// FeatureEnabled reports whether a named boolean feature is on for a plan.
func FeatureEnabled(k Key, feature string) (bool, error) {
	f, err := GetFeatures(k)
	if err != nil {
		return false, err
	}
	switch feature {
	case "chatbots":
		return f.Chatbots > 0, nil
	case "tokensPerMonth":
		return f.TokensPerMonth > 0, nil
	case "scheduling":
		return f.Scheduling, nil
	case "intakeForms":
		return f.IntakeForms, nil
	case "caseStudyMode":
		return f.CaseStudyMode, nil
	case "analytics":
		return f.Analytics, nil
	case "sso":
		return f.SSO, nil
	case "prioritySupport":
		return f.PrioritySupport, nil
	}
	return false, nil
}

// WithinLimit reports whether current usage is strictly below the named limit.
// The boundary is exclusive: current == limit is over.
func WithinLimit(k Key, current int, limit LimitName) (bool, error) {
	l, err := GetLimits(k)
	if err != nil {
		return false, err
	}
	var max int
	switch limit {
	case LimitChatbots:
		max = l.MaxChatbots
	case LimitTokensPerMonth:
		max = l.MaxTokensPerMonth
	case LimitTeamMembers:
		max = l.MaxTeamMembers
	case LimitAPICallsPerMinute:
		max = l.MaxAPICallsPerMinute
	default:
		return false, nil
	}
	return current < max, nil
}

// FlagSet returns the boolean feature flags mirrored into feature_flags rows
// at signup, keyed by wire name.
func FlagSet(k Key) (map[string]bool, error) {
	f, err := GetFeatures(k)
	if err != nil {
		return nil, err
	}
	return map[string]bool{
		"scheduling":       f.Scheduling,
		"intake_forms":     f.IntakeForms,
		"case_study_mode":  f.CaseStudyMode,
		"analytics":        f.Analytics,
		"sso":              f.SSO,
		"priority_support": f.PrioritySupport,
	}, nil
}

// Keys returns the catalogue keys in ascending price order.
func Keys() []Key {
	return []Key{Free, Basic, Pro, Enterprise}
}
