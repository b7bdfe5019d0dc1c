package v1

// UserCondition includes or excludes users by id.
type UserCondition struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// GroupCondition includes or excludes groups by id.
type GroupCondition struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// PeopleCondition restricts a policy or rule to users and groups.
type PeopleCondition struct {
	Users  *UserCondition  `json:"users,omitempty"`
	Groups *GroupCondition `json:"groups,omitempty"`
}

// NetworkCondition restricts a rule to network zones.
type NetworkCondition struct {
	Connection NetworkConnection `json:"connection,omitempty"`
	Include    []string          `json:"include,omitempty"`
	Exclude    []string          `json:"exclude,omitempty"`
}

// AuthContextCondition restricts a sign-on rule to an authentication type.
type AuthContextCondition struct {
	AuthType AuthType `json:"authType,omitempty"`
}

// AuthProviderCondition scopes a password policy to a credential provider.
type AuthProviderCondition struct {
	Provider string   `json:"provider,omitempty"`
	Include  []string `json:"include,omitempty"`
}

// Policy conditions.

type OktaSignOnPolicyConditions struct {
	People *PeopleCondition `json:"people,omitempty"`
}

type PasswordPolicyConditions struct {
	People       *PeopleCondition       `json:"people,omitempty"`
	AuthProvider *AuthProviderCondition `json:"authProvider,omitempty"`
}

type MFAEnrollPolicyConditions struct {
	People *PeopleCondition `json:"people,omitempty"`
}

type IDPDiscoveryPolicyConditions struct {
	People *PeopleCondition `json:"people,omitempty"`
}

// Policy settings.

type PasswordComplexity struct {
	MinLength    *int `json:"minLength,omitempty"`
	MinLowerCase *int `json:"minLowerCase,omitempty"`
	MinUpperCase *int `json:"minUpperCase,omitempty"`
	MinNumber    *int `json:"minNumber,omitempty"`
	MinSymbol    *int `json:"minSymbol,omitempty"`
}

type PasswordAge struct {
	MaxAgeDays     *int `json:"maxAgeDays,omitempty"`
	ExpireWarnDays *int `json:"expireWarnDays,omitempty"`
	MinAgeMinutes  *int `json:"minAgeMinutes,omitempty"`
	HistoryCount   *int `json:"historyCount,omitempty"`
}

type PasswordLockout struct {
	MaxAttempts       *int `json:"maxAttempts,omitempty"`
	AutoUnlockMinutes *int `json:"autoUnlockMinutes,omitempty"`
}

type PasswordSettings struct {
	Complexity *PasswordComplexity `json:"complexity,omitempty"`
	Age        *PasswordAge        `json:"age,omitempty"`
	Lockout    *PasswordLockout    `json:"lockout,omitempty"`
}

type PasswordPolicySettings struct {
	Password *PasswordSettings `json:"password,omitempty"`
}

// FactorEnrollment is REQUIRED, OPTIONAL or NOT_ALLOWED.
type FactorEnrollment struct {
	Self string `json:"self,omitempty"`
}

type MFAFactorSetting struct {
	Enroll *FactorEnrollment `json:"enroll,omitempty"`
}

type MFAEnrollPolicySettings struct {
	Factors map[string]*MFAFactorSetting `json:"factors,omitempty"`
}

// Rule conditions.

type OktaSignOnPolicyRuleConditions struct {
	People      *PeopleCondition      `json:"people,omitempty"`
	Network     *NetworkCondition     `json:"network,omitempty"`
	AuthContext *AuthContextCondition `json:"authContext,omitempty"`
}

type PasswordPolicyRuleConditions struct {
	People  *PeopleCondition  `json:"people,omitempty"`
	Network *NetworkCondition `json:"network,omitempty"`
}

type MFAEnrollPolicyRuleConditions struct {
	People  *PeopleCondition  `json:"people,omitempty"`
	Network *NetworkCondition `json:"network,omitempty"`
}

type IDPDiscoveryPolicyRuleConditions struct {
	Network *NetworkCondition `json:"network,omitempty"`
}

// Rule actions.

// SignonSessionAction bounds the session a sign-on rule establishes.
// MaxSessionLifetimeMinutes of zero means no lifetime limit.
type SignonSessionAction struct {
	UsePersistentCookie       *bool `json:"usePersistentCookie,omitempty"`
	MaxSessionIdleMinutes     *int  `json:"maxSessionIdleMinutes,omitempty"`
	MaxSessionLifetimeMinutes *int  `json:"maxSessionLifetimeMinutes,omitempty"`
}

type SignonAction struct {
	Access                  Access               `json:"access,omitempty"`
	RequireFactor           *bool                `json:"requireFactor,omitempty"`
	FactorPromptMode        FactorPromptMode     `json:"factorPromptMode,omitempty"`
	FactorLifetime          *int                 `json:"factorLifetime,omitempty"`
	RememberDeviceByDefault *bool                `json:"rememberDeviceByDefault,omitempty"`
	Session                 *SignonSessionAction `json:"session,omitempty"`
}

type OktaSignOnPolicyRuleActions struct {
	Signon *SignonAction `json:"signon,omitempty"`
}

type PasswordPolicyRuleAction struct {
	Access Access `json:"access,omitempty"`
}

type PasswordPolicyRuleActions struct {
	PasswordChange           *PasswordPolicyRuleAction `json:"passwordChange,omitempty"`
	SelfServicePasswordReset *PasswordPolicyRuleAction `json:"selfServicePasswordReset,omitempty"`
	SelfServiceUnlock        *PasswordPolicyRuleAction `json:"selfServiceUnlock,omitempty"`
}

// EnrollAction.Self is CHALLENGE, LOGIN or NEVER.
type EnrollAction struct {
	Self string `json:"self,omitempty"`
}

type MFAEnrollPolicyRuleActions struct {
	Enroll *EnrollAction `json:"enroll,omitempty"`
}

type IDPProvider struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

type IDPAction struct {
	Providers []IDPProvider `json:"providers,omitempty"`
}

type IDPDiscoveryPolicyRuleActions struct {
	IDP *IDPAction `json:"idp,omitempty"`
}
