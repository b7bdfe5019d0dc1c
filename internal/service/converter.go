package service

import (
	"encoding/json"
	"fmt"

	v1 "github.com/dcm-project/policy-sdk/api/v1"
	"github.com/dcm-project/policy-sdk/internal/store/model"
)

// encodePayload renders an optional nested object; nil becomes the empty string.
func encodePayload[T any](v *T) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodePayload[T any](raw string, dst **T) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

// APIToDBModel converts an API policy variant to the database model.
// Status, system and timestamps are owned by the service and left for the caller.
func APIToDBModel(api v1.Policy, id string) (model.Policy, error) {
	base := api.Base()
	db := model.Policy{
		ID:          id,
		Name:        base.Name,
		Description: base.Description,
		PolicyType:  string(api.PolicyType()),
		Priority:    base.Priority,
	}

	var err error
	switch p := api.(type) {
	case *v1.OktaSignOnPolicy:
		db.Conditions, err = encodePayload(p.Conditions)
	case *v1.PasswordPolicy:
		if db.Conditions, err = encodePayload(p.Conditions); err == nil {
			db.Settings, err = encodePayload(p.Settings)
		}
	case *v1.MFAEnrollPolicy:
		if db.Conditions, err = encodePayload(p.Conditions); err == nil {
			db.Settings, err = encodePayload(p.Settings)
		}
	case *v1.IDPDiscoveryPolicy:
		db.Conditions, err = encodePayload(p.Conditions)
	default:
		err = fmt.Errorf("%w: %T", v1.ErrUnknownPolicyType, api)
	}
	return db, err
}

// DBToAPIModel converts a database policy to its API variant.
func DBToAPIModel(db *model.Policy) (v1.Policy, error) {
	api, err := v1.NewPolicy(v1.PolicyType(db.PolicyType))
	if err != nil {
		return nil, err
	}
	created := db.CreateTime.UTC()
	updated := db.UpdateTime.UTC()
	*api.Base() = v1.PolicyBase{
		ID:          db.ID,
		Name:        db.Name,
		Type:        v1.PolicyType(db.PolicyType),
		Status:      v1.Status(db.Status),
		Description: db.Description,
		Priority:    db.Priority,
		System:      db.System,
		Created:     &created,
		LastUpdated: &updated,
	}

	switch p := api.(type) {
	case *v1.OktaSignOnPolicy:
		err = decodePayload(db.Conditions, &p.Conditions)
	case *v1.PasswordPolicy:
		if err = decodePayload(db.Conditions, &p.Conditions); err == nil {
			err = decodePayload(db.Settings, &p.Settings)
		}
	case *v1.MFAEnrollPolicy:
		if err = decodePayload(db.Conditions, &p.Conditions); err == nil {
			err = decodePayload(db.Settings, &p.Settings)
		}
	case *v1.IDPDiscoveryPolicy:
		err = decodePayload(db.Conditions, &p.Conditions)
	}
	if err != nil {
		return nil, fmt.Errorf("decode stored policy %s: %w", db.ID, err)
	}
	return api, nil
}

// APIToDBRule converts an API rule variant to the database model.
func APIToDBRule(api v1.PolicyRule, policyID, id string) (model.PolicyRule, error) {
	base := api.RuleBase()
	db := model.PolicyRule{
		ID:       id,
		PolicyID: policyID,
		Name:     base.Name,
		RuleType: string(api.RuleType()),
		Priority: base.Priority,
	}

	var err error
	switch r := api.(type) {
	case *v1.OktaSignOnPolicyRule:
		if db.Conditions, err = encodePayload(r.Conditions); err == nil {
			db.Actions, err = encodePayload(r.Actions)
		}
	case *v1.PasswordPolicyRule:
		if db.Conditions, err = encodePayload(r.Conditions); err == nil {
			db.Actions, err = encodePayload(r.Actions)
		}
	case *v1.MFAEnrollPolicyRule:
		if db.Conditions, err = encodePayload(r.Conditions); err == nil {
			db.Actions, err = encodePayload(r.Actions)
		}
	case *v1.IDPDiscoveryPolicyRule:
		if db.Conditions, err = encodePayload(r.Conditions); err == nil {
			db.Actions, err = encodePayload(r.Actions)
		}
	default:
		err = fmt.Errorf("%w: %T", v1.ErrUnknownRuleType, api)
	}
	return db, err
}

// DBToAPIRule converts a database rule to its API variant.
func DBToAPIRule(db *model.PolicyRule) (v1.PolicyRule, error) {
	api, err := v1.NewPolicyRule(v1.PolicyRuleType(db.RuleType))
	if err != nil {
		return nil, err
	}
	created := db.CreateTime.UTC()
	updated := db.UpdateTime.UTC()
	*api.RuleBase() = v1.PolicyRuleBase{
		ID:          db.ID,
		Name:        db.Name,
		Type:        v1.PolicyRuleType(db.RuleType),
		Status:      v1.Status(db.Status),
		Priority:    db.Priority,
		System:      db.System,
		Created:     &created,
		LastUpdated: &updated,
	}

	switch r := api.(type) {
	case *v1.OktaSignOnPolicyRule:
		if err = decodePayload(db.Conditions, &r.Conditions); err == nil {
			err = decodePayload(db.Actions, &r.Actions)
		}
	case *v1.PasswordPolicyRule:
		if err = decodePayload(db.Conditions, &r.Conditions); err == nil {
			err = decodePayload(db.Actions, &r.Actions)
		}
	case *v1.MFAEnrollPolicyRule:
		if err = decodePayload(db.Conditions, &r.Conditions); err == nil {
			err = decodePayload(db.Actions, &r.Actions)
		}
	case *v1.IDPDiscoveryPolicyRule:
		if err = decodePayload(db.Conditions, &r.Conditions); err == nil {
			err = decodePayload(db.Actions, &r.Actions)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("decode stored rule %s: %w", db.ID, err)
	}
	return api, nil
}
