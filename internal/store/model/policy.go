package model

import (
	"time"
)

// Policy is the persisted form of a policy. Conditions and Settings hold the
// type-specific JSON payloads verbatim.
type Policy struct {
	ID          string    `gorm:"primaryKey;type:varchar(32)"`
	Name        string    `gorm:"column:name;not null;uniqueIndex:idx_policy_type_name"`
	Description string    `gorm:"column:description"`
	PolicyType  string    `gorm:"column:policy_type;not null;uniqueIndex:idx_policy_type_name"`
	Status      string    `gorm:"column:status;not null"`
	Priority    int       `gorm:"column:priority;not null"`
	System      bool      `gorm:"column:system;not null"`
	Conditions  string    `gorm:"column:conditions;type:text"`
	Settings    string    `gorm:"column:settings;type:text"`
	CreateTime  time.Time `gorm:"column:create_time;autoCreateTime"`
	UpdateTime  time.Time `gorm:"column:update_time;autoUpdateTime"`
}

type PolicyList []Policy

// PolicyRule is the persisted form of a rule, owned by exactly one policy.
type PolicyRule struct {
	ID         string    `gorm:"primaryKey;type:varchar(32)"`
	PolicyID   string    `gorm:"column:policy_id;not null;uniqueIndex:idx_rule_policy_name"`
	Name       string    `gorm:"column:name;not null;uniqueIndex:idx_rule_policy_name"`
	RuleType   string    `gorm:"column:rule_type;not null"`
	Status     string    `gorm:"column:status;not null"`
	Priority   int       `gorm:"column:priority;not null"`
	System     bool      `gorm:"column:system;not null"`
	Conditions string    `gorm:"column:conditions;type:text"`
	Actions    string    `gorm:"column:actions;type:text"`
	CreateTime time.Time `gorm:"column:create_time;autoCreateTime"`
	UpdateTime time.Time `gorm:"column:update_time;autoUpdateTime"`
}

type PolicyRuleList []PolicyRule
