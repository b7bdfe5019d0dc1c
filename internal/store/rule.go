package store

import (
	"context"
	"errors"

	"github.com/dcm-project/policy-sdk/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRuleNotFound  = errors.New("policy rule not found")
	ErrRuleNameTaken = errors.New("rule name already taken within policy")
)

// RuleListOptions contains options for listing the rules of one policy.
type RuleListOptions struct {
	PageToken *string
	PageSize  int
}

// RuleListResult contains the result of a List operation.
type RuleListResult struct {
	Rules         model.PolicyRuleList
	NextPageToken string
}

// Rule stores rules scoped by their owning policy. Every lookup takes the
// policy id, so a rule is never reachable through a different parent.
type Rule interface {
	List(ctx context.Context, policyID string, opts *RuleListOptions) (*RuleListResult, error)
	Create(ctx context.Context, rule model.PolicyRule) (*model.PolicyRule, error)
	Delete(ctx context.Context, policyID, ruleID string) error
	Update(ctx context.Context, rule model.PolicyRule) (*model.PolicyRule, error)
	Get(ctx context.Context, policyID, ruleID string) (*model.PolicyRule, error)
	SetStatus(ctx context.Context, policyID, ruleID string, status string) error
	NextPriority(ctx context.Context, policyID string) (int, error)
}

type RuleStore struct {
	db *gorm.DB
}

var _ Rule = (*RuleStore)(nil)

func NewRule(db *gorm.DB) Rule {
	return &RuleStore{db: db}
}

func (s *RuleStore) List(ctx context.Context, policyID string, opts *RuleListOptions) (*RuleListResult, error) {
	var (
		rules     model.PolicyRuleList
		pageToken *string
		pageSize  int
	)
	if opts != nil {
		pageToken = opts.PageToken
		pageSize = opts.PageSize
	}
	size, offset, err := pageBounds(pageToken, pageSize)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Order("priority ASC, create_time ASC, id ASC").
		Limit(size + 1).
		Offset(offset).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}

	result := &RuleListResult{Rules: rules}
	if len(rules) > size {
		result.Rules = rules[:size]
		result.NextPageToken = encodePageToken(offset + size)
	}
	return result, nil
}

func (s *RuleStore) Create(ctx context.Context, rule model.PolicyRule) (*model.PolicyRule, error) {
	if err := s.db.WithContext(ctx).Clauses(clause.Returning{}).Select("*").Create(&rule).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrRuleNameTaken
		}
		return nil, err
	}
	return &rule, nil
}

func (s *RuleStore) Delete(ctx context.Context, policyID, ruleID string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND policy_id = ?", ruleID, policyID).Delete(&model.PolicyRule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (s *RuleStore) Update(ctx context.Context, rule model.PolicyRule) (*model.PolicyRule, error) {
	// Immutable fields (id, policy_id, rule_type, system, create_time) and status are not updated
	result := s.db.WithContext(ctx).Model(&rule).
		Where("policy_id = ?", rule.PolicyID).
		Select("name", "priority", "conditions", "actions").
		Clauses(clause.Returning{}).
		Updates(&rule)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return nil, ErrRuleNameTaken
		}
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrRuleNotFound
	}
	return &rule, nil
}

func (s *RuleStore) Get(ctx context.Context, policyID, ruleID string) (*model.PolicyRule, error) {
	var rule model.PolicyRule
	if err := s.db.WithContext(ctx).First(&rule, "id = ? AND policy_id = ?", ruleID, policyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	return &rule, nil
}

func (s *RuleStore) SetStatus(ctx context.Context, policyID, ruleID string, status string) error {
	result := s.db.WithContext(ctx).Model(&model.PolicyRule{}).
		Where("id = ? AND policy_id = ?", ruleID, policyID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// NextPriority returns the priority that places a new rule last within its policy.
func (s *RuleStore) NextPriority(ctx context.Context, policyID string) (int, error) {
	var highest int
	row := s.db.WithContext(ctx).Model(&model.PolicyRule{}).
		Where("policy_id = ?", policyID).
		Select("COALESCE(MAX(priority), 0)").
		Row()
	if err := row.Scan(&highest); err != nil {
		return 0, err
	}
	return highest + 1, nil
}
