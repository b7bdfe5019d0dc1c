package store

import (
	"context"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"

	"github.com/dcm-project/policy-sdk/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

var (
	ErrPolicyNotFound   = errors.New("policy not found")
	ErrPolicyIDTaken    = errors.New("policy ID already taken")
	ErrPolicyNameTaken  = errors.New("name and policy_type combination already taken")
	ErrInvalidPageToken = errors.New("invalid page token")
)

// PolicyFilter contains optional fields for filtering policy queries.
// nil fields are ignored (not filtered).
type PolicyFilter struct {
	PolicyType *string
	Status     *string
}

// PolicyListOptions contains options for listing policies.
type PolicyListOptions struct {
	Filter    *PolicyFilter
	PageToken *string
	PageSize  int
}

// PolicyListResult contains the result of a List operation.
type PolicyListResult struct {
	Policies      model.PolicyList
	NextPageToken string
}

type Policy interface {
	List(ctx context.Context, opts *PolicyListOptions) (*PolicyListResult, error)
	Create(ctx context.Context, policy model.Policy) (*model.Policy, error)
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, policy model.Policy) (*model.Policy, error)
	Get(ctx context.Context, id string) (*model.Policy, error)
	SetStatus(ctx context.Context, id string, status string) error
	NextPriority(ctx context.Context, policyType string) (int, error)
}

type PolicyStore struct {
	db *gorm.DB
}

var _ Policy = (*PolicyStore)(nil)

func NewPolicy(db *gorm.DB) Policy {
	return &PolicyStore{db: db}
}

// pageBounds resolves the page size and the offset encoded in a page token.
func pageBounds(pageToken *string, pageSize int) (int, int, error) {
	size := DefaultPageSize
	if pageSize > 0 {
		size = min(pageSize, MaxPageSize)
	}

	offset := 0
	if pageToken != nil && *pageToken != "" {
		decoded, err := base64.RawURLEncoding.DecodeString(*pageToken)
		if err != nil {
			return 0, 0, ErrInvalidPageToken
		}
		parsed, err := strconv.Atoi(string(decoded))
		if err != nil || parsed < 0 {
			return 0, 0, ErrInvalidPageToken
		}
		offset = parsed
	}
	return size, offset, nil
}

func encodePageToken(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func (s *PolicyStore) List(ctx context.Context, opts *PolicyListOptions) (*PolicyListResult, error) {
	var (
		policies  model.PolicyList
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

	query := s.db.WithContext(ctx)
	if opts != nil && opts.Filter != nil {
		if opts.Filter.PolicyType != nil {
			query = query.Where("policy_type = ?", *opts.Filter.PolicyType)
		}
		if opts.Filter.Status != nil {
			query = query.Where("status = ?", *opts.Filter.Status)
		}
	}

	// Query with limit+1 to detect if there are more results
	query = query.Order("priority ASC, create_time ASC, id ASC").Limit(size + 1).Offset(offset)
	if err := query.Find(&policies).Error; err != nil {
		return nil, err
	}

	result := &PolicyListResult{
		Policies: policies,
	}
	if len(policies) > size {
		result.Policies = policies[:size]
		result.NextPageToken = encodePageToken(offset + size)
	}

	return result, nil
}

// isUniqueViolation recognises both translated and raw driver errors.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

// mapUniqueConstraintError maps a DB unique constraint violation to a store sentinel error
// by querying the DB to see which constraint would be violated (ID or name+policy_type).
func (s *PolicyStore) mapUniqueConstraintError(ctx context.Context, err error, attempted model.Policy, isUpdate bool) error {
	if err == nil || !isUniqueViolation(err) {
		return err
	}

	checks := []struct {
		sentinel error
		query    *gorm.DB
	}{
		{ErrPolicyIDTaken, s.db.WithContext(ctx).Where("id = ?", attempted.ID).Limit(1)},
		{ErrPolicyNameTaken, s.db.WithContext(ctx).Where("name = ? AND policy_type = ?", attempted.Name, attempted.PolicyType).Limit(1)},
	}

	for _, c := range checks {
		query := c.query
		if isUpdate {
			query = query.Where("id != ?", attempted.ID)
		}
		var row model.Policy
		dberr := query.First(&row).Error
		if dberr == nil {
			return c.sentinel
		}
		if !errors.Is(dberr, gorm.ErrRecordNotFound) {
			return err
		}
	}

	return err
}

func (s *PolicyStore) Create(ctx context.Context, policy model.Policy) (*model.Policy, error) {
	if err := s.db.WithContext(ctx).Clauses(clause.Returning{}).Select("*").Create(&policy).Error; err != nil {
		return nil, s.mapUniqueConstraintError(ctx, err, policy, false)
	}
	return &policy, nil
}

// Delete removes the policy together with every rule it owns.
func (s *PolicyStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("policy_id = ?", id).Delete(&model.PolicyRule{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Policy{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPolicyNotFound
		}
		return nil
	})
}

func (s *PolicyStore) Update(ctx context.Context, policy model.Policy) (*model.Policy, error) {
	// Use Select to update all mutable fields including zero values
	// Immutable fields (id, policy_type, system, create_time) and status are not updated
	result := s.db.WithContext(ctx).Model(&policy).
		Select("name", "description", "priority", "conditions", "settings").
		Clauses(clause.Returning{}).
		Updates(&policy)
	if result.Error != nil {
		return nil, s.mapUniqueConstraintError(ctx, result.Error, policy, true)
	}
	if result.RowsAffected == 0 {
		return nil, ErrPolicyNotFound
	}
	return &policy, nil
}

func (s *PolicyStore) Get(ctx context.Context, id string) (*model.Policy, error) {
	var policy model.Policy
	if err := s.db.WithContext(ctx).First(&policy, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPolicyNotFound
		}
		return nil, err
	}
	return &policy, nil
}

func (s *PolicyStore) SetStatus(ctx context.Context, id string, status string) error {
	result := s.db.WithContext(ctx).Model(&model.Policy{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPolicyNotFound
	}
	return nil
}

// NextPriority returns the priority that places a new policy last within its type.
func (s *PolicyStore) NextPriority(ctx context.Context, policyType string) (int, error) {
	var highest int
	row := s.db.WithContext(ctx).Model(&model.Policy{}).
		Where("policy_type = ?", policyType).
		Select("COALESCE(MAX(priority), 0)").
		Row()
	if err := row.Scan(&highest); err != nil {
		return 0, err
	}
	return highest + 1, nil
}
