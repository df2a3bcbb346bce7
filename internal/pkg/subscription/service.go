package subscription

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/sublyhq/subly/app/models"
)

const (
	// MaxPerPage bounds history page sizes; out-of-range values are rejected,
	// not clamped, so clients notice instead of silently losing rows.
	MaxPerPage = 100

	daysPerBillingMonth = 30
)

// History is one page of a user's subscription ledger plus exact totals.
type History struct {
	Records []Record `json:"subscriptions"`
	Total   int64    `json:"total"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
	Pages   int64    `json:"pages"`
}

// Service enforces the subscription lifecycle rules against the ledger: at
// most one active subscription per user, close-then-open on upgrade, rows are
// closed but never deleted.
type Service struct {
	repo Repository
}

// NewService creates a lifecycle service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a lifecycle service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// Subscribe opens a new subscription for the user. durationMonths = 0 leaves
// the subscription open-ended; a positive value sets the end date that many
// 30-day months ahead.
//
// The check-then-insert below is advisory only: the serialization point is
// the unique active_user_id index, so two concurrent subscribers resolve at
// commit time with the loser seeing ErrAlreadySubscribed.
func (s *Service) Subscribe(ctx context.Context, userID, planID uint, durationMonths int) (*Record, error) {
	_ = ctx
	plan, err := s.repo.GetActivePlan(planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	now := time.Now()
	if active, err := s.repo.GetActive(userID, now); err != nil {
		return nil, err
	} else if active != nil {
		return nil, ErrAlreadySubscribed
	}

	// A passively expired row no longer qualifies but still pins the unique
	// key; release it before inserting.
	if err := s.repo.ReleaseExpired(userID, now); err != nil {
		return nil, err
	}

	sub := newLedgerRow(userID, planID, now, durationMonths)
	if err := s.repo.Insert(sub); err != nil {
		if IsDuplicateKey(err) {
			return nil, ErrAlreadySubscribed
		}
		return nil, err
	}

	return recordFor(sub, plan), nil
}

// Cancel closes the user's active subscription. Calling it again reports
// ErrNoActiveSubscription, never a double-cancel error, and a failed cancel
// mutates nothing.
func (s *Service) Cancel(ctx context.Context, userID uint) error {
	_ = ctx
	closed, err := s.repo.CloseActive(userID, time.Now())
	if err != nil {
		return err
	}
	if !closed {
		return ErrNoActiveSubscription
	}
	return nil
}

// Upgrade moves the user to a new plan by closing the current row and opening
// a new one inside a single transaction. The ledger never shows an in-place
// plan change; a crash mid-upgrade rolls back to the old plan.
func (s *Service) Upgrade(ctx context.Context, userID, newPlanID uint, durationMonths int) (*Record, error) {
	_ = ctx
	plan, err := s.repo.GetActivePlan(newPlanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	now := time.Now()
	active, err := s.repo.GetActive(userID, now)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, ErrNoActiveSubscription
	}
	if active.PlanID == newPlanID {
		return nil, ErrSamePlan
	}

	sub := newLedgerRow(userID, newPlanID, now, durationMonths)
	err = s.repo.Transaction(func(tx Repository) error {
		closed, err := tx.CloseActive(userID, now)
		if err != nil {
			return err
		}
		if !closed {
			// The row we saw above was closed by a concurrent writer.
			return ErrNoActiveSubscription
		}
		return tx.Insert(sub)
	})
	if err != nil {
		if IsDuplicateKey(err) {
			return nil, ErrAlreadySubscribed
		}
		return nil, err
	}

	return recordFor(sub, plan), nil
}

// GetActive returns the user's active subscription joined with plan data, or
// (nil, nil) when there is none. Absence is a result, not an error.
func (s *Service) GetActive(ctx context.Context, userID uint) (*Record, error) {
	_ = ctx
	return s.repo.GetActive(userID, time.Now())
}

// GetHistory returns one page of the user's ledger, newest first, plus the
// independent total count.
func (s *Service) GetHistory(ctx context.Context, userID uint, page, perPage int) (*History, error) {
	_ = ctx
	if page < 1 || perPage < 1 || perPage > MaxPerPage {
		return nil, ErrInvalidPagination
	}

	offset := (page - 1) * perPage
	records, err := s.repo.GetHistory(userID, perPage, offset)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.CountByUser(userID)
	if err != nil {
		return nil, err
	}

	return &History{
		Records: records,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   (total + int64(perPage) - 1) / int64(perPage),
	}, nil
}

func newLedgerRow(userID, planID uint, now time.Time, durationMonths int) *models.Subscription {
	activeUser := userID
	sub := &models.Subscription{
		UserID:       userID,
		PlanID:       planID,
		StartDate:    now,
		IsActive:     true,
		ActiveUserID: &activeUser,
	}
	if durationMonths > 0 {
		end := now.AddDate(0, 0, daysPerBillingMonth*durationMonths)
		sub.EndDate = &end
	}
	return sub
}

func recordFor(sub *models.Subscription, plan *models.Plan) *Record {
	return &Record{
		ID:        sub.ID,
		UUID:      sub.UUID,
		UserID:    sub.UserID,
		PlanID:    sub.PlanID,
		PlanName:  plan.Name,
		PlanPrice: plan.Price,
		StartDate: sub.StartDate,
		EndDate:   sub.EndDate,
		IsActive:  sub.IsActive,
		CreatedAt: sub.CreatedAt,
	}
}
