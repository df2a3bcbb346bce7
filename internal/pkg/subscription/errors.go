package subscription

import "errors"

// Stable error kinds surfaced by the lifecycle service. Controllers translate
// these into HTTP responses; storage-level constraint violations never leak
// past this package.
var (
	ErrPlanNotFound         = errors.New("subscription: plan not found")
	ErrAlreadySubscribed    = errors.New("subscription: user already has an active subscription")
	ErrNoActiveSubscription = errors.New("subscription: no active subscription")
	ErrSamePlan             = errors.New("subscription: already subscribed to this plan")
	ErrInvalidPagination    = errors.New("subscription: invalid pagination parameters")
)
