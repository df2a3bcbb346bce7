package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sublyhq/subly/app/models"
	"github.com/sublyhq/subly/internal/pkg/subscription"
	"github.com/sublyhq/subly/internal/pkg/usercontext"
)

// stubRepo keeps at most one open row per user, enough to drive the handlers.
type stubRepo struct {
	plans  map[uint]*models.Plan
	active map[uint]*models.Subscription
	closed []models.Subscription
	nextID uint
}

func newStubRepo(plans ...*models.Plan) *stubRepo {
	r := &stubRepo{plans: map[uint]*models.Plan{}, active: map[uint]*models.Subscription{}}
	for _, p := range plans {
		r.plans[p.ID] = p
	}
	return r
}

func (r *stubRepo) GetActivePlan(planID uint) (*models.Plan, error) {
	p, ok := r.plans[planID]
	if !ok || !p.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubRepo) GetActive(userID uint, now time.Time) (*subscription.Record, error) {
	s, ok := r.active[userID]
	if !ok {
		return nil, nil
	}
	p := r.plans[s.PlanID]
	return &subscription.Record{
		ID: s.ID, UserID: s.UserID, PlanID: s.PlanID,
		PlanName: p.Name, PlanPrice: p.Price,
		StartDate: s.StartDate, IsActive: true, CreatedAt: s.CreatedAt,
	}, nil
}

func (r *stubRepo) GetHistory(userID uint, limit, offset int) ([]subscription.Record, error) {
	var out []subscription.Record
	if s, ok := r.active[userID]; ok {
		p := r.plans[s.PlanID]
		out = append(out, subscription.Record{ID: s.ID, UserID: s.UserID, PlanID: s.PlanID, PlanName: p.Name, PlanPrice: p.Price, IsActive: true})
	}
	for _, s := range r.closed {
		if s.UserID == userID {
			p := r.plans[s.PlanID]
			out = append(out, subscription.Record{ID: s.ID, UserID: s.UserID, PlanID: s.PlanID, PlanName: p.Name, PlanPrice: p.Price})
		}
	}
	return out, nil
}

func (r *stubRepo) CountByUser(userID uint) (int64, error) {
	recs, _ := r.GetHistory(userID, 100, 0)
	return int64(len(recs)), nil
}

func (r *stubRepo) Insert(sub *models.Subscription) error {
	if _, ok := r.active[sub.UserID]; ok {
		return gorm.ErrDuplicatedKey
	}
	r.nextID++
	sub.ID = r.nextID
	cp := *sub
	r.active[sub.UserID] = &cp
	return nil
}

func (r *stubRepo) CloseActive(userID uint, now time.Time) (bool, error) {
	s, ok := r.active[userID]
	if !ok {
		return false, nil
	}
	s.IsActive = false
	s.EndDate = &now
	s.ActiveUserID = nil
	r.closed = append(r.closed, *s)
	delete(r.active, userID)
	return true, nil
}

func (r *stubRepo) ReleaseExpired(userID uint, now time.Time) error {
	return nil
}

func (r *stubRepo) Transaction(fn func(subscription.Repository) error) error {
	return fn(r)
}

func newTestApp(repo subscription.Repository, userID uint) *fiber.App {
	InitializeSubscriptionController(subscription.NewService(repo))

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		usercontext.SetUserContext(c, usercontext.UserContext{UserID: userID, IsLoggedIn: true})
		return c.Next()
	})
	app.Post("/api/subscriptions/subscribe", HandleSubscribe)
	app.Get("/api/subscriptions/active", HandleGetActiveSubscription)
	app.Get("/api/subscriptions/history", HandleGetSubscriptionHistory)
	app.Post("/api/subscriptions/cancel", HandleCancelSubscription)
	app.Post("/api/subscriptions/upgrade", HandleUpgradeSubscription)
	return app
}

func jsonReq(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func TestSubscribeEndpoint(t *testing.T) {
	repo := newStubRepo(&models.Plan{ID: 1, Name: "Startup", Price: 10, IsActive: true})
	app := newTestApp(repo, 7)

	resp, err := app.Test(jsonReq(http.MethodPost, "/api/subscriptions/subscribe", `{"plan_id":1}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Second subscribe conflicts.
	resp, err = app.Test(jsonReq(http.MethodPost, "/api/subscriptions/subscribe", `{"plan_id":1}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unknown plan is a 404.
	resp, err = app.Test(jsonReq(http.MethodPost, "/api/subscriptions/subscribe", `{"plan_id":99}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Missing plan_id is a 400.
	resp, err = app.Test(jsonReq(http.MethodPost, "/api/subscriptions/subscribe", `{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestActiveEndpoint(t *testing.T) {
	repo := newStubRepo(&models.Plan{ID: 1, Name: "Startup", Price: 10, IsActive: true})
	app := newTestApp(repo, 7)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/subscriptions/active", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, err = app.Test(jsonReq(http.MethodPost, "/api/subscriptions/subscribe", `{"plan_id":1}`))
	require.NoError(t, err)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/subscriptions/active", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var rec subscription.Record
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, "Startup", rec.PlanName)
	assert.EqualValues(t, 10, rec.PlanPrice)
}

func TestCancelEndpoint(t *testing.T) {
	repo := newStubRepo(&models.Plan{ID: 1, Name: "Startup", Price: 10, IsActive: true})
	app := newTestApp(repo, 7)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/subscriptions/cancel", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, err = app.Test(jsonReq(http.MethodPost, "/api/subscriptions/subscribe", `{"plan_id":1}`))
	require.NoError(t, err)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/subscriptions/cancel", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpgradeEndpoint(t *testing.T) {
	repo := newStubRepo(
		&models.Plan{ID: 1, Name: "Startup", Price: 10, IsActive: true},
		&models.Plan{ID: 2, Name: "Pro", Price: 20, IsActive: true},
	)
	app := newTestApp(repo, 7)

	// Upgrade without a subscription.
	resp, err := app.Test(jsonReq(http.MethodPost, "/api/subscriptions/upgrade", `{"plan_id":2}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, err = app.Test(jsonReq(http.MethodPost, "/api/subscriptions/subscribe", `{"plan_id":1}`))
	require.NoError(t, err)

	// Same plan conflicts.
	resp, err = app.Test(jsonReq(http.MethodPost, "/api/subscriptions/upgrade", `{"plan_id":1}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = app.Test(jsonReq(http.MethodPost, "/api/subscriptions/upgrade", `{"plan_id":2}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHistoryEndpointPagination(t *testing.T) {
	repo := newStubRepo(&models.Plan{ID: 1, Name: "Startup", Price: 10, IsActive: true})
	app := newTestApp(repo, 7)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/subscriptions/history?page=0", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/subscriptions/history?per_page=1000", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/subscriptions/history", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
