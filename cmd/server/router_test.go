package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			LogLevel:        "error",
			ShutdownTimeout: time.Second,
			RateLimit: config.RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 600,
				Burst:             50,
				CacheSize:         100,
				TTL:               time.Minute,
			},
		},
		Database: config.DatabaseConfig{Driver: driverMemory, Name: "taskflow"},
		Auth: config.AuthConfig{
			JWTSecret:                   "router-test-secret-that-is-32-chars-long",
			TokenLifetimeMinutes:        60,
			RefreshTokenLifetimeMinutes: 120,
			BcryptCost:                  bcrypt.MinCost,
		},
		Reminders: config.ReminderConfig{
			Enabled:     false,
			Interval:    time.Hour,
			LeadTime:    24 * time.Hour,
			WorkerCount: 1,
			QueueSize:   10,
		},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *application {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := newApplication(cfg, logger, newMemoryStores())
	require.NoError(t, err)
	return app
}

type testClient struct {
	t       *testing.T
	handler http.Handler
}

func (c testClient) do(method, target, token string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	c.handler.ServeHTTP(recorder, req)
	return recorder
}

// register creates an account and returns its access token and id.
func (c testClient) register(email string) (string, uuid.UUID) {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "correct-horse-battery",
		"name":     email,
	})
	require.Equal(c.t, http.StatusCreated, resp.Code, resp.Body.String())

	var body struct {
		User        domain.User `json:"user"`
		AccessToken string      `json:"accessToken"`
	}
	require.NoError(c.t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.AccessToken, body.User.ID
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &v), resp.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	client := testClient{t: t, handler: newTestApp(t, testConfig()).setupRouter()}

	resp := client.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "OK", resp.Body.String())

	resp = client.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "go_goroutines")
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t, testConfig())
	client := testClient{t: t, handler: app.setupRouter()}

	aliceToken, aliceID := client.register("alice@example.com")
	bobToken, bobID := client.register("bob@example.com")

	resp := client.do(http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = client.do(http.MethodPost, "/api/tasks", aliceToken, map[string]any{
		"title":      "Write report",
		"priority":   "high",
		"assignedTo": bobID,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	task := decode[domain.Task](t, resp)
	assert.Equal(t, aliceID, task.CreatedBy)

	t.Run("assignee sees task and notification", func(t *testing.T) {
		resp := client.do(http.MethodGet, "/api/tasks", bobToken, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		list := decode[struct {
			Items      []domain.Task `json:"items"`
			Pagination struct {
				Total int64 `json:"total"`
			} `json:"pagination"`
		}](t, resp)
		require.Len(t, list.Items, 1)
		assert.Equal(t, task.ID, list.Items[0].ID)
		assert.Equal(t, int64(1), list.Pagination.Total)

		resp = client.do(http.MethodGet, "/api/notifications/unread-count", bobToken, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, `{"count":1}`, resp.Body.String())

		resp = client.do(http.MethodGet, "/api/notifications", bobToken, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		inbox := decode[struct {
			Items []map[string]any `json:"items"`
		}](t, resp)
		require.Len(t, inbox.Items, 1)
		assert.Equal(t, string(domain.NotificationTaskAssigned), inbox.Items[0]["type"])
		assert.Equal(t, task.ID.String(), inbox.Items[0]["relatedTaskId"])

		resp = client.do(http.MethodPut, "/api/notifications/read-all", bobToken, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, `{"updated":1}`, resp.Body.String())
	})

	t.Run("batch update needs a privileged role", func(t *testing.T) {
		body := map[string]any{
			"taskIds": []uuid.UUID{task.ID},
			"updates": map[string]any{"priority": "low"},
		}
		resp := client.do(http.MethodPost, "/api/tasks/batch-update", bobToken, body)
		assert.Equal(t, http.StatusForbidden, resp.Code)

		require.NoError(t, app.stores.users.UpdateRole(context.Background(), aliceID, domain.RoleManager))

		resp = client.do(http.MethodPost, "/api/tasks/batch-update", aliceToken, body)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		result := decode[struct {
			Matched int `json:"matched"`
			Updated int `json:"updated"`
		}](t, resp)
		assert.Equal(t, 1, result.Matched)
		assert.Equal(t, 1, result.Updated)
	})

	t.Run("user administration is admin only", func(t *testing.T) {
		resp := client.do(http.MethodGet, "/api/users", bobToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.Code)

		resp = client.do(http.MethodGet, "/api/users/me", bobToken, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "bob@example.com", decode[domain.User](t, resp).Email)
	})

	t.Run("delete then not found", func(t *testing.T) {
		resp := client.do(http.MethodDelete, "/api/tasks/"+task.ID.String(), aliceToken, nil)
		assert.Equal(t, http.StatusNoContent, resp.Code)

		resp = client.do(http.MethodGet, "/api/tasks/"+task.ID.String(), aliceToken, nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	resp = client.do(http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, resp.Body.String(), `taskflow_task_events_total{type="task.created"} 1`)
	assert.Contains(t, resp.Body.String(), `taskflow_notifications_total{outcome="stored",type="task-assigned"} 1`)
}

func TestAuthRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit.RequestsPerMinute = 1
	cfg.Server.RateLimit.Burst = 2
	client := testClient{t: t, handler: newTestApp(t, cfg).setupRouter()}

	login := map[string]string{"email": "nobody@example.com", "password": "wrong-password"}
	for range 2 {
		resp := client.do(http.MethodPost, "/api/auth/login", "", login)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	}

	resp := client.do(http.MethodPost, "/api/auth/login", "", login)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("Retry-After"))

	// Only the auth routes are limited.
	resp = client.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRemindersDisabled(t *testing.T) {
	app := newTestApp(t, testConfig())
	assert.Nil(t, app.scheduler)
	assert.Nil(t, app.workerPool)

	app.startReminders(context.Background())
	app.cleanup(context.Background())
}

func TestReminderPipeline(t *testing.T) {
	cfg := testConfig()
	cfg.Reminders.Enabled = true
	app := newTestApp(t, cfg)
	client := testClient{t: t, handler: app.setupRouter()}

	aliceToken, _ := client.register("alice@example.com")
	bobToken, bobID := client.register("bob@example.com")

	resp := client.do(http.MethodPost, "/api/tasks", aliceToken, map[string]any{
		"title":      "Due soon",
		"assignedTo": bobID,
		"dueDate":    time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.startReminders(ctx)
	defer app.cleanup(context.Background())

	// The assignment notification plus one reminder.
	require.Eventually(t, func() bool {
		resp := client.do(http.MethodGet, "/api/notifications/unread-count", bobToken, nil)
		var body struct {
			Count int64 `json:"count"`
		}
		return resp.Code == http.StatusOK &&
			json.Unmarshal(resp.Body.Bytes(), &body) == nil &&
			body.Count == 2
	}, 5*time.Second, 20*time.Millisecond)

	resp = client.do(http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, resp.Body.String(), `taskflow_reminder_jobs_total{outcome="sent"} 1`)
}
