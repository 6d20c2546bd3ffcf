package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/pointledger/internal/config"
	"github.com/congo-pay/pointledger/internal/logging"
)

func testConfig(backend string) config.Config {
	return config.Config{
		AppName:            "PointLedgerTest",
		AppEnv:             "test",
		Port:               "0",
		StoreBackend:       backend,
		MaxBalance:         1_000_000,
		ShutdownPeriod:     time.Second,
		IdempotencyTTL:     time.Minute,
		MutationRatePerMin: 100,
	}
}

func do(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, payload
}

func TestServerMemoryBackendFlow(t *testing.T) {
	srv, err := New(testConfig(config.BackendMemory), nil, nil, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	app := srv.App()

	if status, _ := do(t, app, fiber.MethodPatch, "/api/v1/point/1/charge", `{"amount":8000}`, nil); status != fiber.StatusOK {
		t.Fatalf("charge: expected 200 got %d", status)
	}
	if status, _ := do(t, app, fiber.MethodPatch, "/api/v1/point/1/use", `{"amount":2000}`, nil); status != fiber.StatusOK {
		t.Fatalf("use: expected 200 got %d", status)
	}

	status, payload := do(t, app, fiber.MethodGet, "/api/v1/point/1", "", nil)
	if status != fiber.StatusOK || !strings.Contains(string(payload), `"point":6000`) {
		t.Fatalf("balance: status=%d body=%s", status, payload)
	}

	status, payload = do(t, app, fiber.MethodPatch, "/api/v1/point/1/use", `{"amount":999999}`, nil)
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", status)
	}
	var body errorBody
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Code != "unprocessable_entity" || body.Message == "" {
		t.Fatalf("unexpected error body: %+v", body)
	}

	status, payload = do(t, app, fiber.MethodGet, "/healthz", "", nil)
	if status != fiber.StatusOK || !strings.Contains(string(payload), `"postgres":"disabled"`) {
		t.Fatalf("healthz: status=%d body=%s", status, payload)
	}
}

func TestServerRedisBackendIdempotentCharge(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	srv, err := New(testConfig(config.BackendRedis), nil, cache, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	app := srv.App()

	headers := map[string]string{"Idempotency-Key": "charge-1"}
	for i := 0; i < 3; i++ {
		if status, body := do(t, app, fiber.MethodPatch, "/api/v1/point/5/charge", `{"amount":100}`, headers); status != fiber.StatusOK {
			t.Fatalf("charge %d: status=%d body=%s", i, status, body)
		}
	}

	_, payload := do(t, app, fiber.MethodGet, "/api/v1/point/5", "", nil)
	if !strings.Contains(string(payload), `"point":100`) {
		t.Fatalf("replayed charges must not apply twice: %s", payload)
	}
	_, payload = do(t, app, fiber.MethodGet, "/api/v1/point/5/histories", "", nil)
	var history []map[string]any
	if err := json.Unmarshal(payload, &history); err != nil || len(history) != 1 {
		t.Fatalf("expected one history record, got %s (err=%v)", payload, err)
	}
}

func TestServerRejectsMissingBackends(t *testing.T) {
	if _, err := New(testConfig(config.BackendPostgres), nil, nil, logging.Discard()); err == nil {
		t.Fatalf("expected error for postgres backend without pool")
	}
	if _, err := New(testConfig(config.BackendRedis), nil, nil, logging.Discard()); err == nil {
		t.Fatalf("expected error for redis backend without client")
	}
}

func TestServerReplaysRetryBeforeRateLimit(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	cfg := testConfig(config.BackendMemory)
	cfg.MutationRatePerMin = 1
	srv, err := New(cfg, nil, cache, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	app := srv.App()

	charge := func(key string) *http.Response {
		req := httptest.NewRequest(fiber.MethodPatch, "/api/v1/point/1/charge", strings.NewReader(`{"amount":10}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		req.Header.Set("Idempotency-Key", key)
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		return resp
	}

	if resp := charge("k1"); resp.StatusCode != fiber.StatusOK {
		t.Fatalf("first charge: expected 200 got %d", resp.StatusCode)
	}
	retry := charge("k1")
	if retry.StatusCode != fiber.StatusOK {
		t.Fatalf("retry with same key: expected 200 got %d", retry.StatusCode)
	}
	if retry.Header.Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replayed response")
	}
	if resp := charge("k2"); resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("new key over limit: expected 429 got %d", resp.StatusCode)
	}

	_, payload := do(t, app, fiber.MethodGet, "/api/v1/point/1", "", nil)
	if !strings.Contains(string(payload), `"point":10`) {
		t.Fatalf("charge applied more than once: %s", payload)
	}
}
