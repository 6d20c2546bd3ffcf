package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/pointledger/internal/logging"
)

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID(), Audit(logging.Discard()))
	var seen string
	app.Get("/point/:id", func(c *fiber.Ctx) error {
		seen = GetRequestID(c)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/point/1", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if seen == "" || resp.Header.Get(requestIDHeader) != seen {
		t.Fatalf("expected generated id echoed, locals=%q header=%q", seen, resp.Header.Get(requestIDHeader))
	}

	req := httptest.NewRequest(fiber.MethodGet, "/point/1", nil)
	req.Header.Set(requestIDHeader, "client-supplied")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if seen != "client-supplied" || resp.Header.Get(requestIDHeader) != "client-supplied" {
		t.Fatalf("expected client id preserved, got %q", seen)
	}
}
