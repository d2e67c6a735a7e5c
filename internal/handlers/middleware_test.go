package handlers

import (
	"bytes"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"

	"collab_service/internal/service"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const testJWTSecret = "middleware-test-secret"

func identityApp() *fiber.App {
	app := fiber.New()
	app.Use(Identity(service.NewJWTService(testJWTSecret)))
	app.Get("/whoami", func(c fiber.Ctx) error {
		actorID, ok := actorFromContext(c)
		if !ok {
			return c.Status(fiber.StatusInternalServerError).SendString("no actor")
		}
		return c.SendString(actorID.Hex())
	})
	return app
}

func signedToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &service.Claims{UserID: userID})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func TestIdentityBearerToken(t *testing.T) {
	app := identityApp()
	actorID := bson.NewObjectID()

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, actorID.Hex()))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != actorID.Hex() {
		t.Errorf("Expected actor %s, got %s", actorID.Hex(), body)
	}
}

func TestIdentityRejectsMalformedUserID(t *testing.T) {
	// The token verifies, but its user id is not an object id. The
	// request is rejected and the logged reason names that failure.
	var logs bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&logs)
	defer log.SetOutput(prev)

	app := identityApp()
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "not-an-object-id"))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}
	if !strings.Contains(logs.String(), "malformed user id") {
		t.Errorf("Expected the rejection log to carry the cause, got %q", logs.String())
	}
	if strings.Contains(logs.String(), "<nil>") {
		t.Errorf("Expected a concrete rejection reason, got %q", logs.String())
	}
}

func TestIdentityGatewayHeader(t *testing.T) {
	app := identityApp()
	actorID := bson.NewObjectID()

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("X-User-ID", actorID.Hex())

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestIdentityRequired(t *testing.T) {
	app := identityApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/whoami", nil))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}
}
