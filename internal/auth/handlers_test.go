package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestActionsRoute(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/admin"), JWTMiddleware("secret"), RequireRole(RoleAdmin, RoleModerator))

	token, _ := SignToken("secret", "admin-1", RoleAdmin, time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/admin/actions/Banned?owns_restaurant=true", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("actions status: %v", err)
	}

	var body struct {
		Actor   Role     `json:"actor"`
		Target  Role     `json:"target"`
		Actions []Action `json:"actions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Actor != RoleAdmin || body.Target != RoleBanned || len(body.Actions) != 2 || body.Actions[0] != ActionUnbanRestaurantOwner {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestActionsRouteBadRole(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/admin"), JWTMiddleware("secret"))

	token, _ := SignToken("secret", "admin-1", RoleAdmin, time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/admin/actions/Wizard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}
}

func TestActionsRouteForbidden(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/admin"), JWTMiddleware("secret"), RequireRole(RoleAdmin, RoleModerator))

	token, _ := SignToken("secret", "user-1", RoleUser, time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/admin/actions/User", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected forbidden")
	}
}
