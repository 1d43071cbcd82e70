package feed

import (
	"context"
	"errors"

	"food4student-feed/internal/auth"
	"food4student-feed/internal/geo"

	"github.com/gofiber/fiber/v2"
)

type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// RegisterRoutes exposes feed sessions. Every route except the listing
// is scoped to the caller's own sessions.
func RegisterRoutes(r fiber.Router, reg *Registry, authMiddleware, moderatorOnly fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		userID := auth.UserID(c)
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "user missing")
		}
		s := reg.Open(userID, auth.Token(c))
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":    s.ID,
			"state": s.Controller.Snapshot(),
		})
	})

	r.Get("/", authMiddleware, moderatorOnly, func(c *fiber.Ctx) error {
		return c.JSON(reg.Sessions())
	})

	r.Get("/:id", authMiddleware, withSession(reg, func(c *fiber.Ctx, s *Session) error {
		return c.JSON(s.Controller.Snapshot())
	}))

	r.Post("/:id/refresh", authMiddleware, withSession(reg, func(c *fiber.Ctx, s *Session) error {
		loc, err := parseLocation(c)
		if err != nil {
			return err
		}
		return respond(c, s, s.Controller.Refresh(c.Context(), loc))
	}))

	r.Post("/:id/more", authMiddleware, withSession(reg, func(c *fiber.Ctx, s *Session) error {
		loc, err := parseLocation(c)
		if err != nil {
			return err
		}
		return respond(c, s, s.Controller.LoadMore(c.Context(), loc))
	}))

	r.Put("/:id/tab", authMiddleware, withSession(reg, func(c *fiber.Ctx, s *Session) error {
		var body struct {
			Tab *Tab `json:"tab"`
		}
		if err := c.BodyParser(&body); err != nil || body.Tab == nil {
			return fiber.NewError(fiber.StatusBadRequest, "tab required")
		}
		s.Controller.SelectTab(*body.Tab)
		return c.JSON(s.Controller.Snapshot())
	}))

	r.Post("/:id/restaurants/:rid/like", authMiddleware, withSession(reg, func(c *fiber.Ctx, s *Session) error {
		return respond(c, s, s.Controller.ToggleLike(c.Context(), c.Params("rid")))
	}))

	r.Delete("/:id/error", authMiddleware, withSession(reg, func(c *fiber.Ctx, s *Session) error {
		s.Controller.DismissError()
		return c.JSON(s.Controller.Snapshot())
	}))

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := reg.Close(c.Params("id"), auth.UserID(c)); err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func withSession(reg *Registry, next func(*fiber.Ctx, *Session) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := auth.UserID(c)
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "user missing")
		}
		s, err := reg.Get(c.Params("id"), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return next(c, s)
	}
}

// parseLocation returns nil when the body carries no usable fix.
func parseLocation(c *fiber.Ctx) (*geo.Point, error) {
	if len(c.Body()) == 0 {
		return nil, nil
	}
	var req locationRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.Lat == nil || req.Lng == nil {
		return nil, nil
	}
	if *req.Lat < -90 || *req.Lat > 90 || *req.Lng < -180 || *req.Lng > 180 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "coordinates out of range")
	}
	return &geo.Point{Lat: *req.Lat, Lng: *req.Lng}, nil
}

func respond(c *fiber.Ctx, s *Session, err error) error {
	state := s.Controller.Snapshot()
	if err == nil {
		return c.JSON(state)
	}
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": err.Error(),
		"state": state,
	})
}

func statusFor(err error) int {
	var fetchErr *FetchFailedError
	switch {
	case errors.Is(err, ErrLocationUnavailable):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &fetchErr):
		return fiber.StatusBadGateway
	case errors.Is(err, ErrBusy), errors.Is(err, ErrSuperseded):
		return fiber.StatusConflict
	case errors.Is(err, ErrClosed):
		return fiber.StatusGone
	case errors.Is(err, ErrSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusRequestTimeout
	default:
		return fiber.StatusInternalServerError
	}
}
