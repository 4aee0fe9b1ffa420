package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	iopps "github.com/wingchucks/iopps-sub007"
)

func (s *Server) adminStats(c *fiber.Ctx) error {
	counts, err := s.store.Counts(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "counts": counts})
}

// OverrideRequest toggles the force-published override on a job.
type OverrideRequest struct {
	ForcePublished bool `json:"force_published"`
}

func (s *Server) adminJobOverride(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return iopps.ValidationError(err)
	}

	payload := new(OverrideRequest)
	if err := c.BodyParser(payload); err != nil {
		return iopps.ValidationError(err)
	}

	claims, err := sessionClaims(c)
	if err != nil {
		return err
	}

	job, err := s.store.SetJobOverride(c.Context(), id, payload.ForcePublished)
	if err != nil {
		return err
	}

	s.logger.Info("admin toggled job override",
		"job", job.ID,
		"force_published", job.ForcePublished,
		"admin", claims.UserID(),
	)
	return c.JSON(fiber.Map{"success": true, "job": job})
}

func (s *Server) adminJobExpire(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return iopps.ValidationError(err)
	}

	claims, err := sessionClaims(c)
	if err != nil {
		return err
	}

	job, err := s.store.ExpireJob(c.Context(), id, s.now())
	if err != nil {
		return err
	}

	s.logger.Info("admin expired job", "job", job.ID, "admin", claims.UserID())
	return c.JSON(fiber.Map{"success": true, "job": job})
}
