package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// cronHandler wraps one expirer family as a cron endpoint. A fatal error
// (database unreachable) propagates as a 5xx so the scheduler's own retry
// cadence governs recovery; there is no in-process retry loop.
func (s *Server) cronHandler(family string, run func(context.Context, time.Time) (int, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		now := s.now()
		count, err := run(c.Context(), now)
		if err != nil {
			s.logger.Error("cron invocation failed", "family", family, "error", err)
			return err
		}

		s.logger.Info("cron invocation finished", "family", family, "expired", count)
		return c.JSON(fiber.Map{"success": true, "family": family, "expired": count})
	}
}

func (s *Server) cronExpireAll(c *fiber.Ctx) error {
	results, err := s.expirer.ExpireAll(c.Context(), s.now())
	if err != nil {
		s.logger.Error("cron expire-all failed", "error", err)
		return err
	}

	total := 0
	for _, r := range results {
		total += r.Expired
	}

	s.logger.Info("cron expire-all finished", "expired", total)
	return c.JSON(fiber.Map{"success": true, "expired": total, "results": results})
}
