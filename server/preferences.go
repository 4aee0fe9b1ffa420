package server

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	iopps "github.com/wingchucks/iopps-sub007"
	"github.com/wingchucks/iopps-sub007/notify"
)

// PreferencesRequest replaces channel settings for the named categories.
type PreferencesRequest struct {
	Channels map[notify.Category]notify.ChannelSettings `json:"channels"`
}

// Validate will run validation rules
func (r PreferencesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Channels, validation.Required),
	)
}

// preferencesEmail resolves the email a preference document is keyed by.
// The email claim is authoritative; the subject is no substitute for it.
func preferencesEmail(c *fiber.Ctx) (string, error) {
	claims, err := sessionClaims(c)
	if err != nil {
		return "", err
	}
	if claims.Email == "" {
		return "", iopps.ErrForbidden
	}
	return claims.Email, nil
}

func (s *Server) preferencesGet(c *fiber.Ctx) error {
	email, err := preferencesEmail(c)
	if err != nil {
		return err
	}

	pref, err := s.preferences.Get(c.Context(), email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "preference": pref})
}

func (s *Server) preferencesUpdate(c *fiber.Ctx) error {
	email, err := preferencesEmail(c)
	if err != nil {
		return err
	}

	payload := new(PreferencesRequest)
	if err := c.BodyParser(payload); err != nil {
		return iopps.ValidationError(err)
	}
	if err := payload.Validate(); err != nil {
		return iopps.ValidationError(err)
	}

	pref, err := s.preferences.Update(c.Context(), email, payload.Channels)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "preference": pref})
}
