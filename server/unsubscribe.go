package server

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"

	iopps "github.com/wingchucks/iopps-sub007"
	"github.com/wingchucks/iopps-sub007/notify"
)

// UnsubscribeRequest is the unsubscribe callback payload, shared between the
// GET (verify only) and POST (verify and apply) forms.
type UnsubscribeRequest struct {
	Email string `json:"email" query:"email"`
	Type  string `json:"type" query:"type"`
	Token string `json:"token" query:"token"`
}

// Validate will run validation rules
func (r UnsubscribeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Type, validation.Required),
		validation.Field(&r.Token, validation.Required),
	)
}

// category validates the type parameter against the closed enumeration.
// Unknown types are rejected before any token check.
func (r UnsubscribeRequest) category() (notify.Category, error) {
	category, ok := notify.ParseCategory(r.Type)
	if !ok {
		return "", iopps.ValidationError(validation.Errors{
			"type": errors.New("unknown notification category"),
		})
	}
	return category, nil
}

func (s *Server) unsubscribeVerify(c *fiber.Ctx) error {
	payload := new(UnsubscribeRequest)
	if err := c.QueryParser(payload); err != nil {
		return iopps.ValidationError(err)
	}
	if err := payload.Validate(); err != nil {
		return iopps.ValidationError(err)
	}

	category, err := payload.category()
	if err != nil {
		s.recorder.RecordUnsubscribe("rejected")
		return err
	}

	if !s.codec.Verify(payload.Email, category, payload.Token) {
		s.recorder.RecordUnsubscribe("rejected")
		return iopps.ErrInvalidToken
	}

	s.recorder.RecordUnsubscribe("verified")
	return c.JSON(fiber.Map{"success": true, "valid": true})
}

func (s *Server) unsubscribeApply(c *fiber.Ctx) error {
	payload := new(UnsubscribeRequest)
	if err := c.BodyParser(payload); err != nil {
		return iopps.ValidationError(err)
	}
	if err := payload.Validate(); err != nil {
		return iopps.ValidationError(err)
	}

	category, err := payload.category()
	if err != nil {
		s.recorder.RecordUnsubscribe("rejected")
		return err
	}

	if !s.codec.Verify(payload.Email, category, payload.Token) {
		s.recorder.RecordUnsubscribe("rejected")
		return iopps.ErrInvalidToken
	}

	pref, err := s.preferences.Unsubscribe(c.Context(), payload.Email, category)
	if err != nil {
		return err
	}

	s.recorder.RecordUnsubscribe("applied")
	s.logger.Info("unsubscribe applied", "email", payload.Email, "category", category)
	return c.JSON(fiber.Map{"success": true, "preference": pref})
}
