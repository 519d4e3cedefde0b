package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	common "github.com/example/phone-mailer/internal/adapters/common"
	"github.com/example/phone-mailer/internal/identity"
)

type emailReq struct {
	Phone string `json:"phone"`
	Scope string `json:"scope"`
}

type emailResp struct {
	Email string `json:"email"`
}

type loginReq struct {
	Identifier string `json:"identifier"`
}

type loginResp struct {
	Identifier string `json:"identifier"`
}

type regenerateReq struct {
	CurrentEmail string `json:"current_email"`
	Phone        string `json:"phone"`
	Scope        string `json:"scope"`
}

type regenerateResp struct {
	Email   string `json:"email"`
	Changed bool   `json:"changed"`
}

type testConnectionReq struct {
	APIKey     string `json:"api_key"`
	InstanceID string `json:"instance_id"`
	Scope      string `json:"scope"`
}

func (s *Server) generateEmail(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	email, err := s.deps.Identity.GenerateEmailFromPhone(c.Request().Context(), req.Phone, req.Scope)
	if err != nil {
		return s.identityError(c, err)
	}
	return c.JSON(http.StatusOK, emailResp{Email: email})
}

func (s *Server) resolveLogin(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if strings.TrimSpace(req.Identifier) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "identifier required"})
	}
	return c.JSON(http.StatusOK, loginResp{Identifier: s.deps.Logins.ResolveLogin(c.Request().Context(), req.Identifier)})
}

func (s *Server) regenerate(c echo.Context) error {
	var req regenerateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	email, err := s.deps.Identity.RegenerateIfNeeded(c.Request().Context(), req.CurrentEmail, req.Phone, req.Scope)
	if err != nil {
		return s.identityError(c, err)
	}
	return c.JSON(http.StatusOK, regenerateResp{Email: email, Changed: email != req.CurrentEmail})
}

func (s *Server) testConnection(c echo.Context) error {
	var req testConnectionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	res := s.deps.Connection.TestConnection(c.Request().Context(), req.APIKey, req.InstanceID, req.Scope)
	return c.JSON(http.StatusOK, res)
}

func (s *Server) identityError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, identity.ErrPhoneRequired):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": identity.ErrPhoneRequired.Error()})
	case errors.Is(err, common.ErrValidation):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		s.logger.Error().Err(err).Msg("identity request failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
