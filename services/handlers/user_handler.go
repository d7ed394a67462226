package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/taskforge/taskforge-api/dto"
	"github.com/taskforge/taskforge-api/shared"
)

type UserHandler struct {
	authSvc AuthServiceInterface
}

func NewUserHandler(authSvc AuthServiceInterface) *UserHandler {
	return &UserHandler{authSvc: authSvc}
}

// @Summary Current user profile
// @Tags user
// @Produce json
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.UserInfo}
// @Router /api/v1/me [get]
func (h *UserHandler) Me(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	info, err := h.authSvc.GetUserInfo(userID)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, info)
}

// @Summary Change password
// @Description Update the password and revoke all refresh tokens
// @Tags user
// @Accept json
// @Produce json
// @Security Bearer
// @Param changeRequest body dto.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} shared.Response{data=nil}
// @Router /api/v1/password [put]
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	if err := h.authSvc.ChangePassword(userID, req); err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Password changed successfully", nil)
}
