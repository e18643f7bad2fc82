package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/FabianGrimm/InkPress/app/models"
	"github.com/FabianGrimm/InkPress/internal/pkg/database"
	"github.com/FabianGrimm/InkPress/internal/pkg/session"
	"github.com/FabianGrimm/InkPress/internal/pkg/usercontext"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a new user account together with its FREE
// subscription record, so every user has exactly one record before any
// billing interaction.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "could not parse request body")
	}

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := models.RegisterUser(database.GetDB(), name, email, req.Password)
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return jsonError(c, fiber.StatusBadRequest, "invalid_input", err.Error())
	}
	if err != nil {
		return jsonError(c, fiber.StatusConflict, "registration_failed", "email may already be registered")
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// HandleLogin authenticates a user and establishes a session.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "could not parse request body")
	}

	var user models.User
	err := database.GetDB().Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !models.CheckPasswordHash(req.Password, user.Password)) {
		return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "email or password is wrong")
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "login_failed", "could not load user")
	}
	if user.Status != models.STATUS_ACTIVE {
		return jsonError(c, fiber.StatusForbidden, "account_disabled", "account is not active")
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "session_failed", "could not create session")
	}
	sess.Set(usercontext.SessionKeyUserID, user.ID)
	sess.Set(usercontext.SessionKeyUserName, user.Name)
	sess.Set(usercontext.SessionKeyIsAdmin, user.Role == models.ROLE_ADMIN)
	if err := sess.Save(); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "session_failed", "could not save session")
	}

	now := time.Now()
	database.GetDB().Model(&user).Update("last_login_at", &now)

	return c.JSON(user)
}

// HandleLogout destroys the current session.
func HandleLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		_ = sess.Destroy()
	}
	return c.JSON(fiber.Map{"ok": true})
}
