package controllers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/FabianGrimm/InkPress/app/models"
	"github.com/FabianGrimm/InkPress/internal/pkg/billing"
	"github.com/FabianGrimm/InkPress/internal/pkg/database"
	"github.com/FabianGrimm/InkPress/internal/pkg/session"
	"github.com/FabianGrimm/InkPress/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

type profileUpdateRequest struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

// HandleGetProfile returns the calling user's profile.
func HandleGetProfile(c *fiber.Ctx) error {
	var user models.User
	if err := database.GetDB().First(&user, usercontext.GetUserID(c)).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "profile_failed", "could not load profile")
	}
	return c.JSON(user)
}

// HandleUpdateProfile updates name and bio of the calling user.
func HandleUpdateProfile(c *fiber.Ctx) error {
	var req profileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "could not parse request body")
	}

	var user models.User
	db := database.GetDB()
	if err := db.First(&user, usercontext.GetUserID(c)).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "profile_failed", "could not load profile")
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	user.Bio = strings.TrimSpace(req.Bio)
	if err := user.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_input", err.Error())
	}
	if err := db.Save(&user).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "update_failed", "could not update profile")
	}
	return c.JSON(user)
}

// HandleDeleteAccount removes the calling user's account. Provider-side
// subscription cancellation is attempted first but is best-effort: a billing
// failure is logged and never blocks the deletion.
func HandleDeleteAccount(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	db := database.GetDB()

	svc := billing.NewServiceFromDB(db)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := svc.CancelForUser(ctx, userID); err != nil {
		log.Printf("account deletion: best-effort subscription cancel for user %d failed: %v", userID, err)
	}

	if err := db.Where("user_id = ?", userID).Delete(&models.SubscriptionRecord{}).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "delete_failed", "could not remove subscription record")
	}
	if err := db.Where("user_id = ?", userID).Delete(&models.Comment{}).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "delete_failed", "could not remove comments")
	}
	if err := db.Where("user_id = ?", userID).Delete(&models.Post{}).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "delete_failed", "could not remove posts")
	}
	if err := db.Delete(&models.User{}, userID).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "delete_failed", "could not remove account")
	}

	if sess, err := session.GetSessionStore().Get(c); err == nil {
		_ = sess.Destroy()
	}
	return c.JSON(fiber.Map{"ok": true})
}
