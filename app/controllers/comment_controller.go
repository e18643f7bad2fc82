package controllers

import (
	"strings"

	"github.com/FabianGrimm/InkPress/app/models"
	"github.com/FabianGrimm/InkPress/internal/pkg/database"
	"github.com/FabianGrimm/InkPress/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

type commentRequest struct {
	Content string `json:"content"`
}

// HandleListComments returns the comments of a post, oldest first.
func HandleListComments(c *fiber.Ctx) error {
	post, err := findPostBySlug(c.Params("slug"))
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "post not found")
	}

	var comments []models.Comment
	if err := database.GetDB().Preload("User").
		Where("post_id = ?", post.ID).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "list_failed", "could not load comments")
	}
	return c.JSON(comments)
}

// HandleCreateComment adds a comment by the calling user.
func HandleCreateComment(c *fiber.Ctx) error {
	post, err := findPostBySlug(c.Params("slug"))
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "post not found")
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "could not parse request body")
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_input", "comment content is required")
	}

	comment := &models.Comment{
		PostID:  post.ID,
		UserID:  usercontext.GetUserID(c),
		Content: content,
	}
	if err := database.GetDB().Create(comment).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "create_failed", "could not create comment")
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// HandleDeleteComment removes a comment; only its author or an admin may
// delete.
func HandleDeleteComment(c *fiber.Ctx) error {
	var comment models.Comment
	if err := database.GetDB().First(&comment, c.Params("id")).Error; err != nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "comment not found")
	}

	userCtx := usercontext.GetUserContext(c)
	if comment.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "not your comment")
	}

	if err := database.GetDB().Delete(&comment).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "delete_failed", "could not delete comment")
	}
	return c.JSON(fiber.Map{"ok": true})
}
