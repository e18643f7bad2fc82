package controllers

import (
	"errors"
	"strings"

	"github.com/FabianGrimm/InkPress/app/models"
	"github.com/FabianGrimm/InkPress/internal/pkg/database"
	"github.com/FabianGrimm/InkPress/internal/pkg/entitlements"
	"github.com/FabianGrimm/InkPress/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type postRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Excerpt    string `json:"excerpt"`
	Published  bool   `json:"published"`
	Premium    bool   `json:"premium"`
	CategoryID uint   `json:"category_id"`
}

// HandleListPosts returns published posts. Premium post bodies are withheld
// here; the detail endpoint decides per caller.
func HandleListPosts(c *fiber.Ctx) error {
	var posts []models.Post
	q := database.GetDB().Preload("User").Preload("Category").
		Where("published = ?", true).
		Order("created_at DESC")
	if slug := strings.TrimSpace(c.Query("category")); slug != "" {
		q = q.Joins("JOIN categories ON categories.id = posts.category_id").
			Where("categories.slug = ?", slug)
	}
	if err := q.Find(&posts).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "list_failed", "could not load posts")
	}

	for i := range posts {
		if posts[i].Premium {
			posts[i].Content = ""
		}
	}
	return c.JSON(posts)
}

// HandleGetPost returns a single post. Premium content requires an active
// paid tier; the gate checks IsActive, never the stored tier alone, so a
// lapsed subscription stops granting access without any background job.
func HandleGetPost(c *fiber.Ctx) error {
	post, err := findPostBySlug(c.Params("slug"))
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "post not found")
	}

	userCtx := usercontext.GetUserContext(c)
	if !post.Published && post.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusNotFound, "not_found", "post not found")
	}

	if post.Premium && post.UserID != userCtx.UserID && !userCtx.IsAdmin {
		tier := entitlements.EffectiveTier{Tier: entitlements.TierFree}
		if userCtx.IsLoggedIn {
			tier, err = entitlements.ForUser(database.GetDB(), userCtx.UserID)
			if err != nil {
				return jsonError(c, fiber.StatusInternalServerError, "entitlement_failed", "could not check subscription")
			}
		}
		if !tier.IsActive {
			post.Content = ""
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error":   "premium_required",
				"message": "an active paid subscription is required",
				"post":    post,
			})
		}
	}

	return c.JSON(post)
}

// HandleCreatePost creates a post owned by the calling user.
func HandleCreatePost(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "could not parse request body")
	}

	post := &models.Post{
		UUID:       uuid.New().String(),
		Title:      strings.TrimSpace(req.Title),
		Slug:       slugify(req.Title),
		Content:    req.Content,
		Excerpt:    strings.TrimSpace(req.Excerpt),
		Published:  req.Published,
		Premium:    req.Premium,
		UserID:     userCtx.UserID,
		CategoryID: req.CategoryID,
	}
	if err := database.GetDB().Create(post).Error; err != nil {
		return jsonError(c, fiber.StatusBadRequest, "create_failed", "could not create post (duplicate slug?)")
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// HandleUpdatePost updates a post; only the author or an admin may edit.
func HandleUpdatePost(c *fiber.Ctx) error {
	post, err := findPostBySlug(c.Params("slug"))
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "post not found")
	}

	userCtx := usercontext.GetUserContext(c)
	if post.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "not your post")
	}

	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "could not parse request body")
	}

	post.Title = strings.TrimSpace(req.Title)
	post.Content = req.Content
	post.Excerpt = strings.TrimSpace(req.Excerpt)
	post.Published = req.Published
	post.Premium = req.Premium
	if req.CategoryID != 0 {
		post.CategoryID = req.CategoryID
	}
	if err := database.GetDB().Save(post).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "update_failed", "could not update post")
	}
	return c.JSON(post)
}

// HandleDeletePost soft-deletes a post; only the author or an admin may
// delete.
func HandleDeletePost(c *fiber.Ctx) error {
	post, err := findPostBySlug(c.Params("slug"))
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "post not found")
	}

	userCtx := usercontext.GetUserContext(c)
	if post.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "not your post")
	}

	if err := database.GetDB().Delete(post).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "delete_failed", "could not delete post")
	}
	return c.JSON(fiber.Map{"ok": true})
}

func findPostBySlug(slug string) (*models.Post, error) {
	var post models.Post
	err := database.GetDB().Preload("User").Preload("Category").
		Where("slug = ?", strings.TrimSpace(slug)).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}
