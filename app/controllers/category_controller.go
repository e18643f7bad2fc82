package controllers

import (
	"strings"

	"github.com/FabianGrimm/InkPress/app/models"
	"github.com/FabianGrimm/InkPress/internal/pkg/database"
	"github.com/gofiber/fiber/v2"
)

type categoryRequest struct {
	Name string `json:"name"`
}

// HandleListCategories returns all categories.
func HandleListCategories(c *fiber.Ctx) error {
	var categories []models.Category
	if err := database.GetDB().Order("name ASC").Find(&categories).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "list_failed", "could not load categories")
	}
	return c.JSON(categories)
}

// HandleCreateCategory creates a category (admin only, enforced by router).
func HandleCreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "could not parse request body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_input", "category name is required")
	}

	category := &models.Category{Name: name, Slug: slugify(name)}
	if err := database.GetDB().Create(category).Error; err != nil {
		return jsonError(c, fiber.StatusConflict, "create_failed", "category may already exist")
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// HandleDeleteCategory removes a category (admin only, enforced by router).
func HandleDeleteCategory(c *fiber.Ctx) error {
	var category models.Category
	if err := database.GetDB().Where("slug = ?", c.Params("slug")).First(&category).Error; err != nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "category not found")
	}
	if err := database.GetDB().Delete(&category).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "delete_failed", "could not delete category")
	}
	return c.JSON(fiber.Map{"ok": true})
}
