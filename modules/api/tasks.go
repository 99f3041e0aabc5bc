package api

import (
	"log"
	"strings"

	"github.com/example/taskflow/modules/task"
	"github.com/gofiber/fiber/v2"
)

// ListTasks returns a page of the owner's tasks.
//
// Query parameters: page, limit, sortField, sortDirection, status, priority,
// q (or search) and date (YYYY-MM-DD).
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	claims, ok := claimsFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	search := c.Query("q")
	if search == "" {
		search = c.Query("search")
	}

	resp, err := h.taskAdapter.ListTasks(c.UserContext(), &task.ListTasksRequest{
		OwnerID:       claims.UserID,
		Page:          c.QueryInt("page", 1),
		Limit:         c.QueryInt("limit", 0),
		SortField:     c.Query("sortField"),
		SortDirection: c.Query("sortDirection"),
		Status:        c.Query("status"),
		Priority:      c.Query("priority"),
		Search:        search,
		Date:          c.Query("date"),
	})
	if err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(toTaskListJSON(resp))
}

// CreateTask creates a task for the owner.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	claims, ok := claimsFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	var input TaskInput
	if err := c.BodyParser(&input); err != nil {
		return invalidBody(c)
	}
	req, err := input.toCreateRequest(claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	}

	resp, err := h.taskAdapter.CreateTask(c.UserContext(), req)
	if err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toTaskJSON(resp))
}

// GetTask returns one of the owner's tasks.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	claims, ok := claimsFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	resp, err := h.taskAdapter.GetTask(c.UserContext(), claims.UserID, c.Params("id"))
	if err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(toTaskJSON(resp))
}

// UpdateTask edits one of the owner's tasks. Fields left out of the body
// are unchanged.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	claims, ok := claimsFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	var input TaskInput
	if err := c.BodyParser(&input); err != nil {
		return invalidBody(c)
	}
	req, err := input.toUpdateRequest(claims.UserID, c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	}

	resp, err := h.taskAdapter.UpdateTask(c.UserContext(), req)
	if err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(toTaskJSON(resp))
}

// DeleteTask removes one of the owner's tasks.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	claims, ok := claimsFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	id := c.Params("id")
	if err := h.taskAdapter.DeleteTask(c.UserContext(), claims.UserID, id); err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Task deleted",
		"id":      id,
	})
}

// SweepTasks runs an expiry pass for the current day. The pass covers every
// owner, so the response reports only that it ran, never what it touched.
func (h *Handlers) SweepTasks(c *fiber.Ctx) error {
	if _, ok := claimsFromContext(c); !ok {
		return unauthenticated(c)
	}

	resp, err := h.taskAdapter.ExpireOverdue(c.UserContext(), "")
	if err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(SweepJSON{
		Message: "Expiry pass completed",
		Today:   resp.Today,
	})
}

// handleTaskError maps task service errors, which arrive as text over the
// service bus, to HTTP responses.
func (h *Handlers) handleTaskError(c *fiber.Ctx, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "task not found"):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Task not found",
		})
	case strings.Contains(errStr, "validation failed"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: validationMessage(errStr),
		})
	case strings.Contains(errStr, "owner id is required"):
		return unauthenticated(c)
	default:
		log.Printf("[api] Internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}

// validationMessage strips the transport prefix and the trailing error code,
// e.g. " (validation)", from a validation error.
func validationMessage(errStr string) string {
	const marker = "validation failed: "
	i := strings.Index(errStr, marker)
	if i < 0 {
		return "Validation failed"
	}
	msg := errStr[i+len(marker):]
	if strings.HasSuffix(msg, ")") {
		if j := strings.LastIndex(msg, " ("); j >= 0 && !strings.Contains(msg[j+2:], " ") {
			msg = msg[:j]
		}
	}
	return msg
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "unauthorized",
		Message: "User not authenticated",
	})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: "Invalid request body",
	})
}
