package utils

import "github.com/gofiber/fiber/v2"

// APIResponse is the envelope every JSON endpoint returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
	Details interface{} `json:"details,omitempty"`
	Message string      `json:"message"`
}

func write(c *fiber.Ctx, status int, body APIResponse) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	if body.Message == "" {
		if body.Success {
			body.Message = "success"
		} else {
			body.Message = "error"
		}
	}
	return c.Status(status).JSON(body)
}

// SendSuccess writes a 200 envelope.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return write(c, fiber.StatusOK, APIResponse{Success: true, Data: data, Message: message})
}

// SendSuccessWithStatus writes a success envelope with a custom status.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	return write(c, status, APIResponse{Success: true, Data: data, Message: message})
}

// Created writes a 201 envelope for a newly stored resource.
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusCreated, message, data)
}

// OK writes a 200 envelope with page metadata such as counts and cursors.
func OK(c *fiber.Ctx, data interface{}, message string, meta interface{}) error {
	return write(c, fiber.StatusOK, APIResponse{Success: true, Data: data, Meta: meta, Message: message})
}

// SendError writes a failure envelope without details.
func SendError(c *fiber.Ctx, status int, message string) error {
	return Fail(c, status, message, nil)
}

// Fail writes a failure envelope. Details usually map request fields to the
// rule they broke.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	return write(c, status, APIResponse{Details: details, Message: message})
}
