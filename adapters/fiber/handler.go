package fiber

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/rota/core"
)

type handlerFactory func(core.AdminHandler) fiber.Handler

// handlerFactories maps endpoint OperationIDs to their Fiber handlers
var handlerFactories = map[string]handlerFactory{
	"getConfig":      handleGetConfigFiber,
	"updateConfig":   handleUpdateConfigFiber,
	"addKey":         handleAddKeyFiber,
	"deleteKey":      handleDeleteKeyFiber,
	"listAccounts":   handleListAccountsFiber,
	"addAccount":     handleAddAccountFiber,
	"deleteAccount":  handleDeleteAccountFiber,
	"getQueueStatus": handleQueueStatusFiber,
}

type keyInput struct {
	Key string `json:"key"`
}

type accountInput struct {
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

func handleGetConfigFiber(admin core.AdminHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(admin.GetConfig())
	}
}

func handleUpdateConfigFiber(admin core.AdminHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		var update core.ConfigUpdate
		if err := c.Bind().Body(&update); err != nil {
			return badRequest(c)
		}

		if err := admin.UpdateConfig(c.Context(), update); err != nil {
			return handleAdminError(c, err)
		}

		return c.Status(http.StatusOK).JSON(fiber.Map{
			"success": true,
			"message": "config updated",
		})
	}
}

func handleAddKeyFiber(admin core.AdminHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input keyInput
		if err := c.Bind().Body(&input); err != nil {
			return badRequest(c)
		}

		total, err := admin.AddKey(c.Context(), input.Key)
		if err != nil {
			return handleAdminError(c, err)
		}

		return c.Status(http.StatusOK).JSON(fiber.Map{
			"success":    true,
			"total_keys": total,
		})
	}
}

func handleDeleteKeyFiber(admin core.AdminHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		total, err := admin.DeleteKey(c.Context(), pathParam(c, "key"))
		if err != nil {
			return handleAdminError(c, err)
		}

		return c.Status(http.StatusOK).JSON(fiber.Map{
			"success":    true,
			"total_keys": total,
		})
	}
}

func handleListAccountsFiber(admin core.AdminHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		page := queryInt(c, "page", 1)
		pageSize := queryInt(c, "page_size", 10)

		return c.Status(http.StatusOK).JSON(admin.ListAccounts(page, pageSize))
	}
}

func handleAddAccountFiber(admin core.AdminHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input accountInput
		if err := c.Bind().Body(&input); err != nil {
			return badRequest(c)
		}

		total, err := admin.AddAccount(c.Context(), core.Account{
			Email:    input.Email,
			Mobile:   input.Mobile,
			Password: input.Password,
			Token:    input.Token,
		})
		if err != nil {
			return handleAdminError(c, err)
		}

		return c.Status(http.StatusOK).JSON(fiber.Map{
			"success":        true,
			"total_accounts": total,
		})
	}
}

func handleDeleteAccountFiber(admin core.AdminHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		total, err := admin.DeleteAccount(c.Context(), pathParam(c, "identifier"))
		if err != nil {
			return handleAdminError(c, err)
		}

		return c.Status(http.StatusOK).JSON(fiber.Map{
			"success":        true,
			"total_accounts": total,
		})
	}
}

func handleQueueStatusFiber(admin core.AdminHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(admin.QueueStatus())
	}
}

func pathParam(c fiber.Ctx, name string) string {
	raw := c.Params(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func queryInt(c fiber.Ctx, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return fallback
	}
	return v
}

func badRequest(c fiber.Ctx) error {
	return c.Status(http.StatusBadRequest).JSON(core.ErrorResponse{
		Error: "invalid request body",
		Code:  http.StatusBadRequest,
	})
}

// handleAdminError maps admin errors to appropriate HTTP responses
func handleAdminError(c fiber.Ctx, err error) error {
	status := mapErrorToStatus(err)
	return c.Status(status).JSON(core.ErrorResponse{
		Error: err.Error(),
		Code:  status,
	})
}

// mapErrorToStatus maps rota error types to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, core.ErrInvalidAccount),
		errors.Is(err, core.ErrDuplicateIdentifier),
		errors.Is(err, core.ErrKeyRequired),
		errors.Is(err, core.ErrKeyExists):
		return http.StatusBadRequest

	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrKeyNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrMissingAuthHeader),
		errors.Is(err, core.ErrInvalidAuthHeader),
		errors.Is(err, core.ErrAdminKeyInvalid),
		errors.Is(err, core.ErrUnauthenticated),
		errors.Is(err, core.ErrLoginFailed):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrNoUsableAccount):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
