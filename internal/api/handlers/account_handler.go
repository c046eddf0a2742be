package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/socialsync/configs"
	job "github.com/maheshrc27/socialsync/internal/jobs"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/service"
	"github.com/maheshrc27/socialsync/pkg/utils"
)

type AccountHandler struct {
	s         service.AccountService
	scheduler *job.SyncScheduler
	cfg       config.Config
}

func NewAccountHandler(s service.AccountService, scheduler *job.SyncScheduler, cfg config.Config) *AccountHandler {
	return &AccountHandler{s: s, scheduler: scheduler, cfg: cfg}
}

// AddAccount redirects to the platform's consent screen. The signed session
// token rides along as OAuth state so the callback can recover the user.
func (h *AccountHandler) AddAccount(c *fiber.Ctx) error {
	platformName := c.Params("platform")

	tokenString := c.Cookies(h.cfg.CookieName)
	if tokenString == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing session cookie",
		})
	}

	if platformName == models.PlatformSynthetic {
		claims, err := utils.ValidateToken(h.cfg.SecretKey, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}
		c.Locals("user_id", claims.UserID)

		accountID, err := h.s.ConnectSynthetic(c.Context(), GetUserID(c))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"account_id": accountID,
		})
	}

	authURL := h.s.GetAuthURL(c.Context(), platformName, tokenString)
	if authURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unsupported platform",
		})
	}

	return c.Redirect(authURL, fiber.StatusTemporaryRedirect)
}

func (h *AccountHandler) CallbackHandler(c *fiber.Ctx) error {
	platformName := c.Params("platform")
	code := c.Query("code")
	state := c.Query("state")

	claims, err := utils.ValidateToken(h.cfg.SecretKey, state)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid state",
		})
	}
	c.Locals("user_id", claims.UserID)
	userID := GetUserID(c)

	switch platformName {
	case models.PlatformFacebook, models.PlatformInstagram:
		err = h.s.FacebookCallback(c.Context(), code, userID)
	case models.PlatformYoutube:
		err = h.s.GoogleCallback(c.Context(), code, userID)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unsupported platform",
		})
	}

	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Redirect(h.cfg.FrontendURL + "/accounts")
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accounts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"accounts": accounts,
	})
}

func (h *AccountHandler) DisconnectAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var body struct {
		AccountID int64 `json:"account_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	if err := h.s.Disconnect(c.Context(), userID, body.AccountID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	h.scheduler.UnscheduleAccount(body.AccountID)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Account disconnected",
	})
}

// SetAccountSchedule registers a dedicated sync cadence for one account.
func (h *AccountHandler) SetAccountSchedule(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var body struct {
		AccountID int64  `json:"account_id"`
		CronSpec  string `json:"cron_spec"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	owned := false
	accounts, err := h.s.List(c.Context(), userID)
	if err == nil {
		for _, acc := range accounts {
			if acc.ID == body.AccountID {
				owned = true
				break
			}
		}
	}
	if !owned {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Account doesn't belong to this user",
		})
	}

	if body.CronSpec == "" {
		h.scheduler.UnscheduleAccount(body.AccountID)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Custom schedule removed",
		})
	}

	if err := h.scheduler.ScheduleAccount(body.AccountID, body.CronSpec, models.SyncJobTypeScheduled); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid cron expression",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Custom schedule registered",
	})
}
