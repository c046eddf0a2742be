package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/queue"
	"github.com/maheshrc27/socialsync/internal/service"
	"github.com/maheshrc27/socialsync/internal/sync"
)

type SyncHandler struct {
	engine      *sync.Engine
	accounts    service.AccountService
	AsynqClient *asynq.Client
}

func NewSyncHandler(engine *sync.Engine, accounts service.AccountService, asynqClient *asynq.Client) *SyncHandler {
	return &SyncHandler{engine: engine, accounts: accounts, AsynqClient: asynqClient}
}

// TriggerSync runs a manual sync synchronously and returns the terminal job
// summary, error message included. The caller sees the outcome directly; a
// failed sync is a failed job, not a failed request.
func (h *SyncHandler) TriggerSync(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accountID := int64(c.QueryInt("account_id", 0))
	if accountID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "account_id is required",
		})
	}

	if ok := h.checkOwnership(c, accountID, userID); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "account doesn't belong to this user",
		})
	}

	summary, err := h.engine.SyncAccount(c.Context(), accountID, models.SyncJobTypeManual)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "unable to start sync",
		})
	}

	return c.Status(fiber.StatusOK).JSON(summary)
}

// EnqueueSync queues the sync on the worker pool and returns immediately.
func (h *SyncHandler) EnqueueSync(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accountID := int64(c.QueryInt("account_id", 0))
	if accountID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "account_id is required",
		})
	}

	if ok := h.checkOwnership(c, accountID, userID); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "account doesn't belong to this user",
		})
	}

	err := queue.EnqueueSync(h.AsynqClient, queue.SyncAccountPayload{
		AccountID: accountID,
		JobType:   models.SyncJobTypeManual,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "error queueing sync",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "sync queued",
	})
}

func (h *SyncHandler) ListJobs(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accountID := int64(c.QueryInt("account_id", 0))
	limit := c.QueryInt("limit", 20)

	if accountID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "account_id is required",
		})
	}

	if ok := h.checkOwnership(c, accountID, userID); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "account doesn't belong to this user",
		})
	}

	jobs, err := h.engine.ListJobs(c.Context(), accountID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "unable to list sync jobs",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"jobs": jobs,
	})
}

// ListStuckJobs surfaces runs that never reached a terminal state.
func (h *SyncHandler) ListStuckJobs(c *fiber.Ctx) error {
	minutes := c.QueryInt("running_longer_than", 30)

	jobs, err := h.engine.StuckJobs(c.Context(), time.Duration(minutes)*time.Minute)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "unable to list stuck jobs",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"jobs": jobs,
	})
}

func (h *SyncHandler) checkOwnership(c *fiber.Ctx, accountID, userID int64) bool {
	accounts, err := h.accounts.List(c.Context(), userID)
	if err != nil {
		return false
	}
	for _, acc := range accounts {
		if acc.ID == accountID {
			return true
		}
	}
	return false
}
