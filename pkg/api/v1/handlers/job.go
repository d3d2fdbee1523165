package handlers

import (
	"errors"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/domainbrowser/searchjobs/internal/logger"
	"github.com/domainbrowser/searchjobs/internal/services"
	"github.com/domainbrowser/searchjobs/internal/types"
)

// JobHandler handles HTTP requests for search jobs
type JobHandler struct {
	gateway *services.Gateway
	status  *services.Status
}

// NewJobHandler creates a new job handler instance
func NewJobHandler(gateway *services.Gateway, status *services.Status) *JobHandler {
	return &JobHandler{
		gateway: gateway,
		status:  status,
	}
}

// SubmitSequence handles the request to start a sequence search
func (h *JobHandler) SubmitSequence(c *fiber.Ctx) error {
	var req types.SequenceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.InvalidInputResponse(ErrMsgInvalidReqBody))
	}

	jobID, err := h.gateway.SubmitSequence(c.Context(), &req)
	if err != nil {
		return submitError(c, err)
	}
	return c.Status(fiber.StatusAccepted).
		JSON(types.Success(types.SubmitResponse{JobID: jobID}))
}

// SubmitStructure handles the request to start a structure search
func (h *JobHandler) SubmitStructure(c *fiber.Ctx) error {
	var req types.StructureRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(types.InvalidInputResponse(ErrMsgInvalidReqBody))
	}

	jobID, err := h.gateway.SubmitStructure(c.Context(), &req)
	if err != nil {
		return submitError(c, err)
	}
	return c.Status(fiber.StatusAccepted).
		JSON(types.Success(types.SubmitResponse{JobID: jobID}))
}

// GetJob returns the status of a job, with its hits once completed
func (h *JobHandler) GetJob(c *fiber.Ctx) error {
	jobID := c.Params("id")

	resp, err := h.status.Resolve(c.Context(), jobID)
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).
			JSON(types.InvalidInputResponse(err.Error()))
	case errors.Is(err, types.ErrParse):
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ServerErrorResponse(ErrMsgParseFailed))
	case err != nil:
		logger.ErrorWithFields("Failed to resolve job status", map[string]interface{}{
			"job_id": jobID,
			"error":  err.Error(),
		})
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ServerErrorResponse(ErrMsgStatusFailed))
	}

	if resp.Status == types.JobStatusNotFound {
		return c.Status(fiber.StatusNotFound).
			JSON(types.NotFoundResponse(ErrMsgJobNotFound))
	}
	return c.JSON(types.Success(resp))
}

// submitError maps a submission failure to a response. Validation and
// lookup failures carry their message; anything else is logged and
// reported generically.
func submitError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).
			JSON(types.InvalidInputResponse(err.Error()))
	case errors.Is(err, types.ErrNotFound):
		return c.Status(fiber.StatusNotFound).
			JSON(types.NotFoundResponse(err.Error()))
	case errors.Is(err, types.ErrUpstreamFetch):
		logger.WarnWithFields(ErrMsgUpstreamFailure, map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusBadGateway).
			JSON(types.UpstreamErrorResponse(err.Error()))
	default:
		logger.ErrorWithFields(ErrMsgSubmitFailed, map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusInternalServerError).
			JSON(types.ServerErrorResponse(ErrMsgSubmitFailed))
	}
}
