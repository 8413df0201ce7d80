package meet

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"meet-importer/core/logger"
	"meet-importer/core/phase"
	"meet-importer/feature/meet/commit"
)

// Handler handles HTTP requests for meet imports.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the meet import routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/meets")
	group.Post("/import", h.HandleImport)
	group.Post("/:code/commit", h.HandleCommit)
	group.Get("/:code/status", h.HandleStatus)
	group.Get("/:code/artifacts", h.HandleArtifacts)
}

// HandleImport parses an uploaded result document and runs the resolution
// phases.
// @Summary Import Meet Document
// @Description Parse a raw meet result document and run the resolution phases.
// @Tags meets
// @Accept json
// @Produce json
// @Success 200 {object} ImportReport "Import Report"
// @Failure 422 {object} map[string]string "Malformed Document"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /meets/import [post]
func (h *Handler) HandleImport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.Import(c.Context(), c.Body())
	if err != nil {
		status := fiber.StatusInternalServerError
		var malformed *phase.MalformedSourceError
		if errors.As(err, &malformed) {
			status = fiber.StatusUnprocessableEntity
		}
		l.Error("Import failed", zap.Error(err))
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(report)
}

// HandleCommit commits a previously imported document.
// @Summary Commit Meet Document
// @Description Atomically commit the resolved entities and staged results of a document.
// @Tags meets
// @Accept json
// @Produce json
// @Param code path string true "Document Code (e.g. '24RIC01')"
// @Success 200 {object} commit.Summary "Commit Summary"
// @Failure 409 {object} map[string]string "Preconditions Not Met or Validation Failure"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /meets/{code}/commit [post]
func (h *Handler) HandleCommit(c *fiber.Ctx) error {
	code := c.Params("code")
	l := logger.WithRayID(h.service.logger, c)

	summary, err := h.service.Commit(c.Context(), code)
	if err != nil {
		status := fiber.StatusInternalServerError
		var validation *phase.PersistenceValidationError
		var precondition *commit.PreconditionError
		if errors.As(err, &validation) || errors.As(err, &precondition) {
			status = fiber.StatusConflict
		}
		l.Error("Commit failed", zap.String("code", code), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(summary)
}

// HandleStatus reports the pipeline state of a document.
// @Summary Get Meet Import Status
// @Description Report which phase artifacts exist for a document and how many rows are staged.
// @Tags meets
// @Accept json
// @Produce json
// @Param code path string true "Document Code (e.g. '24RIC01')"
// @Success 200 {object} StatusReport "Status Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /meets/{code}/status [get]
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	code := c.Params("code")
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.Status(c.Context(), code)
	if err != nil {
		l.Error("Status check failed", zap.String("code", code), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(report)
}

// HandleArtifacts returns the envelope headers of every solved phase.
// @Summary List Phase Artifacts
// @Description List the latest artifact envelope per solved phase of a document.
// @Tags meets
// @Accept json
// @Produce json
// @Param code path string true "Document Code (e.g. '24RIC01')"
// @Success 200 {array} ArtifactInfo "Artifact Envelopes"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /meets/{code}/artifacts [get]
func (h *Handler) HandleArtifacts(c *fiber.Ctx) error {
	code := c.Params("code")
	l := logger.WithRayID(h.service.logger, c)

	artifacts, err := h.service.Artifacts(c.Context(), code)
	if err != nil {
		l.Error("Artifact listing failed", zap.String("code", code), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(artifacts)
}
