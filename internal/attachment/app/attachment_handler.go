package app

import (
	"context"
	"time"

	"chat_sync_service/internal/attachment/domain"
	errprocess "chat_sync_service/pkg/err"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const requestTimeout = 30 * time.Second

// AttachmentHandler REST surface of the attachment service
type AttachmentHandler struct {
	Usecase AttachmentUseCase
}

// NewAttachmentHandler create AttachmentHandler
func NewAttachmentHandler(usecase AttachmentUseCase) *AttachmentHandler {
	return &AttachmentHandler{Usecase: usecase}
}

func fail(c *fiber.Ctx, err error) error {
	status := errprocess.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		logger.Log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": errprocess.Public(err)})
}

// Upload store a file
// @Summary Upload attachment
// @Tags Attachments
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "file to store"
// @Success 201 {object} domain.AttachmentView
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /attachments [post]
func (h *AttachmentHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fail(c, errprocess.Validation("file field required"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return fail(c, errprocess.Internal(err, "open upload"))
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	view, err := h.Usecase.Upload(ctx, domain.UploadInput{
		OwnerID:     middlewares.UserID(c),
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get(fiber.HeaderContentType),
		Size:        fileHeader.Size,
		File:        file,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// Get presigned urls of a stored file
// @Summary Get attachment
// @Tags Attachments
// @Produce json
// @Param id path string true "attachment id"
// @Success 200 {object} domain.AttachmentView
// @Failure 404 {object} map[string]string
// @Router /attachments/{id} [get]
func (h *AttachmentHandler) Get(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	view, err := h.Usecase.Get(ctx, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(view)
}
