package handler

import (
	fulfilmentapp "github.com/fulfildesk/backend/internal/application/fulfilment"
	"github.com/gin-gonic/gin"
)

// AttachmentHandler handles file upload and download endpoints.
// File bytes never pass through the API: clients use presigned URLs.
type AttachmentHandler struct {
	BaseHandler
	attachmentService *fulfilmentapp.AttachmentService
}

// NewAttachmentHandler creates a new AttachmentHandler
func NewAttachmentHandler(attachmentService *fulfilmentapp.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
	}
}

// RequestUpload godoc
// @Summary      Request an upload URL
// @Description  Creates an unlinked attachment and returns a presigned PUT URL. Unlinked files are purged after the orphan TTL.
// @Tags         attachments
// @Accept       json
// @Produce      json
// @Param        request body fulfilmentapp.RequestUploadRequest true "File metadata"
// @Success      201 {object} dto.Response{data=fulfilmentapp.RequestUploadResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /attachments [post]
func (h *AttachmentHandler) RequestUpload(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req fulfilmentapp.RequestUploadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.attachmentService.RequestUpload(c.Request.Context(), p, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Get godoc
// @Summary      Get attachment metadata
// @Tags         attachments
// @Produce      json
// @Param        id path string true "Attachment ID" format(uuid)
// @Success      200 {object} dto.Response{data=fulfilmentapp.AttachmentResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /attachments/{id} [get]
func (h *AttachmentHandler) Get(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := h.attachmentService.Get(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Download godoc
// @Summary      Get a download URL
// @Description  Readers of the linked order may download; the uploader only while the file is unlinked
// @Tags         attachments
// @Produce      json
// @Param        id path string true "Attachment ID" format(uuid)
// @Success      200 {object} dto.Response{data=fulfilmentapp.DownloadURLResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /attachments/{id}/download [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := h.attachmentService.DownloadURL(c.Request.Context(), p, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListByOrder godoc
// @Summary      List an order's files
// @Tags         attachments
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]fulfilmentapp.AttachmentResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/attachments [get]
func (h *AttachmentHandler) ListByOrder(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := h.attachmentService.ListByOrder(c.Request.Context(), p, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
