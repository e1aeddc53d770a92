package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quizapi/internal/services"
	"github.com/charlesng35/quizapi/pkg/response"
)

// ImageHandler records image metadata. File bytes are uploaded out of band.
type ImageHandler struct {
	svc *services.ImageService
}

func NewImageHandler(svc *services.ImageService) *ImageHandler {
	return &ImageHandler{svc: svc}
}

type createImageRequest struct {
	FileName    string `json:"file_name" validate:"required,notblank,max=255"`
	ContentType string `json:"content_type" validate:"required,max=100,imagetype"`
	Size        int64  `json:"size" validate:"required,gt=0"`
	Path        string `json:"path" validate:"omitempty,max=1024"`
}

// GET /api/images/:imageID
func (h *ImageHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "imageID")
	if !ok {
		return
	}

	image, err := h.svc.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, image)
}

// POST /api/images
func (h *ImageHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req createImageRequest
	if !bindAndValidate(c, &req) {
		return
	}

	image, err := h.svc.Create(requestContext(c), actor, services.CreateImageInput{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Size:        req.Size,
		Path:        req.Path,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, image)
}

// DELETE /api/images/:imageID
func (h *ImageHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "imageID")
	if !ok {
		return
	}

	if err := h.svc.Delete(requestContext(c), actor, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
