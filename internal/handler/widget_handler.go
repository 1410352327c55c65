package handler

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

// WidgetHandler serves the drag-and-drop upload page and its assets.
type WidgetHandler struct {
	assets fs.FS
	index  []byte
}

func NewWidgetHandler(assets fs.FS) (*WidgetHandler, error) {
	index, err := fs.ReadFile(assets, "index.html")
	if err != nil {
		return nil, err
	}
	return &WidgetHandler{assets: assets, index: index}, nil
}

func (h *WidgetHandler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", h.index)
}

func (h *WidgetHandler) Assets() http.FileSystem {
	return http.FS(h.assets)
}
