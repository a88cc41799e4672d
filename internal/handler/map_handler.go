package handler

import (
	"pengpeng/internal/apperr"
	"pengpeng/internal/middleware"
	"pengpeng/pkg/mapsearch"
	"pengpeng/pkg/response"

	"github.com/gin-gonic/gin"
)

type MapHandler struct {
	client *mapsearch.Client
}

func NewMapHandler(client *mapsearch.Client) *MapHandler {
	return &MapHandler{client: client}
}

// SearchLoc 以本人最近位置为中心检索地点
func (h *MapHandler) SearchLoc(c *gin.Context) {
	type req struct {
		Keyword string `json:"keyword" binding:"required"`
	}
	var r req
	if err := bindJSON(c, &r); err != nil {
		fail(c, err)
		return
	}
	user := middleware.GetUser(c)
	if user.LastLocation == nil {
		fail(c, apperr.ErrStaleLocation)
		return
	}
	lng, lat := user.LastLocation.Coordinates[0], user.LastLocation.Coordinates[1]
	places, err := h.client.Search(c.Request.Context(), r.Keyword, lng, lat)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, places)
}
