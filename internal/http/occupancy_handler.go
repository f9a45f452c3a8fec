package httpapi

import (
	"net/http"

	"campwise-data/internal/service"

	"go.uber.org/zap"
)

// OccupancyHandler 床位占用快照 Handler
type OccupancyHandler struct {
	occupancyService service.OccupancyService
	logger           *zap.Logger
}

// NewOccupancyHandler 创建占用快照 Handler
func NewOccupancyHandler(occupancyService service.OccupancyService, logger *zap.Logger) *OccupancyHandler {
	return &OccupancyHandler{occupancyService: occupancyService, logger: logger}
}

// GetCards 查询营地占用卡片（?camp_id= 过滤单营地）
func (h *OccupancyHandler) GetCards(w http.ResponseWriter, r *http.Request) {
	resp, err := h.occupancyService.GetOccupancyCards(r.Context(), service.OccupancyCardsInput{
		CampID: r.URL.Query().Get("camp_id"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}
