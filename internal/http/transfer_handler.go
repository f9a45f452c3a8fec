package httpapi

import (
	"net/http"
	"strings"
	"time"

	"campwise-data/internal/domain"
	"campwise-data/internal/repository"
	"campwise-data/internal/service"

	"go.uber.org/zap"
)

// TransferHandler 转移调度 Handler（提交/分配/审批/派送/到达/取消/查询/导出）
type TransferHandler struct {
	transferService   service.TransferService
	allocationService service.AllocationService
	arrivalService    service.ArrivalService
	occupancyService  service.OccupancyService
	logs              repository.TransferLogsRepository
	logger            *zap.Logger
}

// NewTransferHandler 创建转移调度 Handler
func NewTransferHandler(
	transferService service.TransferService,
	allocationService service.AllocationService,
	arrivalService service.ArrivalService,
	occupancyService service.OccupancyService,
	logs repository.TransferLogsRepository,
	logger *zap.Logger,
) *TransferHandler {
	return &TransferHandler{
		transferService:   transferService,
		allocationService: allocationService,
		arrivalService:    arrivalService,
		occupancyService:  occupancyService,
		logs:              logs,
		logger:            logger,
	}
}

const transfersBasePath = "/camp/api/v1/transfers"

// ServeHTTP 实现 http.Handler 接口
func (h *TransferHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")

	// 路由分发
	switch {
	case path == transfersBasePath && r.Method == http.MethodGet:
		h.ListTransfers(w, r)
	case path == transfersBasePath && r.Method == http.MethodPost:
		h.SubmitTransfer(w, r)
	case path == transfersBasePath+"/export" && r.Method == http.MethodGet:
		h.ExportTransferLog(w, r)
	default:
		rest := strings.TrimPrefix(path, transfersBasePath+"/")
		if rest == path {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		parts := strings.SplitN(rest, "/", 2)
		requestID := parts[0]
		action := ""
		if len(parts) == 2 {
			action = parts[1]
		}
		h.dispatchByID(w, r, requestID, action)
	}
}

func (h *TransferHandler) dispatchByID(w http.ResponseWriter, r *http.Request, requestID, action string) {
	switch {
	case action == "" && r.Method == http.MethodGet:
		h.GetTransfer(w, r, requestID)
	case action == "log" && r.Method == http.MethodGet:
		h.GetTransferLog(w, r, requestID)
	case action == "allocate" && r.Method == http.MethodPost:
		h.AllocateBeds(w, r, requestID)
	case action == "approve" && r.Method == http.MethodPost:
		h.ApproveDispatch(w, r, requestID)
	case action == "dispatch" && r.Method == http.MethodPost:
		h.MarkDispatched(w, r, requestID)
	case action == "arrivals" && r.Method == http.MethodPost:
		h.ConfirmArrival(w, r, requestID)
	case action == "cancel" && r.Method == http.MethodPost:
		h.CancelRequest(w, r, requestID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ============================================
// 提交 / 查询
// ============================================

type submitTransferBody struct {
	SourceCampID          string   `json:"source_camp_id"`
	TargetCampID          string   `json:"target_camp_id"`
	PersonIDs             []string `json:"person_ids"`
	Reason                string   `json:"reason"`
	ScheduledDispatchDate string   `json:"scheduled_dispatch_date"` // "2006-01-02"
	ScheduledDispatchTime string   `json:"scheduled_dispatch_time"` // "HH:MM"
	RequestedBy           string   `json:"requested_by"`
}

func (h *TransferHandler) SubmitTransfer(w http.ResponseWriter, r *http.Request) {
	var body submitTransferBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	dispatchDate, err := time.Parse("2006-01-02", body.ScheduledDispatchDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("scheduled_dispatch_date must be YYYY-MM-DD"))
		return
	}

	resp, err := h.transferService.SubmitTransferRequest(r.Context(), service.SubmitTransferRequestInput{
		SourceCampID:          body.SourceCampID,
		TargetCampID:          body.TargetCampID,
		PersonIDs:             body.PersonIDs,
		Reason:                body.Reason,
		ScheduledDispatchDate: dispatchDate,
		ScheduledDispatchTime: body.ScheduledDispatchTime,
		RequestedBy:           body.RequestedBy,
		AsOf:                  time.Now(),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *TransferHandler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.transferService.ListTransferRequests(r.Context(), service.ListTransfersInput{
		Filters: repository.TransferFilters{
			Status:       q.Get("status"),
			SourceCampID: q.Get("source_camp_id"),
			TargetCampID: q.Get("target_camp_id"),
			PersonID:     q.Get("person_id"),
		},
		Page:     parseInt(q.Get("page"), 1),
		PageSize: parseInt(q.Get("pageSize"), 20),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	items := make([]any, 0, len(resp.Items))
	for _, req := range resp.Items {
		items = append(items, transferToJSON(req))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": resp.Total,
	}))
}

func (h *TransferHandler) GetTransfer(w http.ResponseWriter, r *http.Request, requestID string) {
	req, err := h.transferService.GetTransferRequest(r.Context(), requestID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(transferToJSON(req)))
}

func (h *TransferHandler) GetTransferLog(w http.ResponseWriter, r *http.Request, requestID string) {
	entries, err := h.logs.ListTransferLogsByRequest(r.Context(), requestID)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, Fail("list transfer logs failed"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(toTransferLogViews(entries)))
}

// ============================================
// 状态机动作
// ============================================

type actorBody struct {
	Actor string `json:"actor"`
}

func (h *TransferHandler) AllocateBeds(w http.ResponseWriter, r *http.Request, requestID string) {
	var body actorBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	resp, err := h.allocationService.AllocateBeds(r.Context(), service.AllocateBedsInput{
		RequestID:   requestID,
		AllocatedBy: body.Actor,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *TransferHandler) ApproveDispatch(w http.ResponseWriter, r *http.Request, requestID string) {
	var body actorBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	resp, err := h.transferService.ApproveDispatch(r.Context(), service.ApproveDispatchInput{
		RequestID:  requestID,
		ApprovedBy: body.Actor,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *TransferHandler) MarkDispatched(w http.ResponseWriter, r *http.Request, requestID string) {
	var body actorBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	resp, err := h.transferService.MarkDispatched(r.Context(), service.MarkDispatchedInput{
		RequestID:    requestID,
		DispatchedBy: body.Actor,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

type confirmArrivalBody struct {
	PersonID    string `json:"person_id"`
	ArrivalDate string `json:"arrival_date"` // "2006-01-02"
	ArrivalTime string `json:"arrival_time"` // "HH:MM"
	ConfirmedBy string `json:"confirmed_by"`
	Notes       string `json:"notes"`
}

func (h *TransferHandler) ConfirmArrival(w http.ResponseWriter, r *http.Request, requestID string) {
	var body confirmArrivalBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	arrivalDate, err := time.Parse("2006-01-02", body.ArrivalDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("arrival_date must be YYYY-MM-DD"))
		return
	}

	resp, err := h.arrivalService.ConfirmArrival(r.Context(), service.ConfirmArrivalInput{
		RequestID:   requestID,
		PersonID:    body.PersonID,
		ArrivalDate: arrivalDate,
		ArrivalTime: body.ArrivalTime,
		ConfirmedBy: body.ConfirmedBy,
		Notes:       body.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// 到达改变目标营地占用，尽力失效快照缓存
	req, gerr := h.transferService.GetTransferRequest(r.Context(), requestID)
	if gerr == nil {
		h.occupancyService.InvalidateCamp(r.Context(), req.TargetCampID)
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// 辅助函数：转换 TransferRequest 为 JSON
func transferToJSON(t *domain.TransferRequest) map[string]any {
	allocated := make(map[string]any, len(t.AllocatedBeds))
	for personID, assignment := range t.AllocatedBeds {
		allocated[personID] = map[string]any{
			"bed_id":       assignment.BedID,
			"is_temporary": assignment.IsTemporary,
		}
	}
	arrived := t.ArrivedPersonIDs
	if arrived == nil {
		arrived = []string{}
	}
	return map[string]any{
		"request_id":              t.RequestID,
		"source_camp_id":          t.SourceCampID,
		"target_camp_id":          t.TargetCampID,
		"person_ids":              t.PersonIDs,
		"reason":                  t.Reason,
		"scheduled_dispatch_date": t.ScheduledDispatchDate.Format("2006-01-02"),
		"scheduled_dispatch_time": t.ScheduledDispatchTime,
		"status":                  t.Status,
		"allocated_beds":          allocated,
		"arrived_person_ids":      arrived,
		"requested_by":            t.RequestedBy,
		"created_at":              t.CreatedAt.Format(time.RFC3339),
		"updated_at":              t.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *TransferHandler) CancelRequest(w http.ResponseWriter, r *http.Request, requestID string) {
	var body actorBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	resp, err := h.transferService.CancelRequest(r.Context(), service.CancelRequestInput{
		RequestID:   requestID,
		CancelledBy: body.Actor,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	req, gerr := h.transferService.GetTransferRequest(r.Context(), requestID)
	if gerr == nil {
		h.occupancyService.InvalidateCamp(r.Context(), req.TargetCampID)
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}
