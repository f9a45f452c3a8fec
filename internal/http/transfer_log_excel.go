package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"campwise-data/internal/domain"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// TransferLogView 审计日志对外视图（JSON / Excel 共用）
type TransferLogView struct {
	LogID             string `json:"log_id"`
	PersonID          string `json:"person_id"`
	FromCampID        string `json:"from_camp_id,omitempty"`
	ToCampID          string `json:"to_camp_id"`
	FromBedID         string `json:"from_bed_id,omitempty"`
	ToBedID           string `json:"to_bed_id"`
	TransferDate      string `json:"transfer_date"`
	TransferTime      string `json:"transfer_time"`
	TransferRequestID string `json:"transfer_request_id"`
	TransferredBy     string `json:"transferred_by"`
	Notes             string `json:"notes,omitempty"`
	CreatedAt         string `json:"created_at"`
}

func toTransferLogView(e *domain.TransferLogEntry) TransferLogView {
	return TransferLogView{
		LogID:             e.LogID,
		PersonID:          e.PersonID,
		FromCampID:        e.FromCampID.String,
		ToCampID:          e.ToCampID,
		FromBedID:         e.FromBedID.String,
		ToBedID:           e.ToBedID,
		TransferDate:      e.TransferDate.Format("2006-01-02"),
		TransferTime:      e.TransferTime,
		TransferRequestID: e.TransferRequestID,
		TransferredBy:     e.TransferredBy,
		Notes:             e.Notes.String,
		CreatedAt:         e.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toTransferLogViews(entries []*domain.TransferLogEntry) []TransferLogView {
	views := make([]TransferLogView, 0, len(entries))
	for _, e := range entries {
		views = append(views, toTransferLogView(e))
	}
	return views
}

// TransferLogExportHeader 审计日志导出表头
var TransferLogExportHeader = []string{
	"Person ID",
	"From Camp",
	"To Camp",
	"From Bed",
	"To Bed",
	"Transfer Date",
	"Transfer Time",
	"Request ID",
	"Transferred By",
	"Notes",
	"Recorded At",
}

// GenerateTransferLogExport 生成审计日志导出 Excel 文件
// entries: 日志列表，为空则只生成表头
func GenerateTransferLogExport(entries []*domain.TransferLogEntry) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	sheetName := "Transfer Log"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	// 设置表头样式
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// 写入表头
	for col, header := range TransferLogExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	// 设置列宽
	columnWidths := []float64{
		38, // Person ID
		38, // From Camp
		38, // To Camp
		38, // From Bed
		38, // To Bed
		14, // Transfer Date
		12, // Transfer Time
		38, // Request ID
		20, // Transferred By
		30, // Notes
		20, // Recorded At
	}
	for i := range TransferLogExportHeader {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if i < len(columnWidths) && columnWidths[i] > 0 {
			if err := f.SetColWidth(sheetName, col, col, columnWidths[i]); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	// 写入数据（第1行是表头，数据从第2行开始）
	for rowIdx, entry := range entries {
		row := rowIdx + 2
		view := toTransferLogView(entry)
		values := []interface{}{
			view.PersonID,
			view.FromCampID,
			view.ToCampID,
			view.FromBedID,
			view.ToBedID,
			view.TransferDate,
			view.TransferTime,
			view.TransferRequestID,
			view.TransferredBy,
			view.Notes,
			view.CreatedAt,
		}
		for colIdx, value := range values {
			if value == nil || value == "" {
				continue
			}
			if err := setCellValue(f, sheetName, colIdx+1, row, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, colIdx+1, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	// Note: File must remain open during Write operation
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return buf.Bytes(), nil
}

// setCellValue 设置单元格值
func setCellValue(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

// ExportTransferLog 导出审计日志为 Excel 附件
func (h *TransferHandler) ExportTransferLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parseInt(q.Get("page"), 1)
	pageSize := parseInt(q.Get("pageSize"), 1000)

	entries, _, err := h.logs.ListTransferLogs(r.Context(), page, pageSize)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, Fail("list transfer logs failed"))
		return
	}

	data, err := GenerateTransferLogExport(entries)
	if err != nil {
		h.logger.Error("generate transfer log export failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("generate export failed"))
		return
	}

	filename := fmt.Sprintf("transfer_log_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("write export response failed", zap.Error(err))
	}
}
