package repository

import (
	"context"

	"campwise-data/internal/domain"
)

// TransferLogsRepository 转移审计日志接口
// 只追加：接口不提供 Update / Delete。
type TransferLogsRepository interface {
	AppendTransferLog(ctx context.Context, entry *domain.TransferLogEntry) (string, error)
	ListTransferLogsByRequest(ctx context.Context, requestID string) ([]*domain.TransferLogEntry, error)
	ListTransferLogsByPerson(ctx context.Context, personID string) ([]*domain.TransferLogEntry, error)
	// ListTransferLogs 全量按时间排序（导出用）
	ListTransferLogs(ctx context.Context, page, size int) ([]*domain.TransferLogEntry, int, error)
}
