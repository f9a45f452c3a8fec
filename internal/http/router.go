package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（用于 pprof 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterTransferRoutes 注册转移调度相关路由
// 详细分发（按方法与子路径）在 TransferHandler.ServeHTTP 内完成
func (r *Router) RegisterTransferRoutes(h *TransferHandler) {
	r.HandleHandler("/camp/api/v1/transfers", h)
	r.HandleHandler("/camp/api/v1/transfers/", h)
}

// RegisterOccupancyRoutes 注册占用概览路由
func (r *Router) RegisterOccupancyRoutes(h *OccupancyHandler) {
	r.Handle("/camp/api/v1/occupancy/cards", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetCards(w, req)
	})
}
