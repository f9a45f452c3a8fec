package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ExitEligibilityChecker exit_case 转移资格判定
// 离职/终止的认定依赖 HR 系统的纪律处分分类（自由文本），
// 因此作为外部接口消费，不在本服务内做字符串匹配。
type ExitEligibilityChecker interface {
	IsExitEligible(ctx context.Context, personID string) (bool, error)
}

// HRExitEligibilityResponse HR 系统响应
type HRExitEligibilityResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
	Data   struct {
		PersonID string `json:"person_id"`
		Eligible bool   `json:"eligible"`
	} `json:"data"`
}

// HRClient HR 系统 API 客户端
type HRClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewHRClient 创建 HR 客户端
func NewHRClient(baseURL, apiKey string, logger *zap.Logger) *HRClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("X-Api-Key", apiKey)
	}

	return &HRClient{
		httpClient: client,
		logger:     logger,
	}
}

var _ ExitEligibilityChecker = (*HRClient)(nil)

// IsExitEligible 查询人员是否具备 exit_case 转移资格
func (c *HRClient) IsExitEligible(ctx context.Context, personID string) (bool, error) {
	var out HRExitEligibilityResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/hr/api/v1/persons/%s/exit-eligibility", personID))
	if err != nil {
		return false, fmt.Errorf("hr exit-eligibility request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		c.logger.Warn("HR exit-eligibility returned non-200",
			zap.String("person_id", personID),
			zap.Int("status_code", resp.StatusCode()),
		)
		return false, fmt.Errorf("hr exit-eligibility status %d", resp.StatusCode())
	}
	if out.Status != 0 {
		return false, fmt.Errorf("hr exit-eligibility error: %s", out.Msg)
	}
	return out.Data.Eligible, nil
}

// StaticExitEligibility 内置 stub（HR_BASE_URL 未配置时使用；测试造数用）
type StaticExitEligibility map[string]bool

func (s StaticExitEligibility) IsExitEligible(_ context.Context, personID string) (bool, error) {
	return s[personID], nil
}
