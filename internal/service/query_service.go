package service

import (
	"context"
	"errors"
	"strings"

	"insta-iq-go/internal/config"
	"insta-iq-go/pkg/errs"
	"insta-iq-go/pkg/langflow"
	"insta-iq-go/pkg/log"
)

// QueryService 把自然语言问题转发给查询网关。
type QueryService interface {
	Query(ctx context.Context, query string) (*langflow.Response, error)
}

type queryService struct {
	cfg     *config.Config
	gateway langflow.Client
}

// NewQueryService 创建一个新的 QueryService 实例。
func NewQueryService(cfg *config.Config, gateway langflow.Client) QueryService {
	return &queryService{cfg: cfg, gateway: gateway}
}

// Query 校验输入和配置后调用网关，并把网关的哨兵错误翻译为错误类别。
func (s *queryService) Query(ctx context.Context, query string) (*langflow.Response, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errs.InvalidInput("Query string is required.")
	}
	if err := s.cfg.ValidateQuery(); err != nil {
		return nil, err
	}

	resp, err := s.gateway.Run(ctx, query)
	if err != nil {
		log.Errorf("[QueryService] 查询失败: %v", err)
		return nil, translateGatewayError(err)
	}
	log.Infof("[QueryService] 查询成功, answer_len: %d", len(resp.Text))
	return resp, nil
}

func translateGatewayError(err error) error {
	switch {
	case errors.Is(err, langflow.ErrEmptyQuery):
		return errs.InvalidInput("Query string is required.")
	case errors.Is(err, langflow.ErrRequestFailed):
		return errs.Runtimef(err, "An error occurred while performing the vector search")
	case errors.Is(err, langflow.ErrInvalidResponse), errors.Is(err, langflow.ErrEmptyAnswer):
		return errs.Runtime("The response format is invalid or does not contain the expected 'message' field.", err)
	default:
		return err
	}
}
