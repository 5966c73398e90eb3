package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kjlinux/pourier-back/internal/domain"
	"go.uber.org/zap"
)

// HTTPGateway talks to the processor's authorize endpoint over JSON.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPGateway(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (g *HTTPGateway) Authorize(ctx context.Context, req AuthorizationRequest) (*AuthorizationResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal authorization request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/authorize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build authorization request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.logger.Error("Payment gateway unreachable",
			zap.String("order_id", req.OrderID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		g.logger.Error("Payment gateway error response",
			zap.String("order_id", req.OrderID),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: gateway returned %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}

	var result AuthorizationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: malformed gateway response", domain.ErrGatewayUnavailable)
	}
	switch result.Status {
	case StatusSucceeded, StatusDeclined, StatusPendingConfirmation:
	default:
		return nil, fmt.Errorf("%w: unknown authorization status %q", domain.ErrGatewayUnavailable, result.Status)
	}
	return &result, nil
}
