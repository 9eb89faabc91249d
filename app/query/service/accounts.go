package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/canopy-network/explorerx/pkg/query"
	"github.com/canopy-network/explorerx/pkg/rpc"
)

// Account reads the live account state from the chain node.
func (s *Service) Account(ctx context.Context, address string) (*rpc.Account, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, query.Invalid("address is required")
	}
	if s.Chain == nil {
		return nil, query.Unavailable("chain rpc not configured", nil)
	}
	client, err := s.Chain.Client(ctx)
	if err != nil {
		return nil, err
	}

	acc, err := rpc.FetchAccount(ctx, client, address)
	if err != nil {
		var se *rpc.StatusError
		if errors.As(err, &se) && se.Code == http.StatusBadRequest {
			return nil, query.Invalid("invalid account address %q", address)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, query.Unavailable("chain rpc request failed", err)
	}
	return acc, nil
}
