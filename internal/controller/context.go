package controller

import (
	"context"

	"github.com/sharetube/camwall/internal/repository/connection"
)

type contextKey int

const (
	clientCtxKey contextKey = iota
)

func (c controller) getClientFromCtx(ctx context.Context) connection.Client {
	client, ok := ctx.Value(clientCtxKey).(connection.Client)
	if !ok {
		return connection.Client{}
	}

	return client
}
