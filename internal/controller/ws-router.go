package controller

import (
	"github.com/sharetube/camwall/internal/protocol"
	"github.com/sharetube/camwall/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())
	mux.OnError(c.reportError)

	wsrouter.Handle(mux, "alive", c.handleAlive)
	wsrouter.Handle(mux, protocol.TypeCommand, c.handleCommand)
	wsrouter.Handle(mux, protocol.TypeMedia, c.handleMedia)

	return mux
}
