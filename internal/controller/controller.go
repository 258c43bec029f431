package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sharetube/camwall/internal/platform/metrics"
	"github.com/sharetube/camwall/internal/protocol"
	"github.com/sharetube/camwall/internal/repository/connection"
	"github.com/sharetube/camwall/internal/service/receiver"
	"github.com/sharetube/camwall/pkg/validator"
	"github.com/sharetube/camwall/pkg/wsrouter"
)

type iScheduler interface {
	Report(context.Context, protocol.MediaReport) error
	Reload(ctx context.Context, deliver func(protocol.Load) error) error
}

type iReceiver interface {
	Accept(context.Context, protocol.Channel, protocol.Command) (receiver.Outcome, error)
	NextTS() int64
}

type iPublisher interface {
	Last() (protocol.State, bool)
}

type iDisplay interface {
	Attach(*websocket.Conn, connection.Role) (connection.Client, error)
	Detach(*websocket.Conn) error
	SendTo(*websocket.Conn, []byte) error
}

type Params struct {
	Scheduler iScheduler
	Receiver  iReceiver
	Publisher iPublisher
	Display   iDisplay
	Metrics   *metrics.Metrics
	// CmdRateLimit caps POST /cmd requests per client IP per minute. Zero disables it.
	CmdRateLimit int
	Logger       *slog.Logger
}

type controller struct {
	scheduler    iScheduler
	receiver     iReceiver
	publisher    iPublisher
	display      iDisplay
	metrics      *metrics.Metrics
	cmdRateLimit int
	upgrader     websocket.Upgrader
	validate     *validator.Validator
	wsmux        *wsrouter.WSRouter
	logger       *slog.Logger
}

func NewController(params *Params) *controller {
	c := &controller{
		scheduler:    params.Scheduler,
		receiver:     params.Receiver,
		publisher:    params.Publisher,
		display:      params.Display,
		metrics:      params.Metrics,
		cmdRateLimit: params.CmdRateLimit,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   params.Logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
