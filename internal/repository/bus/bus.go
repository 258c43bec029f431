// Package bus holds the contract shared by the Bus backends: best-effort
// publish/subscribe between live processes.
package bus

import "errors"

var ErrClosed = errors.New("bus closed")

type Message struct {
	Channel string
	Payload []byte
}
