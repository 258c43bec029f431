package protocol

import "crypto/subtle"

const (
	KeyCommand  = "cmd"
	KeyState    = "state"
	KeyPlayer   = "player"
	KeyBans     = "bans"
	KeyFailures = "failures"

	busName = "bus"
)

// Channel is a bus channel or store key together with whether it is the
// unsuffixed legacy variant.
type Channel struct {
	Name   string
	Legacy bool
}

// Namespace derives channel and key names from a prefix and the optional shared secret.
type Namespace struct {
	prefix string
	secret string
}

func NewNamespace(prefix, secret string) Namespace {
	return Namespace{prefix: prefix, secret: secret}
}

func (n Namespace) Secret() string {
	return n.secret
}

func (n Namespace) Prefix() string {
	return n.prefix
}

// Names returns the authoritative name first and the legacy name second.
// Without a secret both collapse into a single legacy entry.
func (n Namespace) Names(name string) []Channel {
	legacy := Channel{Name: n.prefix + ":" + name, Legacy: true}
	if n.secret == "" {
		return []Channel{legacy}
	}

	return []Channel{{Name: legacy.Name + ":" + n.secret}, legacy}
}

func (n Namespace) BusChannels() []Channel {
	return n.Names(busName)
}

// Lookup finds the channel descriptor for a concrete name.
func (n Namespace) Lookup(kind, name string) (Channel, bool) {
	for _, ch := range n.Names(kind) {
		if ch.Name == name {
			return ch, true
		}
	}

	return Channel{}, false
}

// Trust reports whether a message carrying msgKey may be accepted from ch.
// Messages on the legacy channel must carry the secret when one is configured.
func (n Namespace) Trust(ch Channel, msgKey string) bool {
	if n.secret == "" || !ch.Legacy {
		return true
	}

	return subtle.ConstantTimeCompare([]byte(n.secret), []byte(msgKey)) == 1
}

func ChannelNames(chs []Channel) []string {
	names := make([]string, 0, len(chs))
	for _, ch := range chs {
		names = append(names, ch.Name)
	}

	return names
}
