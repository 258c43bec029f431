package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamespaceNames(t *testing.T) {
	plain := NewNamespace("camwall", "")
	assert.Equal(t, []Channel{{Name: "camwall:state", Legacy: true}}, plain.Names(KeyState))

	keyed := NewNamespace("camwall", "s3cret")
	assert.Equal(t, []Channel{
		{Name: "camwall:bus:s3cret"},
		{Name: "camwall:bus", Legacy: true},
	}, keyed.BusChannels())

	ch, ok := keyed.Lookup(KeyCommand, "camwall:cmd")
	assert.True(t, ok)
	assert.True(t, ch.Legacy)

	_, ok = keyed.Lookup(KeyCommand, "camwall:cmd:other")
	assert.False(t, ok)
}

func TestNamespaceTrust(t *testing.T) {
	keyed := NewNamespace("camwall", "s3cret")
	names := keyed.BusChannels()

	assert.True(t, keyed.Trust(names[0], ""), "namespaced channel is trusted")
	assert.False(t, keyed.Trust(names[1], ""), "legacy message without key")
	assert.False(t, keyed.Trust(names[1], "wrong"), "legacy message with wrong key")
	assert.True(t, keyed.Trust(names[1], "s3cret"), "legacy message with matching key")

	plain := NewNamespace("camwall", "")
	assert.True(t, plain.Trust(plain.BusChannels()[0], "anything"))
}

func TestMediaReportValidate(t *testing.T) {
	assert.NoError(t, MediaReport{Event: MediaReady, Seq: 1}.Validate())
	assert.NoError(t, MediaReport{Event: MediaError, Reason: ReasonHLSFatal}.Validate())
	assert.ErrorIs(t, MediaReport{Event: MediaError, Reason: "boom"}.Validate(), ErrMalformed)
	assert.ErrorIs(t, MediaReport{Event: "started"}.Validate(), ErrMalformed)
}
