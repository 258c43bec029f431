package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Command
		wantErr error
	}{
		{
			name: "next without payload",
			raw:  `{"type":"cmd","cmd":"next","ts":10}`,
			want: Command{Kind: CmdNext, Payload: NoPayload{}, TS: 10},
		},
		{
			name: "set mins",
			raw:  `{"type":"cmd","cmd":"set_mins","payload":2.5,"ts":11,"key":"s3"}`,
			want: Command{Kind: CmdSetMins, Payload: Minutes(2.5), TS: 11, Key: "s3"},
		},
		{
			name: "goto trims id",
			raw:  `{"type":"cmd","cmd":"goto","payload":" cam-b ","ts":12}`,
			want: Command{Kind: CmdGoto, Payload: CamRef("cam-b"), TS: 12},
		},
		{
			name: "ban without payload targets current cam",
			raw:  `{"type":"cmd","cmd":"ban","ts":13}`,
			want: Command{Kind: CmdBan, Payload: CamRef(""), TS: 13},
		},
		{
			name: "autoskip flag",
			raw:  `{"type":"cmd","cmd":"set_autoskip","payload":false,"ts":14}`,
			want: Command{Kind: CmdSetAutoskip, Payload: Flag(false), TS: 14},
		},
		{name: "state message", raw: `{"type":"state","ts":1}`, wantErr: ErrMalformed},
		{name: "missing ts", raw: `{"type":"cmd","cmd":"next"}`, wantErr: ErrMalformed},
		{name: "not json", raw: `{"type":`, wantErr: ErrMalformed},
		{name: "unknown kind", raw: `{"type":"cmd","cmd":"explode","ts":1}`, wantErr: ErrUnknownCommand},
		{name: "negative mins", raw: `{"type":"cmd","cmd":"set_mins","payload":-1,"ts":1}`, wantErr: ErrInvalidPayload},
		{name: "mins past one day", raw: `{"type":"cmd","cmd":"set_mins","payload":1e12,"ts":1}`, wantErr: ErrInvalidPayload},
		{name: "flag as string", raw: `{"type":"cmd","cmd":"set_hud","payload":"yes","ts":1}`, wantErr: ErrInvalidPayload},
		{name: "goto without id", raw: `{"type":"cmd","cmd":"goto","ts":1}`, wantErr: ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCommand([]byte(tt.raw))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeCommandRoundTrip(t *testing.T) {
	cmd, err := NewCommand(CmdSetFit, "contain", 99)
	require.NoError(t, err)
	cmd.Key = "k"

	raw, err := EncodeCommand(cmd)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"cmd","cmd":"set_fit","payload":"contain","ts":99,"key":"k"}`, string(raw))

	decoded, err := DecodeCommand(raw)
	require.NoError(t, err)
	assert.Equal(t, cmd, decoded)

	next, err := NewCommand(CmdNext, nil, 100)
	require.NoError(t, err)
	raw, err = EncodeCommand(next)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"cmd","cmd":"next","ts":100}`, string(raw))
}

func TestPeekType(t *testing.T) {
	typ, err := PeekType([]byte(`{"type":"state","idx":1}`))
	require.NoError(t, err)
	assert.Equal(t, TypeState, typ)

	_, err = PeekType([]byte(`[`))
	assert.ErrorIs(t, err, ErrMalformed)
}
