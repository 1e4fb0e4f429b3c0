package net

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseJoinLink(t *testing.T) {
	tests := []struct {
		name     string
		link     string
		endpoint string
		room     string
		wantErr  bool
	}{
		{name: "host and room", link: "canvasboard://10.0.0.5:8080/sketch", endpoint: "ws://10.0.0.5:8080", room: "sketch"},
		{name: "trailing slash", link: "canvasboard://relay:9000/team/", endpoint: "ws://relay:9000", room: "team"},
		{name: "wrong scheme", link: "ws://relay:9000/team", wantErr: true},
		{name: "no room", link: "canvasboard://relay:9000", wantErr: true},
		{name: "nested room", link: "canvasboard://relay:9000/a/b", wantErr: true},
		{name: "no host", link: "canvasboard:///room", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint, room, err := ParseJoinLink(tt.link)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidLink)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.endpoint, endpoint)
			require.Equal(t, tt.room, room)
		})
	}
}

func TestJoinLink_RoundTrip(t *testing.T) {
	link, err := JoinLink("ws://10.0.0.5:8080", "sketch")
	require.NoError(t, err)
	require.Equal(t, "canvasboard://10.0.0.5:8080/sketch", link)

	endpoint, room, err := ParseJoinLink(link)
	require.NoError(t, err)
	require.Equal(t, "ws://10.0.0.5:8080", endpoint)
	require.Equal(t, "sketch", room)

	_, err = JoinLink("not a url", "sketch")
	require.ErrorIs(t, err, ErrInvalidLink)
}

func TestRoomURL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		room     string
		want     string
		wantErr  bool
	}{
		{name: "bare endpoint", endpoint: "ws://localhost:8080", room: "default-room", want: "ws://localhost:8080?roomId=default-room"},
		{name: "keeps existing query", endpoint: "wss://relay.example/ws?v=2", room: "r1", want: "wss://relay.example/ws?roomId=r1&v=2"},
		{name: "escapes room", endpoint: "ws://h:1", room: "a b&c", want: "ws://h:1?roomId=a+b%26c"},
		{name: "invalid endpoint", endpoint: "ws://[::1", room: "r", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RoomURL(tt.endpoint, tt.room)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
