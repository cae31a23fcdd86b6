package service

import (
	"encoding/json"
	"strings"
	"testing"

	"chat_relay/internal/models"

	"github.com/stretchr/testify/require"
)

func TestDecoder_Decode(t *testing.T) {
	d := NewDecoder(10)

	tests := []struct {
		name    string
		frame   string
		want    Command
		wantErr error
	}{
		{
			name:  "send message",
			frame: `{"event":"send-message","data":{"username":"alice","avatar":"a.png","message":"hi"}}`,
			want:  SendMessage{Username: "alice", Avatar: "a.png", Body: "hi"},
		},
		{
			name:  "send message with empty strings",
			frame: `{"event":"send-message","data":{"username":"","avatar":"","message":""}}`,
			want:  SendMessage{},
		},
		{
			name:    "send message missing avatar",
			frame:   `{"event":"send-message","data":{"username":"alice","message":"hi"}}`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "send message with wrong type",
			frame:   `{"event":"send-message","data":{"username":1,"avatar":"","message":"hi"}}`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "send message too long",
			frame:   `{"event":"send-message","data":{"username":"a","avatar":"","message":"01234567890"}}`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:  "body length counts characters",
			frame: `{"event":"send-message","data":{"username":"a","avatar":"","message":"你好你好你好你好你好"}}`,
			want:  SendMessage{Username: "a", Body: "你好你好你好你好你好"},
		},
		{
			name:    "send message without data",
			frame:   `{"event":"send-message"}`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "send message with null data",
			frame:   `{"event":"send-message","data":null}`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:  "typing",
			frame: `{"event":"typing","data":{"username":"bob"}}`,
			want:  Typing{Username: "bob"},
		},
		{
			name:    "typing without username",
			frame:   `{"event":"typing","data":{}}`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:  "stop typing ignores data",
			frame: `{"event":"stop-typing","data":"whatever"}`,
			want:  StopTyping{},
		},
		{
			name:  "delete message",
			frame: `{"event":"delete-message","data":{"id":"abc"}}`,
			want:  DeleteMessage{ID: "abc"},
		},
		{
			name:    "delete message with empty id",
			frame:   `{"event":"delete-message","data":{"id":""}}`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:  "edit message",
			frame: `{"event":"edit-message","data":{"id":"abc","newMessage":"fixed"}}`,
			want:  EditMessage{ID: "abc", NewMessage: "fixed"},
		},
		{
			name:    "edit message without new body",
			frame:   `{"event":"edit-message","data":{"id":"abc"}}`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "unknown event",
			frame:   `{"event":"join-room","data":{}}`,
			wantErr: ErrUnknownEvent,
		},
		{
			name:    "missing event name",
			frame:   `{"data":{}}`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "not json",
			frame:   `hello`,
			wantErr: ErrMalformedEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Decode([]byte(tt.frame))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDecoder_UnlimitedBody(t *testing.T) {
	d := NewDecoder(0)
	body := strings.Repeat("x", 100000)

	frame, err := json.Marshal(map[string]any{
		"event": EventSendMessage,
		"data":  map[string]string{"username": "a", "avatar": "", "message": body},
	})
	require.NoError(t, err)

	cmd, err := d.Decode(frame)
	require.NoError(t, err)
	require.Equal(t, body, cmd.(SendMessage).Body)
}

func TestEncodeFrame(t *testing.T) {
	req := require.New(t)

	frame, err := encodeFrame(EventUserStoppedTyping, nil)
	req.NoError(err)
	req.JSONEq(`{"event":"user-stopped-typing"}`, string(frame))

	frame, err = encodeFrame(EventConnectedClients, CountNotice{Count: 3})
	req.NoError(err)
	req.JSONEq(`{"event":"connected-clients","data":{"count":3}}`, string(frame))

	frame, err = historyFrame(nil)
	req.NoError(err)
	req.JSONEq(`{"event":"message-history","data":[]}`, string(frame))

	frame, err = historyFrame([]models.Message{{ID: "1", Body: "hi"}})
	req.NoError(err)
	var env Envelope
	req.NoError(json.Unmarshal(frame, &env))
	var history []models.Message
	req.NoError(json.Unmarshal(env.Data, &history))
	req.Len(history, 1)
	req.Equal("hi", history[0].Body)
}
