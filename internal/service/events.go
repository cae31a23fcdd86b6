package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"chat_relay/internal/models"

	"github.com/go-playground/validator/v10"
)

// 客戶端送往伺服器的事件
const (
	EventSendMessage   = "send-message"
	EventTyping        = "typing"
	EventStopTyping    = "stop-typing"
	EventDeleteMessage = "delete-message"
	EventEditMessage   = "edit-message"
)

// 伺服器送往客戶端的事件
const (
	EventMessageHistory    = "message-history"
	EventReceiveMessage    = "receive-message"
	EventUserTyping        = "user-typing"
	EventUserStoppedTyping = "user-stopped-typing"
	EventMessageDeleted    = "message-deleted"
	EventMessageEdited     = "message-edited"
	EventConnectedClients  = "connected-clients"
)

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrMalformedEvent = errors.New("malformed event")
)

// Envelope 是每個 WebSocket 文字框架的外層格式
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outboundEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Command 是一個已通過驗證的客戶端事件
type Command interface {
	EventName() string
}

type SendMessage struct {
	Username string
	Avatar   string
	Body     string
}

type Typing struct {
	Username string
}

type StopTyping struct{}

type DeleteMessage struct {
	ID string
}

type EditMessage struct {
	ID         string
	NewMessage string
}

func (SendMessage) EventName() string   { return EventSendMessage }
func (Typing) EventName() string        { return EventTyping }
func (StopTyping) EventName() string    { return EventStopTyping }
func (DeleteMessage) EventName() string { return EventDeleteMessage }
func (EditMessage) EventName() string   { return EventEditMessage }

// 指標欄位讓 required 只檢查「有沒有送」，空字串仍然合法
type sendMessagePayload struct {
	Username *string `json:"username" validate:"required"`
	Avatar   *string `json:"avatar" validate:"required"`
	Message  *string `json:"message" validate:"required,maxbody"`
}

type typingPayload struct {
	Username *string `json:"username" validate:"required"`
}

type deleteMessagePayload struct {
	ID string `json:"id" validate:"required"`
}

type editMessagePayload struct {
	ID         string  `json:"id" validate:"required"`
	NewMessage *string `json:"newMessage" validate:"required,maxbody"`
}

// 伺服器送出的資料
type (
	TypingNotice struct {
		Username string `json:"username"`
	}
	DeletedNotice struct {
		ID string `json:"id"`
	}
	EditedNotice struct {
		ID         string `json:"id"`
		NewMessage string `json:"newMessage"`
	}
	CountNotice struct {
		Count int `json:"count"`
	}
)

// Decoder 解析並驗證客戶端事件
type Decoder struct {
	validate *validator.Validate
}

// NewDecoder 建立解碼器，maxBodyLength <= 0 表示不限制訊息長度（以字元計）
func NewDecoder(maxBodyLength int) *Decoder {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("maxbody", func(fl validator.FieldLevel) bool {
		return maxBodyLength <= 0 || utf8.RuneCountInString(fl.Field().String()) <= maxBodyLength
	})
	return &Decoder{validate: v}
}

// Decode 把一個框架轉成 Command；未知事件回傳 ErrUnknownEvent，格式錯誤回傳 ErrMalformedEvent
func (d *Decoder) Decode(frame []byte) (Command, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	switch env.Event {
	case EventSendMessage:
		var p sendMessagePayload
		if err := d.bind(env.Data, &p); err != nil {
			return nil, err
		}
		return SendMessage{Username: *p.Username, Avatar: *p.Avatar, Body: *p.Message}, nil

	case EventTyping:
		var p typingPayload
		if err := d.bind(env.Data, &p); err != nil {
			return nil, err
		}
		return Typing{Username: *p.Username}, nil

	case EventStopTyping:
		return StopTyping{}, nil

	case EventDeleteMessage:
		var p deleteMessagePayload
		if err := d.bind(env.Data, &p); err != nil {
			return nil, err
		}
		return DeleteMessage{ID: p.ID}, nil

	case EventEditMessage:
		var p editMessagePayload
		if err := d.bind(env.Data, &p); err != nil {
			return nil, err
		}
		return EditMessage{ID: p.ID, NewMessage: *p.NewMessage}, nil

	case "":
		return nil, fmt.Errorf("%w: missing event name", ErrMalformedEvent)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

func (d *Decoder) bind(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", ErrMalformedEvent)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if err := d.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	return nil
}

// encodeFrame 產生送給客戶端的框架
func encodeFrame(event string, data any) ([]byte, error) {
	return json.Marshal(outboundEnvelope{Event: event, Data: data})
}

// historyFrame 保證空歷史仍以 [] 送出
func historyFrame(history []models.Message) ([]byte, error) {
	if history == nil {
		history = []models.Message{}
	}
	return encodeFrame(EventMessageHistory, history)
}
