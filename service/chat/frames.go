package chat

import (
	"time"

	"FlashChat/tools/decode"
	"FlashChat/tools/errs"
)

// 客户端 -> 服务端
const (
	FramePing          = "ping"
	FrameTyping        = "typing"
	FrameWatchPresence = "watch_presence"
	FrameWatchTyping   = "watch_typing"
	FrameUnwatch       = "unwatch"
	FrameDelivered     = "delivered"
)

// 服务端 -> 客户端
const (
	EventHello        = "hello"
	EventPong         = "pong"
	EventMessage      = "message"
	EventConversation = "conversation"
	EventPresence     = "presence"
	EventTyping       = "typing"
	EventError        = "error"
)

type InFrame struct {
	Type            string `json:"type"`
	ConversationKey string `json:"conversationKey,omitempty"`
	UserID          string `json:"userId,omitempty"`
	MessageID       string `json:"messageId,omitempty"`
	Typing          bool   `json:"typing,omitempty"`
	Key             string `json:"key,omitempty"`
}

type OutFrame struct {
	Type string    `json:"type"`
	Op   string    `json:"op,omitempty"`
	ID   string    `json:"id,omitempty"`
	Data any       `json:"data,omitempty"`
	TS   time.Time `json:"ts"`
}

type errorBody struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// ParseFrameJSON 宽松解码，"typing":"true" 之类的写法也接受
func ParseFrameJSON(raw []byte) (*InFrame, error) {
	f, err := decode.JSON[InFrame](raw)
	if err != nil {
		return nil, errs.ErrValidation.WrapMsg("unmarshal frame failed", "err", err.Error())
	}
	if f.Type == "" {
		return nil, errs.ErrValidation.WrapMsg("frame type required")
	}
	return f, nil
}

func errorFrame(err error, now time.Time) OutFrame {
	body := errorBody{Code: errs.ServerInternalError, Msg: err.Error()}
	if ce := errs.AsCode(err); ce != nil {
		body.Code = ce.Code
		body.Msg = ce.Msg
	}
	return OutFrame{Type: EventError, Data: body, TS: now}
}
