package daemon

import (
	"encoding/json"
	"time"

	"github.com/matheus3301/rtlink/internal/bus"
	"github.com/matheus3301/rtlink/internal/dispatch"
)

// BridgeEvents returns handlers that republish every inbound server event on
// the bus as bus.Inbound(kind) with the raw payload.
func BridgeEvents(b *bus.Bus) dispatch.Handlers {
	publish := func(k dispatch.Kind) dispatch.Handler {
		kind := bus.Inbound(k.String())
		return func(payload json.RawMessage) {
			b.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
		}
	}
	return dispatch.Handlers{
		OnMessage:            publish(dispatch.Message),
		OnTyping:             publish(dispatch.Typing),
		OnUserStatus:         publish(dispatch.UserStatus),
		OnMessageStatus:      publish(dispatch.MessageStatus),
		OnConversationUpdate: publish(dispatch.ConversationUpdate),
		OnUserJoined:         publish(dispatch.UserJoined),
		OnUserLeft:           publish(dispatch.UserLeft),
		OnMessagesRead:       publish(dispatch.MessagesRead),
		OnMessageReceived:    publish(dispatch.MessageReceived),
		OnMessageDelivered:   publish(dispatch.MessageDelivered),
	}
}
