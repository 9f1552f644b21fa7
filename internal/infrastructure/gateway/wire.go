package gateway

import (
	"encoding/json"

	"notemesh/internal/core/domain"
)

// userCountMessage tells every room member how many sessions are editing the
// note right now.
type userCountMessage struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// deltaMessage relays one client's edit to the room. The delta body is
// opaque to the server and forwarded byte for byte.
type deltaMessage struct {
	Type     string          `json:"type"`
	Delta    json.RawMessage `json:"delta"`
	ClientID domain.ClientID `json:"clientId"`
}

// clientMessage is what an editing client sends upstream.
type clientMessage struct {
	Delta    json.RawMessage `json:"delta"`
	ClientID domain.ClientID `json:"clientId"`
}

func encodeUserCount(count int) []byte {
	payload, _ := json.Marshal(userCountMessage{Type: "user_count", Count: count})
	return payload
}

func encodeDelta(delta json.RawMessage, clientID domain.ClientID) []byte {
	payload, _ := json.Marshal(deltaMessage{Type: "message", Delta: delta, ClientID: clientID})
	return payload
}
