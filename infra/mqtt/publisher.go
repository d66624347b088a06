package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Message is a payload captured by MockPublisher.
type Message struct {
	ID      string
	Topic   string
	Payload []byte
}

// MockPublisher records published messages in memory.
type MockPublisher struct {
	mu       sync.Mutex
	Messages []Message
	Err      error
	seq      int
}

// Publish stores the JSON encoded payload or returns Err when set.
func (m *MockPublisher) Publish(topic string, payload any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	m.seq++
	id := fmt.Sprintf("mock-%d", m.seq)
	m.Messages = append(m.Messages, Message{ID: id, Topic: topic, Payload: body})
	return id, nil
}

// Disconnect is a no-op.
func (m *MockPublisher) Disconnect() {}

// Published returns a copy of the captured messages.
func (m *MockPublisher) Published() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.Messages))
	copy(out, m.Messages)
	return out
}
