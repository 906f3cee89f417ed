package amqp

import (
	"encoding/json"
	"time"
)

// Expense event actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ExpenseEventMessage announces an expense mutation. It carries only ids;
// consumers fetch current state from the database, so a stale or replayed
// event is harmless.
type ExpenseEventMessage struct {
	UserID    int64     `json:"user_id"`
	ExpenseID int64     `json:"expense_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEventMessage creates an event for one expense mutation.
func NewExpenseEventMessage(userID, expenseID int64, action string) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		UserID:    userID,
		ExpenseID: expenseID,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventMessageFromJSON creates a message from JSON bytes
func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
