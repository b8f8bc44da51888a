package sessions

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mkch/paybot/internal/catalog"
	"github.com/mkch/paybot/pkg/enums"
)

// Action is what the caller must do after a transition.
type Action string

const (
	ActionIgnore        Action = "ignore"
	ActionIssueInvoice  Action = "issue_invoice"
	ActionPromptAmount  Action = "prompt_amount"
	ActionInvalidAmount Action = "invalid_amount"
	ActionCancelled     Action = "cancelled"
	ActionUnknownItem   Action = "unknown_item"
)

// Decision is the result of feeding one event to the machine.
type Decision struct {
	Action   Action
	Item     catalog.Item
	Amount   int
	MinPrice int
	State    enums.SessionState
}

// Session is the per-conversation record held while an amount is pending.
type Session struct {
	State          enums.SessionState
	SelectedItemID string
	UpdatedAt      time.Time
}

// PriceSource supplies the live minimum price for the variable item.
type PriceSource interface {
	MinPrice() int
}

// Machine drives the Idle -> AwaitingAmount -> Idle purchase flow. Sessions
// are keyed by conversation id; an entry exists only while AwaitingAmount.
type Machine struct {
	catalog *catalog.Catalog
	prices  PriceSource
	now     func() time.Time

	mu       sync.Mutex
	sessions map[int64]Session
}

func NewMachine(c *catalog.Catalog, prices PriceSource) *Machine {
	return &Machine{
		catalog:  c,
		prices:   prices,
		now:      time.Now,
		sessions: make(map[int64]Session),
	}
}

// State returns the conversation's current state.
func (m *Machine) State(conversationID int64) enums.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[conversationID]; ok {
		return s.State
	}
	return enums.SessionStateIdle
}

// Session returns the pending session, if any.
func (m *Machine) Session(conversationID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[conversationID]
	return s, ok
}

// Len reports how many conversations are awaiting an amount.
func (m *Machine) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// SelectItem handles a button tap on a catalog item. A new selection replaces
// any pending one.
func (m *Machine) SelectItem(conversationID int64, itemID string) Decision {
	item, ok := m.catalog.Get(itemID)
	if !ok {
		m.clear(conversationID)
		return Decision{Action: ActionUnknownItem, State: enums.SessionStateIdle}
	}
	if !item.Variable {
		m.clear(conversationID)
		return Decision{
			Action: ActionIssueInvoice,
			Item:   item,
			Amount: item.Price,
			State:  enums.SessionStateIdle,
		}
	}

	m.mu.Lock()
	m.sessions[conversationID] = Session{
		State:          enums.SessionStateAwaitingAmount,
		SelectedItemID: item.ID,
		UpdatedAt:      m.now(),
	}
	m.mu.Unlock()
	return Decision{
		Action:   ActionPromptAmount,
		Item:     item,
		MinPrice: m.prices.MinPrice(),
		State:    enums.SessionStateAwaitingAmount,
	}
}

// EnterAmount handles free text. Outside AwaitingAmount it is ignored.
// Unparsable or too-small amounts keep the session and ask again.
func (m *Machine) EnterAmount(conversationID int64, text string) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[conversationID]
	if !ok {
		return Decision{Action: ActionIgnore, State: enums.SessionStateIdle}
	}
	item, known := m.catalog.Get(session.SelectedItemID)
	if !known {
		delete(m.sessions, conversationID)
		return Decision{Action: ActionUnknownItem, State: enums.SessionStateIdle}
	}

	minPrice := m.prices.MinPrice()
	amount, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || amount < 1 || amount < minPrice {
		session.UpdatedAt = m.now()
		m.sessions[conversationID] = session
		return Decision{
			Action:   ActionInvalidAmount,
			Item:     item,
			MinPrice: minPrice,
			State:    enums.SessionStateAwaitingAmount,
		}
	}

	delete(m.sessions, conversationID)
	return Decision{
		Action:   ActionIssueInvoice,
		Item:     item,
		Amount:   amount,
		MinPrice: minPrice,
		State:    enums.SessionStateIdle,
	}
}

// Cancel discards a pending session. It is a no-op when Idle.
func (m *Machine) Cancel(conversationID int64) Decision {
	if !m.clear(conversationID) {
		return Decision{Action: ActionIgnore, State: enums.SessionStateIdle}
	}
	return Decision{Action: ActionCancelled, State: enums.SessionStateIdle}
}

// Expire drops sessions idle for longer than ttl and returns how many were removed.
func (m *Machine) Expire(ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *Machine) clear(conversationID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[conversationID]
	delete(m.sessions, conversationID)
	return ok
}
