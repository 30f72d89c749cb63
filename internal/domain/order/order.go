// Package order holds order records, their status lifecycle and display helpers.
package order

import (
	"strconv"
	"time"
)

// Status is an order's fulfilment state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// StatusSequence is the enumerated set of statuses in display order.
var StatusSequence = []Status{
	StatusPending,
	StatusConfirmed,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

var statusLabels = map[Status]string{
	StatusPending:    "접수 대기",
	StatusConfirmed:  "주문 확정",
	StatusInProgress: "제작 중",
	StatusCompleted:  "제작 완료",
	StatusCancelled:  "취소됨",
}

// ParseStatus returns the status named s if it is part of the sequence.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, st.Valid()
}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label is the buyer-facing name of the status.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// IsTerminal reports whether no further work happens on the order.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Request is the finalized configuration handed to the submission gateway.
type Request struct {
	BuyerID    string    `json:"user_id" db:"user_id"`
	SizeID     string    `json:"size_id" db:"size_id"`
	ResinID    string    `json:"resin_id" db:"resin_id"`
	WoodID     string    `json:"wood_id" db:"wood_id"`
	LegID      string    `json:"leg_id" db:"leg_id"`
	TotalPrice int64     `json:"total_price" db:"total_price"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Order is a persisted order row.
type Order struct {
	ID         string    `json:"id" db:"id"`
	BuyerID    string    `json:"user_id" db:"user_id"`
	SizeID     string    `json:"size_id" db:"size_id"`
	ResinID    string    `json:"resin_id" db:"resin_id"`
	WoodID     string    `json:"wood_id" db:"wood_id"`
	LegID      string    `json:"leg_id" db:"leg_id"`
	TotalPrice int64     `json:"total_price" db:"total_price"`
	Status     Status    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Buyer identifies who placed an order.
type Buyer struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// DisplayName prefers the buyer's name and falls back to the email.
func (b Buyer) DisplayName() string {
	if b.Name != "" {
		return b.Name
	}
	return b.Email
}

// Profile is the public profile row of a buyer.
type Profile struct {
	FullName string `json:"full_name" db:"full_name"`
	Email    string `json:"email" db:"email"`
}

// SizeRef, SwatchRef and LabelRef are the joined option columns shown in order lists.
type SizeRef struct {
	Label string `json:"label" db:"label"`
	Size  string `json:"size" db:"size"`
}

type SwatchRef struct {
	Label string `json:"label" db:"label"`
	Hex   string `json:"hex" db:"hex"`
}

type LabelRef struct {
	Label string `json:"label" db:"label"`
}

// View is an order joined with its option labels, as shown in history and admin lists.
type View struct {
	ID         string     `json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	Status     Status     `json:"status"`
	TotalPrice int64      `json:"total_price"`
	UserID     string     `json:"user_id,omitempty"`
	Size       *SizeRef   `json:"size"`
	Resin      *SwatchRef `json:"resin"`
	Wood       *LabelRef  `json:"wood"`
	Leg        *LabelRef  `json:"leg"`
	Profile    *Profile   `json:"profile,omitempty"`
}

// Summary is the rendered configuration sent in notifications.
type Summary struct {
	Size                string `json:"size"`
	Resin               string `json:"resin"`
	Wood                string `json:"wood"`
	Leg                 string `json:"leg"`
	TotalPriceFormatted string `json:"totalPrice"`
}

// FormatKRW renders n with thousands separators and the won suffix, e.g. "2,100,000원".
func FormatKRW(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)

	out := make([]byte, 0, len(digits)+len(digits)/3+4)
	if neg {
		out = append(out, '-')
	}
	for i := 0; i < len(digits); i++ {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	return string(out) + "원"
}

// Notification is what the dispatcher needs to announce a new order.
type Notification struct {
	OrderID    string  `json:"orderId"`
	BuyerEmail string  `json:"userEmail,omitempty"`
	BuyerName  string  `json:"userName,omitempty"`
	Summary    Summary `json:"summary"`
}
