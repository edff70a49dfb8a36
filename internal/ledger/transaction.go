package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Transaction is a single extracted bookkeeping entry. Listings keep the server order.
type Transaction struct {
	ID          int64     `json:"id"`
	OccurredAt  Timestamp `json:"date"`
	Amount      Money     `json:"amount"`
	Vendor      string    `json:"vendor,omitempty"`
	Category    Category  `json:"category"`
	Description string    `json:"description,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`
}

// Summary mirrors the server-computed totals over all transactions
type Summary struct {
	TotalExpenses    Money `json:"total_expenses"`
	TotalIncome      Money `json:"total_income"`
	Net              Money `json:"net"`
	TransactionCount int   `json:"transaction_count"`
}

// CategoryTotal is one row of the per-category rollup
type CategoryTotal struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
	Total    Money    `json:"total"`
}

// Sample describes a demo document that can be added without a backend round trip
type Sample struct {
	Name        string
	Description string
	Category    Category
	Amount      string // display amount, e.g. "$1,245.00"
}

// Money is a currency amount in cents. The backend speaks decimal numbers.
type Money struct {
	Cents int64
}

// Dollars returns the amount as a float for display purposes
func (m Money) Dollars() float64 {
	return float64(m.Cents) / 100.0
}

// String formats the amount as "$1,234.56"
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), cents%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(m.Dollars(), 'f', 2, 64)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		m.Cents = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decoding amount: %w", err)
	}
	m.Cents = int64(math.Round(f * 100))
	return nil
}

// ParseDisplayAmount converts amounts such as "$1,245.00" or "45.67" to Money
func ParseDisplayAmount(s string) (Money, error) {
	clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	if clean == "" {
		return Money{}, fmt.Errorf("invalid amount %q", s)
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{Cents: int64(math.Round(f * 100))}, nil
}

// Timestamp is an optional point in time. The backend emits ISO 8601 without a zone.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Valid reports whether the timestamp is present
func (t Timestamp) Valid() bool {
	return !t.IsZero()
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
