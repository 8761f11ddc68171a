package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchCooldown is the minimum gap before the same phone may be matched again
const MatchCooldown = 12 * time.Hour

// Customer is created on a phone's first visit and never overwritten
type Customer struct {
	OwnerID    string    `json:"owner_id" db:"owner_id"`
	Phone      string    `json:"phone" db:"phone"`
	Name       string    `json:"name" db:"name"`
	IDImageURL string    `json:"id_image_url" db:"id_image_url"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Visit is one recorded customer visit. The newest visit per phone is the ledger entry
// the cooldown is checked against.
type Visit struct {
	ID            string          `json:"id" db:"id"`
	OwnerID       string          `json:"owner_id" db:"owner_id"`
	Phone         string          `json:"phone" db:"phone"`
	Name          string          `json:"name" db:"name"`
	IDImageURL    string          `json:"id_image_url" db:"id_image_url"`
	MatchAmount   decimal.Decimal `json:"match_amount" db:"match_amount"`
	MachineNumber string          `json:"machine_number" db:"machine_number"`
	Timestamp     time.Time       `json:"timestamp" db:"visited_at"`
	LastUsed      time.Time       `json:"last_used" db:"last_used"`
}

// InCooldown reports whether a visit at now would fall inside the cooldown of v.
// Exactly MatchCooldown later is allowed.
func (v *Visit) InCooldown(now time.Time) bool {
	return now.Sub(v.Timestamp) < MatchCooldown
}
