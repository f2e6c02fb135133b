package domain

import "fmt"

// Health is an immutable hit point pool. Current is always within [0, Maximum].
type Health struct {
	Current int `json:"current"`
	Maximum int `json:"maximum"`
}

func FullHealth(maximum int) Health {
	if maximum < 0 {
		maximum = 0
	}
	return Health{Current: maximum, Maximum: maximum}
}

func (h Health) IsDead() bool {
	return h.Current == 0
}

// TakeDamage returns h reduced by amount, floored at zero.
func (h Health) TakeDamage(amount int) Health {
	amount = max(amount, 0)
	h.Current = max(h.Current-amount, 0)
	return h
}

// Heal returns h increased by amount, capped at Maximum.
func (h Health) Heal(amount int) Health {
	amount = max(amount, 0)
	h.Current = min(h.Current+amount, h.Maximum)
	return h
}

func (h Health) String() string {
	return fmt.Sprintf("%d/%d", h.Current, h.Maximum)
}
