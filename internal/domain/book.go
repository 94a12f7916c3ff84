package domain

import "time"

// BookSnapshot is a full projection of the order book, filled and open
// orders alike, in id order.
type BookSnapshot struct {
	Orders    []Order
	Timestamp time.Time
}

func (b *BookSnapshot) DeepCopy() *BookSnapshot {
	cp := &BookSnapshot{
		Orders:    make([]Order, len(b.Orders)),
		Timestamp: b.Timestamp,
	}
	copy(cp.Orders, b.Orders)
	return cp
}
