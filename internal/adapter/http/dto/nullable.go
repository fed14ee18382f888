package dto

import (
	"encoding/json"

	"github.com/iho/budgetledger/internal/domain"
)

// Nullable distinguishes an absent JSON field from an explicit null.
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// UnmarshalJSON is only called for keys present in the document.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Valid = false
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// Optional converts to a patch field where null clears the value.
func (n Nullable[T]) Optional() domain.Optional[*T] {
	if !n.Set {
		return domain.Optional[*T]{}
	}
	if !n.Valid {
		return domain.Some[*T](nil)
	}
	v := n.Value
	return domain.Some(&v)
}

func optional[T any](p *T) domain.Optional[T] {
	if p == nil {
		return domain.Optional[T]{}
	}
	return domain.Some(*p)
}
