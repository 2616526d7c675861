package ledger

import (
	"sort"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// ReplayResult compara el saldo almacenado contra la reproducción del libro.
type ReplayResult struct {
	Key        entity.StockKey
	Stored     int64
	Replayed   int64
	Applied    int // movimientos APPLIED considerados
	Drafts     int // movimientos DRAFT ignorados
	Consistent bool
}

// Replay suma los efectos de los movimientos APPLIED en orden de aplicación, desde cero.
// Los DRAFT no cuentan.
func Replay(movements []*entity.StockMovement) (quantity int64, applied int) {
	ordered := make([]*entity.StockMovement, 0, len(movements))
	for _, m := range movements {
		if m.IsApplied() {
			ordered = append(ordered, m)
		}
	}
	SortByApplication(ordered)
	for _, m := range ordered {
		quantity += m.SignedQuantity()
	}
	return quantity, len(ordered)
}

// Verify reproduce el libro de un registro y lo compara con su Quantity.
func Verify(key entity.StockKey, stored int64, movements []*entity.StockMovement) ReplayResult {
	replayed, applied := Replay(movements)
	return ReplayResult{
		Key:        key,
		Stored:     stored,
		Replayed:   replayed,
		Applied:    applied,
		Drafts:     len(movements) - applied,
		Consistent: replayed == stored,
	}
}

// SortByApplication ordena por AppliedAt, luego CreatedAt e ID para un orden total.
func SortByApplication(movements []*entity.StockMovement) {
	sort.SliceStable(movements, func(i, j int) bool {
		a, b := movements[i], movements[j]
		ta, tb := appliedAt(a), appliedAt(b)
		if !ta.Equal(tb) {
			return ta.Before(tb)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func appliedAt(m *entity.StockMovement) time.Time {
	if m.AppliedAt != nil {
		return *m.AppliedAt
	}
	return m.CreatedAt
}
