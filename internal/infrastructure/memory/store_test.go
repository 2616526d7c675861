package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/catalog"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
)

var key = entity.StockKey{ProductID: "p1", WarehouseID: "w1", BatchNumber: "L1"}

func TestTxRunner_ConfirmaVisibleTrasExito(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	err := s.TxRunner().Run(ctx, func(movRepo repository.StockMovementRepository, recRepo repository.InventoryRecordRepository) error {
		rec, err := recRepo.GetOrCreate(ctx, key, nil)
		require.NoError(t, err)
		rec.Quantity = 10
		return recRepo.Update(ctx, rec, rec.Version)
	})
	require.NoError(t, err)

	rec, err := s.Records().Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(10), rec.Quantity)
	assert.Equal(t, int64(1), rec.Version)
}

func TestTxRunner_RevierteAnteError(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	boom := errors.New("boom")

	err := s.TxRunner().Run(ctx, func(movRepo repository.StockMovementRepository, recRepo repository.InventoryRecordRepository) error {
		_, err := recRepo.GetOrCreate(ctx, key, nil)
		require.NoError(t, err)
		require.NoError(t, movRepo.Create(ctx, &entity.StockMovement{ID: "m1", ProductID: key.ProductID}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	rec, err := s.Records().Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, rec)
	m, err := s.Movements().GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestTxRunner_ConfirmacionEnConflictoFalla(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	_, err := s.Records().GetOrCreate(ctx, key, nil)
	require.NoError(t, err)

	runner := s.TxRunner()
	err = runner.Run(ctx, func(_ repository.StockMovementRepository, recRepo repository.InventoryRecordRepository) error {
		stale, err := recRepo.Get(ctx, key)
		require.NoError(t, err)

		// Otro escritor confirma primero.
		require.NoError(t, runner.Run(ctx, func(_ repository.StockMovementRepository, other repository.InventoryRecordRepository) error {
			cur, err := other.Get(ctx, key)
			require.NoError(t, err)
			cur.Quantity = 5
			return other.Update(ctx, cur, cur.Version)
		}))

		stale.Quantity = 7
		return recRepo.Update(ctx, stale, stale.Version)
	})
	require.ErrorIs(t, err, domain.ErrConcurrentModification)

	rec, err := s.Records().Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(5), rec.Quantity)
}

func TestRecordRepo_UpdateConVersionIncorrecta(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	rec, err := s.Records().GetOrCreate(ctx, key, nil)
	require.NoError(t, err)

	rec.Quantity = 3
	err = s.Records().Update(ctx, rec, 4)
	var cm *domain.ConcurrentModificationError
	require.ErrorAs(t, err, &cm)
	assert.Equal(t, int64(4), cm.ExpectedVersion)
}

func TestMovementRepo_MarcaAplicadoUnaSolaVez(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	movs := s.Movements()
	require.NoError(t, movs.Create(ctx, &entity.StockMovement{ID: "m1", ApprovalState: entity.ApprovalDraft, CreatedAt: time.Now()}))

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, movs.MarkApplied(ctx, "m1", "admin", at))

	err := movs.MarkApplied(ctx, "m1", "admin", at)
	require.ErrorIs(t, err, domain.ErrAlreadyApplied)

	m, err := movs.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalApplied, m.ApprovalState)
	assert.Equal(t, "admin", m.ApprovedBy)
	require.NotNil(t, m.AppliedAt)
	assert.True(t, m.AppliedAt.Equal(at))
}

func TestMovementRepo_ListaRecientesPrimeroConFiltros(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	movs := s.Movements()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, movs.Create(ctx, &entity.StockMovement{
			ID:            id,
			ProductID:     "p1",
			WarehouseID:   "w1",
			ApprovalState: entity.ApprovalApplied,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, movs.Create(ctx, &entity.StockMovement{ID: "other", ProductID: "p2", CreatedAt: base}))

	list, err := movs.List(ctx, repository.MovementFilter{ProductID: "p1"})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{list[0].ID, list[1].ID, list[2].ID})

	page, err := movs.List(ctx, repository.MovementFilter{ProductID: "p1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)
}

func TestRecordRepo_ListaFiltraPorLote(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	_, err := s.Records().GetOrCreate(ctx, key, nil)
	require.NoError(t, err)
	_, err = s.Records().GetOrCreate(ctx, entity.StockKey{ProductID: "p1", WarehouseID: "w1"}, nil)
	require.NoError(t, err)

	noBatch := ""
	list, err := s.Records().List(ctx, repository.RecordFilter{ProductID: "p1", BatchNumber: &noBatch})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "", list[0].BatchNumber)

	all, err := s.Records().List(ctx, repository.RecordFilter{WarehouseID: "w1"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestLoadCatalog_CargaProductosYBodegas(t *testing.T) {
	s := memory.NewStore()
	s.LoadCatalog(&catalog.Catalog{
		Products:   []*entity.Product{{ID: "p-1", CompanyID: "c1", Name: "Arroz"}},
		Warehouses: []*entity.Warehouse{{ID: "w-1", CompanyID: "c1", Name: "Principal"}},
	})

	p, err := s.Products().GetByID(context.Background(), "p-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Arroz", p.Name)

	w, err := s.Warehouses().GetByID(context.Background(), "w-1")
	require.NoError(t, err)
	require.NotNil(t, w)

	missing, err := s.Products().GetByID(context.Background(), "p-2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
