package observability_test

import (
	"testing"
	"time"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/observability"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := observability.NewMetrics()
	b := observability.NewMetrics()

	a.IncrReceipt("settlement")

	assert.EqualValues(t, 1, a.GetCarteiraSnapshot().ReceiptsApplied)
	assert.EqualValues(t, 0, b.GetCarteiraSnapshot().ReceiptsApplied)
}

func TestMetrics_CarteiraSnapshot(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrReceipt("settlement")
	m.IncrReceipt("extension")
	m.IncrReceipt("reversal")
	m.IncrStatusTransition(domain.StatusAberto, domain.StatusPago)
	m.IncrStatusTransition(domain.StatusAberto, domain.StatusPago)
	m.IncrStoreError("registrar recebimento")
	m.IncrStoreError("carregar operação")
	m.IncrCacheHit("snapshot")
	m.IncrCacheHit("snapshot")
	m.IncrCacheHit("snapshot")
	m.IncrCacheMiss("snapshot")
	m.RecordRequestDuration("create_receipt", 5*time.Millisecond)

	snap := m.GetCarteiraSnapshot()
	assert.EqualValues(t, 1, snap.ReceiptsApplied)
	assert.EqualValues(t, 1, snap.ExtensionsApplied)
	assert.EqualValues(t, 1, snap.ReceiptsReversed)
	assert.Equal(t, map[string]int64{"aberto->pago": 2}, snap.StatusTransitions)
	assert.EqualValues(t, 2, snap.StoreErrors)
	assert.InDelta(t, 0.75, snap.SnapshotCacheRatio, 1e-9)
}

func TestMetrics_ObserveSnapshot(t *testing.T) {
	m := observability.NewMetrics()
	m.ObserveSnapshot(domain.Snapshot{
		ActiveCapital: domain.MustMoney("1500.50"),
		Distribution:  []domain.StatusSlice{{Status: domain.StatusAtrasado, Count: 4}},
	})

	families, err := m.Registry.Gather()
	assert.NoError(t, err)
	series := map[string]int{}
	for _, f := range families {
		series[f.GetName()] = len(f.GetMetric())
	}
	assert.Equal(t, 4, series["carteira_portfolio_value_brl"])
	assert.Equal(t, 1, series["carteira_portfolio_operations"])
}
