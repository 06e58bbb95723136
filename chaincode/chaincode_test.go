package main

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCollector(t *testing.T) {
	stub, ctx, sc := setupLedger(t)

	ctx.as("cooperative", "COOP-1")
	runTx(stub, baseTime, func() {
		collector, err := sc.RegisterCollector(ctx, "COL-1", "COOP-1", "sha256:secret")
		require.NoError(t, err)
		assert.Equal(t, CollectorActive, collector.Status)
		assert.Empty(t, collector.CredentialHash, "registration response must not echo the credential")
	})

	// Duplicate id is a conflict.
	runTx(stub, baseTime, func() {
		_, err := sc.RegisterCollector(ctx, "COL-1", "COOP-2", "sha256:other")
		var lerr *Error
		require.True(t, errors.As(err, &lerr))
		assert.Equal(t, KindConflict, lerr.Kind)
	})

	// Collectors cannot register collectors.
	ctx.as("collector", "COL-9")
	runTx(stub, baseTime, func() {
		_, err := sc.RegisterCollector(ctx, "COL-2", "COOP-1", "")
		var lerr *Error
		require.True(t, errors.As(err, &lerr))
		assert.Equal(t, KindAuthorization, lerr.Kind)
	})
}

func TestCreateBatchHappyPath(t *testing.T) {
	stub, ctx, sc := setupLedger(t)
	registerCollector(t, stub, ctx, sc, "COL-1")

	batch := createBatch(t, stub, ctx, sc, "COL-1", 10, baseTime)

	assert.Equal(t, BatchCollected, batch.Status)
	assert.Equal(t, "WG-KERALA-01", batch.HarvestZoneID)
	assert.Equal(t, "COL-1", batch.CurrentCustodian)
	require.Len(t, batch.CustodyChain, 1)
	assert.Equal(t, "collected", batch.CustodyChain[0].Action)
	assert.NotEmpty(t, batch.ProvenanceCode)

	stored, err := sc.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.ID, stored.ID)
}

func TestCreateBatchRequiresCollectorRole(t *testing.T) {
	stub, ctx, sc := setupLedger(t)

	ctx.as("lab", "LAB-1")
	runTx(stub, baseTime, func() {
		_, err := sc.CreateBatch(ctx, "ASHWAGANDHA", 10, "kg", 9.0, 76.0, "2025-11-15", "wild", "")
		var lerr *Error
		require.True(t, errors.As(err, &lerr))
		assert.Equal(t, KindAuthorization, lerr.Kind)
		assert.Equal(t, CodeUnauthorizedRole, lerr.Code)
	})
}

func TestCreateBatchRejectsInactiveCollector(t *testing.T) {
	stub, ctx, sc := setupLedger(t)
	registerCollector(t, stub, ctx, sc, "COL-1")

	ctx.as("regulator", "REG-1")
	runTx(stub, baseTime, func() {
		require.NoError(t, sc.SetCollectorStatus(ctx, "COL-1", CollectorInactive))
	})

	ctx.as("collector", "COL-1")
	runTx(stub, baseTime, func() {
		_, err := sc.CreateBatch(ctx, "ASHWAGANDHA", 10, "kg", 9.0, 76.0, "2025-11-15", "wild", "")
		var lerr *Error
		require.True(t, errors.As(err, &lerr))
		assert.Equal(t, CodeInactiveCollector, lerr.Code)
	})
}

func TestCreateBatchGateOrdering(t *testing.T) {
	stub, ctx, sc := setupLedger(t)
	registerCollector(t, stub, ctx, sc, "COL-1")
	ctx.as("collector", "COL-1")

	// Point outside every zone, date also out of season: the location
	// gate runs first and wins.
	runTx(stub, baseTime, func() {
		_, err := sc.CreateBatch(ctx, "ASHWAGANDHA", 10, "kg", 28.6, 77.2, "2025-06-01", "wild", "")
		var lerr *Error
		require.True(t, errors.As(err, &lerr))
		assert.Equal(t, CodeLocationNotApproved, lerr.Code)
	})

	// Valid location, out-of-season date.
	runTx(stub, baseTime, func() {
		_, err := sc.CreateBatch(ctx, "ASHWAGANDHA", 10, "kg", 9.0, 76.0, "2025-06-01", "wild", "")
		var lerr *Error
		require.True(t, errors.As(err, &lerr))
		assert.Equal(t, CodeSeasonNotApproved, lerr.Code)
	})

	// Nothing was persisted by the failed attempts.
	var record QuotaRecord
	found, err := getRecord(ctx, quotaKey("ASHWAGANDHA", "COL-1", 2025), &record)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCreateBatchUnitHandling(t *testing.T) {
	stub, ctx, sc := setupLedger(t)
	registerCollector(t, stub, ctx, sc, "COL-1")
	ctx.as("collector", "COL-1")

	runTx(stub, baseTime, func() {
		batch, err := sc.CreateBatch(ctx, "ASHWAGANDHA", 2500, "g", 9.0, 76.0, "2025-11-15", "wild", "")
		require.NoError(t, err)
		assert.Equal(t, 2.5, batch.QuantityKg)
		assert.Equal(t, "kg", batch.Unit)
	})

	runTx(stub, baseTime, func() {
		_, err := sc.CreateBatch(ctx, "ASHWAGANDHA", 10, "bales", 9.0, 76.0, "2025-11-15", "wild", "")
		var lerr *Error
		require.True(t, errors.As(err, &lerr))
		assert.Equal(t, CodeUnsupportedUnit, lerr.Code)
	})

	runTx(stub, baseTime, func() {
		_, err := sc.CreateBatch(ctx, "ASHWAGANDHA", -5, "kg", 9.0, 76.0, "2025-11-15", "wild", "")
		var lerr *Error
		require.True(t, errors.As(err, &lerr))
		assert.Equal(t, CodeInvalidQuantity, lerr.Code)
	})
}

func TestCreateBatchUnknownSpecies(t *testing.T) {
	stub, ctx, sc := setupLedger(t)
	registerCollector(t, stub, ctx, sc, "COL-1")
	ctx.as("collector", "COL-1")

	runTx(stub, baseTime, func() {
		_, err := sc.CreateBatch(ctx, "GINSENG", 10, "kg", 9.0, 76.0, "2025-11-15", "wild", "")
		var lerr *Error
		require.True(t, errors.As(err, &lerr))
		assert.Equal(t, KindNotFound, lerr.Kind)
	})
}

func TestTransferCustodyRoundTrip(t *testing.T) {
	stub, ctx, sc := setupLedger(t)
	registerCollector(t, stub, ctx, sc, "COL-1")
	batch := createBatch(t, stub, ctx, sc, "COL-1", 10, baseTime)

	custodians := []string{"COOP-1", "PROC-1", "MFG-1"}
	current := "COL-1"
	for i, next := range custodians {
		ctx.as("any", current)
		at := baseTime.Add(time.Duration(i+1) * time.Hour)
		runTx(stub, at, func() {
			updated, err := sc.TransferCustody(ctx, batch.ID, next, "handover", fmt.Sprintf("leg %d", i+1))
			require.NoError(t, err)
			assert.Equal(t, next, updated.CurrentCustodian)
		})
		current = next
	}

	stored, err := sc.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Len(t, stored.CustodyChain, len(custodians)+1)
	assert.Equal(t, "MFG-1", stored.CurrentCustodian)
	assert.Equal(t, "MFG-1", stored.CustodyChain[len(stored.CustodyChain)-1].Custodian)
}

func TestTransferCustodyRejectsNonCustodian(t *testing.T) {
	stub, ctx, sc := setupLedger(t)
	registerCollector(t, stub, ctx, sc, "COL-1")
	batch := createBatch(t, stub, ctx, sc, "COL-1", 10, baseTime)

	ctx.as("collector", "COL-2")
	runTx(stub, baseTime.Add(time.Hour), func() {
		_, err := sc.TransferCustody(ctx, batch.ID, "PROC-1", "handover", "")
		var lerr *Error
		require.True(t, errors.As(err, &lerr))
		assert.Equal(t, KindAuthorization, lerr.Kind)
		assert.Equal(t, CodeNotCurrentCustodian, lerr.Code)
	})
}

func TestTransferCustodyUnknownBatch(t *testing.T) {
	stub, ctx, sc := setupLedger(t)

	ctx.as("collector", "COL-1")
	runTx(stub, baseTime, func() {
		_, err := sc.TransferCustody(ctx, "no-such-batch", "PROC-1", "handover", "")
		var lerr *Error
		require.True(t, errors.As(err, &lerr))
		assert.Equal(t, KindNotFound, lerr.Kind)
	})
}

func TestAddProcessingStep(t *testing.T) {
	stub, ctx, sc := setupLedger(t)
	registerCollector(t, stub, ctx, sc, "COL-1")
	first := createBatch(t, stub, ctx, sc, "COL-1", 10, baseTime)
	second := createBatch(t, stub, ctx, sc, "COL-1", 15, baseTime.Add(time.Hour))

	ctx.as("processor", "PROC-1")
	runTx(stub, baseTime.Add(2*time.Hour), func() {
		result, err := sc.AddProcessingStep(ctx, []string{first.ID, second.ID}, "drying", 25, 5, "solar dried")
		require.NoError(t, err)
		assert.InDelta(t, 20.0, result.YieldPercent, 1e-9)
	})

	for _, id := range []string{first.ID, second.ID} {
		stored, err := sc.GetBatch(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, BatchProcessed, stored.Status)
		last := stored.TransactionLog[len(stored.TransactionLog)-1]
		assert.Equal(t, "processing", last.Type)
	}
}

func TestAddProcessingStepRequiresProcessorRole(t *testing.T) {
	stub, ctx, sc := setupLedger(t)
	registerCollector(t, stub, ctx, sc, "COL-1")
	batch := createBatch(t, stub, ctx, sc, "COL-1", 10, baseTime)

	ctx.as("collector", "COL-1")
	runTx(stub, baseTime.Add(time.Hour), func() {
		_, err := sc.AddProcessingStep(ctx, []string{batch.ID}, "drying", 10, 2, "")
		var lerr *Error
		require.True(t, errors.As(err, &lerr))
		assert.Equal(t, CodeUnauthorizedRole, lerr.Code)
	})
}

func TestRegistryReads(t *testing.T) {
	_, ctx, sc := setupLedger(t)

	rules, err := sc.ListSpeciesRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "ASHWAGANDHA", rules[0].Code)

	zones, err := sc.ListHarvestZones(ctx)
	require.NoError(t, err)
	require.Len(t, zones, 2)
	assert.Equal(t, "WG-KERALA-01", zones[0].ID)

	_, err = sc.GetSpeciesRule(ctx, "GINSENG")
	var lerr *Error
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, KindNotFound, lerr.Kind)
}

func TestRegistryImmutableAfterLoad(t *testing.T) {
	stub, ctx, sc := setupLedger(t)

	ctx.as("regulator", "REG-1")
	runTx(stub, baseTime, func() {
		err := sc.RegisterSpeciesRule(ctx, SpeciesRule{
			Code:                      "ASHWAGANDHA",
			Seasons:                   []SeasonWindow{{Start: "01-01", End: "12-31"}},
			AnnualQuotaPerCollectorKg: 999,
		})
		var lerr *Error
		require.True(t, errors.As(err, &lerr))
		assert.Equal(t, KindConflict, lerr.Kind)
	})

	// The loaded rule is unchanged.
	rule, err := sc.GetSpeciesRule(ctx, "ASHWAGANDHA")
	require.NoError(t, err)
	assert.Equal(t, 100.0, rule.AnnualQuotaPerCollectorKg)
}
