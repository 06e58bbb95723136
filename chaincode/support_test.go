package main

import (
	"crypto/x509"
	"fmt"
	"testing"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// testIdentity fakes the membership service: role and id come straight from
// the attribute map, mirroring how the real CA embeds them in certificates.
type testIdentity struct {
	id    string
	attrs map[string]string
}

func (t *testIdentity) GetID() (string, error)    { return t.id, nil }
func (t *testIdentity) GetMSPID() (string, error) { return "Org1MSP", nil }

func (t *testIdentity) GetAttributeValue(name string) (string, bool, error) {
	v, ok := t.attrs[name]
	return v, ok, nil
}

func (t *testIdentity) AssertAttributeValue(name, value string) error {
	v, ok := t.attrs[name]
	if !ok || v != value {
		return fmt.Errorf("attribute %s does not have value %s", name, value)
	}
	return nil
}

func (t *testIdentity) GetX509Certificate() (*x509.Certificate, error) { return nil, nil }

type testContext struct {
	stub     *shimtest.MockStub
	identity *testIdentity
}

func (c *testContext) GetStub() shim.ChaincodeStubInterface { return c.stub }
func (c *testContext) GetClientIdentity() cid.ClientIdentity { return c.identity }

// as switches the caller identity for subsequent invocations.
func (c *testContext) as(role, id string) *testContext {
	c.identity = &testIdentity{id: id, attrs: map[string]string{"role": role, "id": id}}
	return c
}

var txCounter int

// runTx brackets fn in a mock transaction with a pinned timestamp, the way
// the peer would for a real invocation.
func runTx(stub *shimtest.MockStub, at time.Time, fn func()) {
	txCounter++
	txID := fmt.Sprintf("tx%06d", txCounter)
	stub.MockTransactionStart(txID)
	stub.TxTimestamp = timestamppb.New(at)
	fn()
	stub.MockTransactionEnd(txID)
}

var baseTime = time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)

// setupLedger returns a fresh mock ledger seeded with the reference catalog.
func setupLedger(t *testing.T) (*shimtest.MockStub, *testContext, *SmartContract) {
	t.Helper()
	stub := shimtest.NewMockStub("herbtrace", nil)
	ctx := &testContext{stub: stub}
	sc := &SmartContract{}
	ctx.as("regulator", "REG-1")
	runTx(stub, baseTime, func() {
		require.NoError(t, sc.InitLedger(ctx))
	})
	return stub, ctx, sc
}

func registerCollector(t *testing.T, stub *shimtest.MockStub, ctx *testContext, sc *SmartContract, id string) {
	t.Helper()
	ctx.as("cooperative", "COOP-1")
	runTx(stub, baseTime, func() {
		_, err := sc.RegisterCollector(ctx, id, "COOP-1", "sha256:collector-secret")
		require.NoError(t, err)
	})
}

// createBatch harvests Ashwagandha inside the Kerala zone during its season
// and returns the stored batch.
func createBatch(t *testing.T, stub *shimtest.MockStub, ctx *testContext, sc *SmartContract, collectorID string, quantityKg float64, at time.Time) *CollectionBatch {
	t.Helper()
	ctx.as("collector", collectorID)
	var batch *CollectionBatch
	runTx(stub, at, func() {
		var err error
		batch, err = sc.CreateBatch(ctx, "ASHWAGANDHA", quantityKg, "kg", 9.0, 76.0, "2025-11-15", "wild", "")
		require.NoError(t, err)
	})
	return batch
}
