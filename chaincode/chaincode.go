/*
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// SmartContract implements the herb provenance ledger: collection events,
// custody chain, conservation quotas, quality tests and provenance reads.
type SmartContract struct {
	contractapi.Contract
}

// caller is the verified identity context for one invocation, resolved from
// the client identity attributes supplied by the membership service.
type caller struct {
	Role string
	ID   string
}

func (s *SmartContract) callerContext(ctx contractapi.TransactionContextInterface) (caller, error) {
	ci := ctx.GetClientIdentity()
	role, found, err := ci.GetAttributeValue("role")
	if err != nil || !found {
		return caller{}, authorizationError(CodeUnauthorizedRole, "caller identity carries no role attribute")
	}
	id, found, err := ci.GetAttributeValue("id")
	if err != nil || !found {
		// Fall back to the enrollment id for identities without the
		// custom attribute.
		id, err = ci.GetID()
		if err != nil {
			return caller{}, authorizationError(CodeUnauthorizedRole, "caller identity carries no id")
		}
	}
	return caller{Role: role, ID: id}, nil
}

func (s *SmartContract) requireRole(ctx contractapi.TransactionContextInterface, role string) (caller, error) {
	c, err := s.callerContext(ctx)
	if err != nil {
		return caller{}, err
	}
	if c.Role != role {
		return caller{}, authorizationError(CodeUnauthorizedRole, "operation requires role %s, caller has %s", role, c.Role)
	}
	return c, nil
}

// txTime is the deterministic clock: every endorser sees the same
// transaction timestamp, so validation can never be skewed by caller input.
func txTime(ctx contractapi.TransactionContextInterface) (time.Time, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get tx timestamp: %v", err)
	}
	return ts.AsTime().UTC(), nil
}

func emitEvent(ctx contractapi.TransactionContextInterface, name string, payload interface{}) {
	// Best effort: event delivery is for downstream analytics and is not
	// required for correctness.
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = ctx.GetStub().SetEvent(name, raw)
}

// RegisterCollector registers a harvester under a cooperative. The supplied
// credentialHash is stored but stripped from every read path.
func (s *SmartContract) RegisterCollector(ctx contractapi.TransactionContextInterface, id, cooperativeID, credentialHash string) (*Collector, error) {
	c, err := s.callerContext(ctx)
	if err != nil {
		return nil, err
	}
	if c.Role != "regulator" && c.Role != "cooperative" {
		return nil, authorizationError(CodeUnauthorizedRole, "only regulator or cooperative can register collectors")
	}
	if id == "" {
		return nil, validationError(CodeInvalidRecord, "collector id is required")
	}
	existing, err := ctx.GetStub().GetState(collectorKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read collector %s: %v", id, err)
	}
	if existing != nil {
		return nil, conflictError("collector %s already registered", id)
	}
	now, err := txTime(ctx)
	if err != nil {
		return nil, err
	}
	collector := Collector{
		ID:             id,
		CooperativeID:  cooperativeID,
		Role:           "collector",
		Status:         CollectorActive,
		RegisteredAt:   now.Format(time.RFC3339),
		CredentialHash: credentialHash,
	}
	if err := putRecord(ctx, collectorKey(id), collector); err != nil {
		return nil, err
	}
	return stripCredential(&collector), nil
}

// SetCollectorStatus activates or deactivates a collector.
func (s *SmartContract) SetCollectorStatus(ctx contractapi.TransactionContextInterface, id, status string) error {
	if _, err := s.requireRole(ctx, "regulator"); err != nil {
		return err
	}
	if status != CollectorActive && status != CollectorInactive {
		return validationError(CodeInvalidRecord, "status must be %s or %s", CollectorActive, CollectorInactive)
	}
	var collector Collector
	found, err := getRecord(ctx, collectorKey(id), &collector)
	if err != nil {
		return err
	}
	if !found {
		return notFoundError("collector %s is not registered", id)
	}
	collector.Status = status
	return putRecord(ctx, collectorKey(id), collector)
}

// GetCollector returns a collector with its credential stripped.
func (s *SmartContract) GetCollector(ctx contractapi.TransactionContextInterface, id string) (*Collector, error) {
	var collector Collector
	found, err := getRecord(ctx, collectorKey(id), &collector)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, notFoundError("collector %s is not registered", id)
	}
	return stripCredential(&collector), nil
}

func stripCredential(c *Collector) *Collector {
	out := *c
	out.CredentialHash = ""
	return &out
}

// CreateBatch records a harvest event. Location, season and quota gates run
// in that order, short-circuiting on the first failure. The batch, the
// updated quota record and the public lookup code commit atomically; a
// failed gate aborts the whole transaction.
func (s *SmartContract) CreateBatch(ctx contractapi.TransactionContextInterface, speciesCode string, quantity float64, unit string, latitude, longitude float64, harvestDate, method, notes string) (*CollectionBatch, error) {
	c, err := s.requireRole(ctx, "collector")
	if err != nil {
		return nil, err
	}
	var collector Collector
	found, err := getRecord(ctx, collectorKey(c.ID), &collector)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, notFoundError("collector %s is not registered", c.ID)
	}
	if collector.Status != CollectorActive {
		return nil, authorizationError(CodeInactiveCollector, "collector %s is inactive", c.ID)
	}

	quantityKg, err := toKilograms(quantity, unit)
	if err != nil {
		return nil, err
	}

	rule, err := s.GetSpeciesRule(ctx, speciesCode)
	if err != nil {
		return nil, err
	}
	harvestAt, err := parseHarvestDate(harvestDate)
	if err != nil {
		return nil, err
	}
	point := GeoPoint{Latitude: latitude, Longitude: longitude}

	zone, err := s.validateLocation(ctx, speciesCode, point)
	if err != nil {
		return nil, err
	}
	if _, err := validateSeason(rule, harvestAt); err != nil {
		return nil, err
	}

	now, err := txTime(ctx)
	if err != nil {
		return nil, err
	}
	quota, err := checkQuota(ctx, rule, c.ID, quantityKg, now.Year(), now.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}

	txID := ctx.GetStub().GetTxID()
	batch := CollectionBatch{
		ID:               txID,
		SpeciesCode:      speciesCode,
		CollectorID:      c.ID,
		QuantityKg:       quantityKg,
		Unit:             "kg",
		GPSCoordinates:   point,
		HarvestZoneID:    zone.ID,
		HarvestTimestamp: harvestAt.Format(time.RFC3339),
		Method:           method,
		Notes:            notes,
		Status:           BatchCollected,
		CurrentCustodian: c.ID,
		ProvenanceCode:   provenanceCode(txID),
		CustodyChain: []CustodyEntry{{
			Custodian: c.ID,
			Timestamp: now.Format(time.RFC3339),
			Action:    "collected",
		}},
		TransactionLog: []BatchEvent{{
			Type:      "collection",
			Timestamp: now.Format(time.RFC3339),
			Actor:     c.ID,
			Detail:    fmt.Sprintf("%.2fkg %s from zone %s", quantityKg, speciesCode, zone.ID),
		}},
	}

	if err := putRecord(ctx, batchKey(batch.ID), batch); err != nil {
		return nil, err
	}
	if err := putRecord(ctx, quotaKey(speciesCode, c.ID, quota.Year), quota); err != nil {
		return nil, err
	}
	if err := ctx.GetStub().PutState(lookupKey(batch.ProvenanceCode), []byte(batch.ID)); err != nil {
		return nil, fmt.Errorf("failed to write lookup code: %v", err)
	}

	emitEvent(ctx, "BatchCreated", batch)
	return &batch, nil
}

// provenanceCode derives the public lookup code from the tx id so every
// endorser computes the same code.
func provenanceCode(txID string) string {
	short := txID
	if len(short) > 10 {
		short = short[:10]
	}
	return "HERB-" + strings.ToUpper(short)
}

func toKilograms(quantity float64, unit string) (float64, error) {
	if quantity <= 0 {
		return 0, validationError(CodeInvalidQuantity, "quantity must be positive, got %.2f", quantity)
	}
	switch strings.ToLower(unit) {
	case "kg":
		return quantity, nil
	case "g":
		return quantity / 1000, nil
	default:
		return 0, validationError(CodeUnsupportedUnit, "unit %q is not supported, use kg or g", unit)
	}
}

func parseHarvestDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, validationError(CodeInvalidRecord, "harvest date %q is not RFC3339 or YYYY-MM-DD", s)
	}
	return t.UTC(), nil
}

// GetBatch returns one collection batch.
func (s *SmartContract) GetBatch(ctx contractapi.TransactionContextInterface, id string) (*CollectionBatch, error) {
	var batch CollectionBatch
	found, err := getRecord(ctx, batchKey(id), &batch)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, notFoundError("batch %s does not exist", id)
	}
	return &batch, nil
}

// TransferCustody hands a batch to the next entity in the chain. Only the
// current custodian may transfer; the chain is append-only.
func (s *SmartContract) TransferCustody(ctx contractapi.TransactionContextInterface, batchID, toEntity, transferType, notes string) (*CollectionBatch, error) {
	c, err := s.callerContext(ctx)
	if err != nil {
		return nil, err
	}
	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.CurrentCustodian != c.ID {
		return nil, authorizationError(CodeNotCurrentCustodian,
			"caller %s is not the current custodian of batch %s", c.ID, batchID)
	}
	if toEntity == "" {
		return nil, validationError(CodeInvalidRecord, "transfer target is required")
	}
	now, err := txTime(ctx)
	if err != nil {
		return nil, err
	}
	ts := now.Format(time.RFC3339)
	batch.CustodyChain = append(batch.CustodyChain, CustodyEntry{
		Custodian: toEntity,
		Timestamp: ts,
		Action:    transferType,
		Notes:     notes,
	})
	batch.CurrentCustodian = toEntity
	batch.TransactionLog = append(batch.TransactionLog, BatchEvent{
		Type:      "custody_transfer",
		Timestamp: ts,
		Actor:     c.ID,
		Detail:    fmt.Sprintf("%s -> %s (%s)", c.ID, toEntity, transferType),
	})
	if err := putRecord(ctx, batchKey(batchID), batch); err != nil {
		return nil, err
	}
	emitEvent(ctx, "CustodyTransferred", batch)
	return batch, nil
}

// AddProcessingStep links one processing run to its source batches, marks
// them processed and records the yield.
func (s *SmartContract) AddProcessingStep(ctx contractapi.TransactionContextInterface, batchIDs []string, processType string, inputKg, outputKg float64, notes string) (*ProcessingResult, error) {
	c, err := s.requireRole(ctx, "processor")
	if err != nil {
		return nil, err
	}
	if len(batchIDs) == 0 {
		return nil, validationError(CodeInvalidRecord, "at least one source batch is required")
	}
	if inputKg <= 0 {
		return nil, validationError(CodeInvalidQuantity, "input quantity must be positive, got %.2f", inputKg)
	}
	now, err := txTime(ctx)
	if err != nil {
		return nil, err
	}
	ts := now.Format(time.RFC3339)
	yield := outputKg / inputKg * 100
	detail := fmt.Sprintf("%s: %.2fkg in, %.2fkg out (%.1f%% yield)", processType, inputKg, outputKg, yield)
	if notes != "" {
		detail += " - " + notes
	}

	for _, id := range batchIDs {
		batch, err := s.GetBatch(ctx, id)
		if err != nil {
			return nil, err
		}
		batch.Status = BatchProcessed
		batch.TransactionLog = append(batch.TransactionLog, BatchEvent{
			Type:      "processing",
			Timestamp: ts,
			Actor:     c.ID,
			Detail:    detail,
		})
		if err := putRecord(ctx, batchKey(id), batch); err != nil {
			return nil, err
		}
	}

	result := ProcessingResult{
		BatchIDs:     batchIDs,
		ProcessType:  processType,
		InputKg:      inputKg,
		OutputKg:     outputKg,
		YieldPercent: yield,
		Timestamp:    ts,
	}
	emitEvent(ctx, "BatchProcessed", result)
	return &result, nil
}

func main() {
	chaincode, err := contractapi.NewChaincode(&SmartContract{})
	if err != nil {
		fmt.Printf("Error creating herbtrace chaincode: %v\n", err)
		return
	}

	if err := chaincode.Start(); err != nil {
		fmt.Printf("Error starting herbtrace chaincode: %v\n", err)
	}
}
