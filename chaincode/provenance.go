/*
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// GetProvenance assembles the full traceability record behind a public
// lookup code (or a direct batch id). Read-only: it tolerates a missing
// collector, zone or rule and zero quality tests, and fails only when the
// batch itself is unknown.
func (s *SmartContract) GetProvenance(ctx contractapi.TransactionContextInterface, code string) (*ProvenanceView, error) {
	batchID, err := s.resolveLookup(ctx, code)
	if err != nil {
		return nil, err
	}
	var batch CollectionBatch
	found, err := getRecord(ctx, batchKey(batchID), &batch)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, notFoundError("no batch for lookup code %s", code)
	}

	view := ProvenanceView{
		Code:    batch.ProvenanceCode,
		BatchID: batch.ID,
		Species: SpeciesIdentity{Code: batch.SpeciesCode},
		Collection: CollectionDetail{
			Point:      batch.GPSCoordinates,
			QuantityKg: batch.QuantityKg,
			Unit:       batch.Unit,
			Method:     batch.Method,
			Notes:      batch.Notes,
			HarvestAt:  batch.HarvestTimestamp,
		},
		QualityTests:     []QualityTest{},
		Status:           batch.Status,
		CurrentCustodian: batch.CurrentCustodian,
	}

	var rule SpeciesRule
	if found, err := getRecord(ctx, speciesKey(batch.SpeciesCode), &rule); err != nil {
		return nil, err
	} else if found {
		view.Species.ScientificName = rule.ScientificName
		view.Species.CommonName = rule.CommonName
	}

	var zone HarvestZone
	if found, err := getRecord(ctx, zoneKey(batch.HarvestZoneID), &zone); err != nil {
		return nil, err
	} else if found {
		view.Collection.Zone = &zone
	}

	var collector Collector
	if found, err := getRecord(ctx, collectorKey(batch.CollectorID), &collector); err != nil {
		return nil, err
	} else if found {
		view.Collector = stripCredential(&collector)
	}

	if err := s.eachTestForBatch(ctx, batch.ID, func(test QualityTest) error {
		view.QualityTests = append(view.QualityTests, test)
		return nil
	}); err != nil {
		return nil, err
	}

	view.Timeline = buildTimeline(&batch)
	return &view, nil
}

// resolveLookup maps a public code to a batch id through the indirection
// record, falling back to treating the code as a batch id directly.
func (s *SmartContract) resolveLookup(ctx contractapi.TransactionContextInterface, code string) (string, error) {
	raw, err := ctx.GetStub().GetState(lookupKey(code))
	if err != nil {
		return "", fmt.Errorf("failed to read lookup code %s: %v", code, err)
	}
	if raw != nil {
		return string(raw), nil
	}
	return code, nil
}

// eachTestForBatch streams the batch's quality tests in key order without
// materializing the result set.
func (s *SmartContract) eachTestForBatch(ctx contractapi.TransactionContextInterface, batchID string, visit func(QualityTest) error) error {
	start := testPrefix + batchID + ":"
	iter, err := ctx.GetStub().GetStateByRange(start, start+rangeEnd)
	if err != nil {
		return fmt.Errorf("failed to scan tests for batch %s: %v", batchID, err)
	}
	defer iter.Close()

	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return fmt.Errorf("failed during test iteration: %v", err)
		}
		var test QualityTest
		if err := json.Unmarshal(kv.Value, &test); err != nil {
			return fmt.Errorf("failed to unmarshal test record: %v", err)
		}
		if err := visit(test); err != nil {
			return err
		}
	}
	return nil
}

// buildTimeline merges the harvest moment with the batch's domain events
// into one chronological sequence. Stable sort keeps insertion order on
// timestamp ties, so repeated reads yield identical output.
func buildTimeline(batch *CollectionBatch) []TimelineEvent {
	timeline := []TimelineEvent{{
		Timestamp: batch.HarvestTimestamp,
		Stage:     "harvest",
		Actor:     batch.CollectorID,
		Detail:    fmt.Sprintf("%.2fkg %s collected in zone %s", batch.QuantityKg, batch.SpeciesCode, batch.HarvestZoneID),
	}}
	for _, ev := range batch.TransactionLog {
		timeline = append(timeline, TimelineEvent{
			Timestamp: ev.Timestamp,
			Stage:     ev.Type,
			Actor:     ev.Actor,
			Detail:    ev.Detail,
		})
	}
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].Timestamp < timeline[j].Timestamp
	})
	return timeline
}
