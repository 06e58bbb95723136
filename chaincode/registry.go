/*
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// World-state key prefixes. Range scans use prefix..prefix+"~" since '~'
// sorts above every character used in ids.
const (
	speciesPrefix   = "SPECIES:"
	zonePrefix      = "ZONE:"
	collectorPrefix = "COLLECTOR:"
	batchPrefix     = "BATCH:"
	quotaPrefix     = "QUOTA:"
	testPrefix      = "TEST:"
	lookupPrefix    = "LOOKUP:"
)

const rangeEnd = "~"

func speciesKey(code string) string { return speciesPrefix + code }
func zoneKey(id string) string      { return zonePrefix + id }
func collectorKey(id string) string { return collectorPrefix + id }
func batchKey(id string) string     { return batchPrefix + id }
func testKey(id string) string      { return testPrefix + id }
func lookupKey(code string) string  { return lookupPrefix + code }

func quotaKey(species, collector string, year int) string {
	return fmt.Sprintf("%s%s:%s:%d", quotaPrefix, species, collector, year)
}

func getRecord(ctx contractapi.TransactionContextInterface, key string, out interface{}) (bool, error) {
	raw, err := ctx.GetStub().GetState(key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %v", key, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %v", key, err)
	}
	return true, nil
}

func putRecord(ctx contractapi.TransactionContextInterface, key string, rec interface{}) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %v", key, err)
	}
	return ctx.GetStub().PutState(key, raw)
}

// RegisterSpeciesRule stores a new species rule. Rules are immutable after
// load; a duplicate code is a conflict, corrections get a new code.
func (s *SmartContract) RegisterSpeciesRule(ctx contractapi.TransactionContextInterface, rule SpeciesRule) error {
	if _, err := s.requireRole(ctx, "regulator"); err != nil {
		return err
	}
	if rule.Code == "" {
		return validationError(CodeInvalidRecord, "species code is required")
	}
	if len(rule.Seasons) == 0 {
		return validationError(CodeInvalidRecord, "species %s needs at least one season window", rule.Code)
	}
	for _, w := range rule.Seasons {
		if !validMonthDay(w.Start) || !validMonthDay(w.End) {
			return validationError(CodeInvalidRecord, "season window %s..%s is not MM-DD", w.Start, w.End)
		}
	}
	if rule.AnnualQuotaPerCollectorKg <= 0 {
		return validationError(CodeInvalidRecord, "species %s needs a positive annual quota", rule.Code)
	}
	existing, err := ctx.GetStub().GetState(speciesKey(rule.Code))
	if err != nil {
		return fmt.Errorf("failed to read species %s: %v", rule.Code, err)
	}
	if existing != nil {
		return conflictError("species %s already registered", rule.Code)
	}
	return putRecord(ctx, speciesKey(rule.Code), rule)
}

// RegisterHarvestZone stores a new harvest zone. Immutable after load.
func (s *SmartContract) RegisterHarvestZone(ctx contractapi.TransactionContextInterface, zone HarvestZone) error {
	if _, err := s.requireRole(ctx, "regulator"); err != nil {
		return err
	}
	if zone.ID == "" {
		return validationError(CodeInvalidRecord, "zone id is required")
	}
	if len(zone.Boundary) < 3 {
		return validationError(CodeInvalidRecord, "zone %s boundary needs at least 3 vertices", zone.ID)
	}
	existing, err := ctx.GetStub().GetState(zoneKey(zone.ID))
	if err != nil {
		return fmt.Errorf("failed to read zone %s: %v", zone.ID, err)
	}
	if existing != nil {
		return conflictError("zone %s already registered", zone.ID)
	}
	return putRecord(ctx, zoneKey(zone.ID), zone)
}

// GetSpeciesRule returns one species rule.
func (s *SmartContract) GetSpeciesRule(ctx contractapi.TransactionContextInterface, code string) (*SpeciesRule, error) {
	var rule SpeciesRule
	found, err := getRecord(ctx, speciesKey(code), &rule)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, notFoundError("species %s is not registered", code)
	}
	return &rule, nil
}

// GetHarvestZone returns one harvest zone.
func (s *SmartContract) GetHarvestZone(ctx contractapi.TransactionContextInterface, id string) (*HarvestZone, error) {
	var zone HarvestZone
	found, err := getRecord(ctx, zoneKey(id), &zone)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, notFoundError("zone %s is not registered", id)
	}
	return &zone, nil
}

// ListSpeciesRules returns every registered species rule in code order.
func (s *SmartContract) ListSpeciesRules(ctx contractapi.TransactionContextInterface) ([]SpeciesRule, error) {
	iter, err := ctx.GetStub().GetStateByRange(speciesPrefix, speciesPrefix+rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to scan species: %v", err)
	}
	defer iter.Close()

	rules := []SpeciesRule{}
	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("failed during species iteration: %v", err)
		}
		var rule SpeciesRule
		if err := json.Unmarshal(kv.Value, &rule); err != nil {
			return nil, fmt.Errorf("failed to unmarshal species record: %v", err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ListHarvestZones returns every registered zone in id order.
func (s *SmartContract) ListHarvestZones(ctx contractapi.TransactionContextInterface) ([]HarvestZone, error) {
	zones := []HarvestZone{}
	err := s.eachZone(ctx, func(zone HarvestZone) (bool, error) {
		zones = append(zones, zone)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return zones, nil
}

// eachZone streams zones in id order without materializing the key set.
// The visitor returns false to stop early.
func (s *SmartContract) eachZone(ctx contractapi.TransactionContextInterface, visit func(HarvestZone) (bool, error)) error {
	iter, err := ctx.GetStub().GetStateByRange(zonePrefix, zonePrefix+rangeEnd)
	if err != nil {
		return fmt.Errorf("failed to scan zones: %v", err)
	}
	defer iter.Close()

	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return fmt.Errorf("failed during zone iteration: %v", err)
		}
		var zone HarvestZone
		if err := json.Unmarshal(kv.Value, &zone); err != nil {
			return fmt.Errorf("failed to unmarshal zone record: %v", err)
		}
		cont, err := visit(zone)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// InitLedger seeds the reference catalog. Existing keys are left untouched
// so re-invocation never mutates loaded reference data.
func (s *SmartContract) InitLedger(ctx contractapi.TransactionContextInterface) error {
	for _, rule := range seedSpecies() {
		existing, err := ctx.GetStub().GetState(speciesKey(rule.Code))
		if err != nil {
			return fmt.Errorf("failed to read species %s: %v", rule.Code, err)
		}
		if existing != nil {
			continue
		}
		if err := putRecord(ctx, speciesKey(rule.Code), rule); err != nil {
			return err
		}
	}
	for _, zone := range seedZones() {
		existing, err := ctx.GetStub().GetState(zoneKey(zone.ID))
		if err != nil {
			return fmt.Errorf("failed to read zone %s: %v", zone.ID, err)
		}
		if existing != nil {
			continue
		}
		if err := putRecord(ctx, zoneKey(zone.ID), zone); err != nil {
			return err
		}
	}
	return nil
}

func f(v float64) *float64 { return &v }

func seedSpecies() []SpeciesRule {
	return []SpeciesRule{
		{
			Code:           "ASHWAGANDHA",
			ScientificName: "Withania somnifera",
			CommonName:     "Ashwagandha",
			// Roots are lifted after the monsoon; the window wraps year end.
			Seasons:                   []SeasonWindow{{Start: "10-01", End: "02-28"}},
			AnnualQuotaPerCollectorKg: 100,
			MinimumHarvestAgeMonths:   18,
			QualityStandards: map[string]QualityStandard{
				"moisture":     {Max: f(12), Unit: "%"},
				"withanolides": {Min: f(0.3), Unit: "%"},
				"lead":         {Max: f(10), Unit: "ppm"},
				"arsenic":      {Max: f(3), Unit: "ppm"},
			},
			SustainableHarvestPart: "root",
			StandardRef:            "AYUSH/PLIM-QS-001",
		},
		{
			Code:                      "BRAHMI",
			ScientificName:            "Bacopa monnieri",
			CommonName:                "Brahmi",
			Seasons:                   []SeasonWindow{{Start: "06-01", End: "09-30"}},
			AnnualQuotaPerCollectorKg: 60,
			MinimumHarvestAgeMonths:   6,
			QualityStandards: map[string]QualityStandard{
				"moisture":  {Max: f(11), Unit: "%"},
				"bacosides": {Min: f(2.5), Unit: "%"},
				"lead":      {Max: f(10), Unit: "ppm"},
			},
			SustainableHarvestPart: "whole plant",
			StandardRef:            "AYUSH/PLIM-QS-014",
		},
		{
			Code:                      "TULSI",
			ScientificName:            "Ocimum tenuiflorum",
			CommonName:                "Holy Basil",
			Seasons:                   []SeasonWindow{{Start: "03-01", End: "06-30"}, {Start: "09-01", End: "11-30"}},
			AnnualQuotaPerCollectorKg: 80,
			MinimumHarvestAgeMonths:   3,
			QualityStandards: map[string]QualityStandard{
				"moisture":          {Max: f(10), Unit: "%"},
				"total_plate_count": {Max: f(100000), Unit: "cfu/g"},
			},
			SustainableHarvestPart: "leaf",
			StandardRef:            "AYUSH/PLIM-QS-027",
		},
	}
}

func seedZones() []HarvestZone {
	return []HarvestZone{
		{
			ID:     "WG-KERALA-01",
			Name:   "Western Ghats Kerala Belt",
			Region: "Kerala",
			Boundary: []GeoPoint{
				{Latitude: 8.0, Longitude: 74.0},
				{Latitude: 8.0, Longitude: 77.5},
				{Latitude: 12.5, Longitude: 77.5},
				{Latitude: 12.5, Longitude: 74.0},
			},
			ApprovedSpecies:      []string{"ASHWAGANDHA", "BRAHMI", "TULSI"},
			Certifications:       []string{"NMPB-GACP", "Organic-India"},
			SustainabilityRating: "A",
		},
		{
			ID:     "WG-NILGIRI-02",
			Name:   "Nilgiri Foothills",
			Region: "Tamil Nadu",
			Boundary: []GeoPoint{
				{Latitude: 11.0, Longitude: 76.2},
				{Latitude: 11.0, Longitude: 78.2},
				{Latitude: 11.7, Longitude: 78.2},
				{Latitude: 11.7, Longitude: 76.2},
			},
			ApprovedSpecies:      []string{"TULSI"},
			Certifications:       []string{"NMPB-GACP"},
			SustainabilityRating: "B",
		},
	}
}

func validMonthDay(s string) bool {
	_, err := time.Parse("01-02", s)
	return err == nil
}
