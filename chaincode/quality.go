/*
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Safety-related parameters. An out-of-bound reading here is a critical
// violation; anything else (potency markers) is major.
var criticalParameters = map[string]bool{
	"moisture":          true,
	"heavy_metals":      true,
	"lead":              true,
	"arsenic":           true,
	"cadmium":           true,
	"mercury":           true,
	"aflatoxin":         true,
	"total_plate_count": true,
	"yeast_mold":        true,
	"e_coli":            true,
	"salmonella":        true,
}

func violationSeverity(parameter string) string {
	if criticalParameters[parameter] {
		return SeverityCritical
	}
	return SeverityMajor
}

// evaluateResults grades measured values against the species thresholds.
// Parameters without a threshold (or thresholds without a measurement) are
// skipped. Violations are sorted by parameter for deterministic output.
func evaluateResults(rule *SpeciesRule, results map[string]float64, pesticideScreen string) (string, []Violation, bool) {
	violations := []Violation{}
	params := make([]string, 0, len(results))
	for p := range results {
		params = append(params, p)
	}
	sort.Strings(params)

	for _, p := range params {
		std, ok := rule.QualityStandards[p]
		if !ok {
			continue
		}
		measured := results[p]
		if std.Max != nil && measured > *std.Max {
			violations = append(violations, Violation{
				Parameter: p,
				Measured:  measured,
				Limit:     *std.Max,
				Unit:      std.Unit,
				Severity:  violationSeverity(p),
				Message:   fmt.Sprintf("%s %.2f%s exceeds maximum %.2f%s", p, measured, std.Unit, *std.Max, std.Unit),
			})
		} else if std.Min != nil && measured < *std.Min {
			violations = append(violations, Violation{
				Parameter: p,
				Measured:  measured,
				Limit:     *std.Min,
				Unit:      std.Unit,
				Severity:  violationSeverity(p),
				Message:   fmt.Sprintf("%s %.2f%s is below minimum %.2f%s", p, measured, std.Unit, *std.Min, std.Unit),
			})
		}
	}

	level := FullyCompliant
	for _, v := range violations {
		if v.Severity == SeverityCritical {
			level = NonCompliant
			break
		}
		level = ConditionallyCompliant
	}
	exportEligible := level != NonCompliant && pesticideScreen == PesticideNotDetected
	return level, violations, exportEligible
}

// AddQualityTest records an immutable lab result against a batch and updates
// the batch's compliance summary in the same transaction. A corrected result
// is a new test, never an edit.
func (s *SmartContract) AddQualityTest(ctx contractapi.TransactionContextInterface, batchID, testType string, results map[string]float64, pesticideScreen string) (*QualityTest, error) {
	c, err := s.requireRole(ctx, "lab")
	if err != nil {
		return nil, err
	}
	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	rule, err := s.GetSpeciesRule(ctx, batch.SpeciesCode)
	if err != nil {
		return nil, err
	}
	now, err := txTime(ctx)
	if err != nil {
		return nil, err
	}
	ts := now.Format(time.RFC3339)

	level, violations, exportEligible := evaluateResults(rule, results, pesticideScreen)
	test := QualityTest{
		// The batch id inside the test id makes TEST:{batchId}: a
		// range-scan prefix over one batch's tests.
		ID:              batchID + ":" + ctx.GetStub().GetTxID(),
		BatchID:         batchID,
		LabID:           c.ID,
		TestType:        testType,
		Results:         results,
		PesticideScreen: pesticideScreen,
		Violations:      violations,
		ComplianceLevel: level,
		ExportEligible:  exportEligible,
		StandardRef:     rule.StandardRef,
		Timestamp:       ts,
	}
	if err := putRecord(ctx, testKey(test.ID), test); err != nil {
		return nil, err
	}

	batch.Status = BatchTested
	batch.Compliance = &ComplianceSummary{
		Level:          level,
		ExportEligible: exportEligible,
		TestID:         test.ID,
		EvaluatedAt:    ts,
	}
	batch.TransactionLog = append(batch.TransactionLog, BatchEvent{
		Type:      "quality_test",
		Timestamp: ts,
		Actor:     c.ID,
		Detail:    fmt.Sprintf("%s: %s, %d violation(s)", testType, level, len(violations)),
	})
	if err := putRecord(ctx, batchKey(batchID), batch); err != nil {
		return nil, err
	}

	emitEvent(ctx, "QualityTestRecorded", test)
	return &test, nil
}

// GetQualityTest returns one immutable test record.
func (s *SmartContract) GetQualityTest(ctx contractapi.TransactionContextInterface, id string) (*QualityTest, error) {
	var test QualityTest
	found, err := getRecord(ctx, testKey(id), &test)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, notFoundError("quality test %s does not exist", id)
	}
	return &test, nil
}
