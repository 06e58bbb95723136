package main

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// checkQuota verifies that requestedKg fits the collector's remaining annual
// allowance and returns the updated quota record. The record is NOT written
// here: CreateBatch persists it in the same transaction as the batch, so a
// concurrent sibling harvest invalidates this read set at commit and the
// check can never be bypassed by interleaving.
//
// Year comes from the transaction timestamp, never from caller input.
// The boundary newTotal == limit is accepted.
func checkQuota(ctx contractapi.TransactionContextInterface, rule *SpeciesRule, collectorID string, requestedKg float64, year int, now string) (*QuotaRecord, error) {
	record := QuotaRecord{
		SpeciesCode: rule.Code,
		CollectorID: collectorID,
		Year:        year,
	}
	if _, err := getRecord(ctx, quotaKey(rule.Code, collectorID, year), &record); err != nil {
		return nil, err
	}

	limit := rule.AnnualQuotaPerCollectorKg
	newTotal := record.TotalHarvestedKg + requestedKg
	if newTotal > limit {
		return nil, validationError(CodeQuotaExceeded,
			"harvesting %.2fkg of %s would exceed the %.2fkg annual limit for collector %s",
			requestedKg, rule.Code, limit, collectorID).
			withDetail("currentKg", record.TotalHarvestedKg).
			withDetail("limitKg", limit).
			withDetail("requestedKg", requestedKg).
			withDetail("exceededBy", newTotal-limit)
	}

	record.TotalHarvestedKg = newTotal
	record.LastUpdated = now
	return &record, nil
}
