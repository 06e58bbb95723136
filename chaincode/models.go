package main

// GeoPoint is a latitude/longitude coordinate in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SeasonWindow is a recurring month-day range ("MM-DD") in which a species
// may be harvested. Start > End means the window wraps across year end.
type SeasonWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// QualityStandard bounds one lab parameter. A nil bound is unconstrained.
type QualityStandard struct {
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Unit string   `json:"unit"`
}

// SpeciesRule is the regulatory rule set for one herb species.
// Immutable once registered; corrections are registered under a new code.
type SpeciesRule struct {
	Code                      string                     `json:"code"`
	ScientificName            string                     `json:"scientificName"`
	CommonName                string                     `json:"commonName"`
	Seasons                   []SeasonWindow             `json:"seasons"`
	AnnualQuotaPerCollectorKg float64                    `json:"annualQuotaPerCollectorKg"`
	MinimumHarvestAgeMonths   int                        `json:"minimumHarvestAgeMonths"`
	QualityStandards          map[string]QualityStandard `json:"qualityStandards"`
	SustainableHarvestPart    string                     `json:"sustainableHarvestPart"`
	StandardRef               string                     `json:"standardRef"`
}

// HarvestZone is a pre-approved collection area. Boundary is an ordered
// polygon ring; rectangles are encoded as 4-vertex polygons.
type HarvestZone struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Region               string     `json:"region"`
	Boundary             []GeoPoint `json:"boundary"`
	ApprovedSpecies      []string   `json:"approvedSpecies"`
	Certifications       []string   `json:"certifications"`
	SustainabilityRating string     `json:"sustainabilityRating"`
}

// Collector statuses.
const (
	CollectorActive   = "active"
	CollectorInactive = "inactive"
)

// Collector is a registered harvester. CredentialHash is never returned by
// any read path; read helpers strip it before the record leaves the ledger.
type Collector struct {
	ID             string `json:"id"`
	CooperativeID  string `json:"cooperativeId"`
	Role           string `json:"role"`
	Status         string `json:"status"`
	RegisteredAt   string `json:"registeredAt"`
	CredentialHash string `json:"credentialHash,omitempty"`
}

// QuotaRecord accumulates one collector's harvest of one species in one
// calendar year. Written only inside the CreateBatch transaction.
type QuotaRecord struct {
	SpeciesCode      string  `json:"speciesCode"`
	CollectorID      string  `json:"collectorId"`
	Year             int     `json:"year"`
	TotalHarvestedKg float64 `json:"totalHarvestedKg"`
	LastUpdated      string  `json:"lastUpdated"`
}

// CustodyEntry is one link of a batch's append-only custody chain.
type CustodyEntry struct {
	Custodian string `json:"custodian"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Notes     string `json:"notes,omitempty"`
}

// BatchEvent is one entry of a batch's append-only transaction log.
type BatchEvent struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Actor     string `json:"actor"`
	Detail    string `json:"detail,omitempty"`
}

// Batch statuses.
const (
	BatchCollected = "collected"
	BatchProcessed = "processed"
	BatchTested    = "tested"
)

// ComplianceSummary is set on a batch once its first quality test lands.
type ComplianceSummary struct {
	Level          string `json:"level"`
	ExportEligible bool   `json:"exportEligible"`
	TestID         string `json:"testId"`
	EvaluatedAt    string `json:"evaluatedAt"`
}

// CollectionBatch is the unit of traceability. Species, quantity and origin
// are fixed at creation; everything that happens afterwards is appended.
type CollectionBatch struct {
	ID               string             `json:"id"`
	SpeciesCode      string             `json:"speciesCode"`
	CollectorID      string             `json:"collectorId"`
	QuantityKg       float64            `json:"quantityKg"`
	Unit             string             `json:"unit"`
	GPSCoordinates   GeoPoint           `json:"gpsCoordinates"`
	HarvestZoneID    string             `json:"harvestZoneId"`
	HarvestTimestamp string             `json:"harvestTimestamp"`
	Method           string             `json:"method,omitempty"`
	Notes            string             `json:"notes,omitempty"`
	Status           string             `json:"status"`
	CurrentCustodian string             `json:"currentCustodian"`
	ProvenanceCode   string             `json:"provenanceCode"`
	CustodyChain     []CustodyEntry     `json:"custodyChain"`
	TransactionLog   []BatchEvent       `json:"transactionLog"`
	Compliance       *ComplianceSummary `json:"compliance,omitempty"`
}

// Violation severities.
const (
	SeverityCritical = "critical"
	SeverityMajor    = "major"
)

// Compliance levels.
const (
	FullyCompliant         = "FULLY_COMPLIANT"
	ConditionallyCompliant = "CONDITIONALLY_COMPLIANT"
	NonCompliant           = "NON_COMPLIANT"
)

// PesticideNotDetected is the screen result required for export eligibility.
const PesticideNotDetected = "Not Detected"

// Violation describes one parameter outside its species threshold.
type Violation struct {
	Parameter string  `json:"parameter"`
	Measured  float64 `json:"measured"`
	Limit     float64 `json:"limit"`
	Unit      string  `json:"unit"`
	Severity  string  `json:"severity"`
	Message   string  `json:"message"`
}

// QualityTest is an immutable lab result. Corrections are new tests.
type QualityTest struct {
	ID              string             `json:"id"`
	BatchID         string             `json:"batchId"`
	LabID           string             `json:"labId"`
	TestType        string             `json:"testType"`
	Results         map[string]float64 `json:"results"`
	PesticideScreen string             `json:"pesticideScreen"`
	Violations      []Violation        `json:"violations"`
	ComplianceLevel string             `json:"complianceLevel"`
	ExportEligible  bool               `json:"exportEligible"`
	StandardRef     string             `json:"standardRef"`
	Timestamp       string             `json:"timestamp"`
}

// ProcessingResult summarizes one processing step over source batches.
type ProcessingResult struct {
	BatchIDs     []string `json:"batchIds"`
	ProcessType  string   `json:"processType"`
	InputKg      float64  `json:"inputKg"`
	OutputKg     float64  `json:"outputKg"`
	YieldPercent float64  `json:"yieldPercent"`
	Timestamp    string   `json:"timestamp"`
}

// TimelineEvent is one entry of the assembled provenance timeline.
type TimelineEvent struct {
	Timestamp string `json:"timestamp"`
	Stage     string `json:"stage"`
	Actor     string `json:"actor,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// SpeciesIdentity is the public naming block of a provenance view.
type SpeciesIdentity struct {
	Code           string `json:"code"`
	ScientificName string `json:"scientificName,omitempty"`
	CommonName     string `json:"commonName,omitempty"`
}

// CollectionDetail is the origin block of a provenance view.
type CollectionDetail struct {
	Zone       *HarvestZone `json:"zone,omitempty"`
	Point      GeoPoint     `json:"point"`
	QuantityKg float64      `json:"quantityKg"`
	Unit       string       `json:"unit"`
	Method     string       `json:"method,omitempty"`
	Notes      string       `json:"notes,omitempty"`
	HarvestAt  string       `json:"harvestAt"`
}

// ProvenanceView is the derived, read-only traceability record for one
// public lookup code. Never persisted; assembled on every read.
type ProvenanceView struct {
	Code             string           `json:"code"`
	BatchID          string           `json:"batchId"`
	Species          SpeciesIdentity  `json:"species"`
	Collection       CollectionDetail `json:"collection"`
	Collector        *Collector       `json:"collector,omitempty"`
	QualityTests     []QualityTest    `json:"qualityTests"`
	Timeline         []TimelineEvent  `json:"timeline"`
	Status           string           `json:"status"`
	CurrentCustodian string           `json:"currentCustodian"`
}
