package slip

// Calculation modes selectable via keyword in the slip text. When both
// keywords appear the later line wins; within one line 拖算 wins.
const (
	ModeForward  = "进算"
	ModeDeferred = "拖算"
)

// Candidate is the mutable-until-merge aggregate of extracted transaction
// fields. Zero values mean "unset"; the merger and persister substitute
// policy defaults at the end of the pipeline, never earlier.
type Candidate struct {
	Currency      string
	DepositAmount float64
	DepositDate   string

	CustomerName        string
	CustomerAge         int
	CustomerNationality string

	ReceivingAccountName   string
	ReceivingAccountNumber string
	BankName               string
	BankAccount            string

	MaintenanceDays int
	RemittanceCount int

	ExchangeRate  float64
	CommissionPct float64

	CalculationMode string
}

// HasMandatoryFields reports whether the candidate carries the two fields
// without which no transaction may be created.
func (c *Candidate) HasMandatoryFields() bool {
	return c.DepositAmount > 0 && c.Currency != ""
}
