package simulation

// RiskTolerance is the user's self-declared appetite for risk.
type RiskTolerance string

const (
	RiskLow    RiskTolerance = "Low"
	RiskMedium RiskTolerance = "Medium"
	RiskHigh   RiskTolerance = "High"
	RiskDegen  RiskTolerance = "Degen"
)

// RiskTolerances lists the accepted values in display order.
var RiskTolerances = []RiskTolerance{RiskLow, RiskMedium, RiskHigh, RiskDegen}

func (r RiskTolerance) Valid() bool {
	for _, v := range RiskTolerances {
		if r == v {
			return true
		}
	}
	return false
}

// UserInput is the scenario submitted by the user. It is treated as immutable once submitted.
type UserInput struct {
	Decision      string        `json:"decision"`
	CurrentAge    int           `json:"currentAge"`
	CurrentStatus string        `json:"currentStatus"`
	RiskTolerance RiskTolerance `json:"riskTolerance"`
	Goals         string        `json:"goals"`
}

// TimelinePoint is one year-offset snapshot of the forecast. Scores are nominally 0-100
// but the range is not enforced.
type TimelinePoint struct {
	Year               int      `json:"year"`
	Label              string   `json:"label"`
	FinancialStability int      `json:"financialStability"`
	MentalHealth       int      `json:"mentalHealth"`
	Relationships      int      `json:"relationships"`
	RegretProbability  int      `json:"regretProbability"`
	Narrative          string   `json:"narrative"`
	HiddenRisks        []string `json:"hiddenRisks"`
}

type KeyFork struct {
	DecisionPoint string `json:"decisionPoint"`
	Implication   string `json:"implication"`
}

// Result is the structured forecast returned by the model.
type Result struct {
	Assumptions         []string        `json:"assumptions"`
	Timeline            []TimelinePoint `json:"timeline"`
	KeyForks            []KeyFork       `json:"keyForks"`
	BestCase            string          `json:"bestCase"`
	WorstCase           string          `json:"worstCase"`
	BrutalTruths        []string        `json:"brutalTruths"`
	AlternativeStrategy string          `json:"alternativeStrategy"`
}

// Years are the year offsets the model is asked to forecast.
var Years = []int{1, 3, 5, 10}
