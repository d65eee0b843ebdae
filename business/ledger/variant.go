package ledger

// Field names a fact the conversation can capture.
type Field string

const (
	CandidateName  Field = "candidate_name"
	InterestStatus Field = "interest_status"
	DeclineReason  Field = "decline_reason"
	CustomerName   Field = "customer_name"
	Product        Field = "product"
	Email          Field = "email"
	ScriptStage    Field = "script_stage"
	Summary        Field = "summary"
)

// Interest statuses accepted by the recruiter script.
const (
	StatusInterested    = "Interested"
	StatusNotInterested = "Not Interested"
	StatusMoreDetails   = "Asked for more details"
)

// Variant describes the closed field set of one script and how a finished
// session is rendered into a sink row.
type Variant struct {
	Name   string
	Fields []Field

	// Allowed constrains a field to a fixed set of literals.
	Allowed map[Field][]string

	// Anchor must have been captured for the session to be recorded.
	Anchor Field

	// Reason is folded into the fallback summary when present.
	Reason      Field
	ReasonLabel string

	row func(s Snapshot) []string
}

func (v Variant) accepts(f Field) bool {
	for _, known := range v.Fields {
		if known == f {
			return true
		}
	}
	return false
}

func (v Variant) allowed(f Field, value string) bool {
	values, constrained := v.Allowed[f]
	if !constrained {
		return true
	}
	for _, a := range values {
		if a == value {
			return true
		}
	}
	return false
}

var Recruiter = Variant{
	Name:   "recruiter",
	Fields: []Field{CandidateName, InterestStatus, DeclineReason, ScriptStage, Summary},
	Allowed: map[Field][]string{
		InterestStatus: {StatusInterested, StatusNotInterested, StatusMoreDetails},
	},
	Anchor:      InterestStatus,
	Reason:      DeclineReason,
	ReasonLabel: "Reason",
	row: func(s Snapshot) []string {
		return []string{s.Timestamp(), s.Facts[CandidateName], s.Facts[InterestStatus], s.Summary}
	},
}

var Checkout = Variant{
	Name:        "checkout",
	Fields:      []Field{CustomerName, Product, Email, ScriptStage, Summary},
	Anchor:      CustomerName,
	Reason:      Product,
	ReasonLabel: "Product",
	row: func(s Snapshot) []string {
		return []string{s.Timestamp(), s.Facts[CustomerName], s.Facts[Product], s.Facts[Email], "", "", s.Summary}
	},
}
