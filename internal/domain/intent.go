package domain

// Intent labels form a fixed taxonomy. IntentUnknown is reserved for
// empty or unparseable input.
const (
	IntentBilling            = "billing"
	IntentTechnicalSupport   = "technical_support"
	IntentProductInformation = "product_information"
	IntentAccountManagement  = "account_management"
	IntentOrderStatus        = "order_status"
	IntentRefundRequest      = "refund_request"
	IntentGeneralInquiry     = "general_inquiry"
	IntentUnknown            = "unknown"
	IntentEscalation         = "escalation"
	IntentError              = "error"
)

// IntentResult is the outcome of classifying a user message.
type IntentResult struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"` // in [0, 1]
	Entities   map[string]any `json:"entities,omitempty"`
}
