package models

// CheckoutIntent represents one payment-initiation request. Metadata is
// opaque to the flow engine and passed through to the provider verbatim.
type CheckoutIntent struct {
	Email       string            `json:"email"`
	AmountUSD   float64           `json:"amountUsd"`
	CallbackURL string            `json:"callbackUrl"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// VerifyOutcome is the single three-valued result of a post-redirect payment
// verification. Modeling it as one enum keeps impossible states (success and
// failed at once) unrepresentable.
type VerifyOutcome int

const (
	// VerifyMissing means no reference was present to verify.
	VerifyMissing VerifyOutcome = iota
	// VerifyFailed means the provider rejected the reference.
	VerifyFailed
	// VerifySuccess means the provider confirmed the payment.
	VerifySuccess
)

func (o VerifyOutcome) String() string {
	switch o {
	case VerifyFailed:
		return "failed"
	case VerifySuccess:
		return "success"
	default:
		return "missing"
	}
}
