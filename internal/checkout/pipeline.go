package checkout

import "strings"

type State string

const (
	StateCollectingInfo    State = "collecting_info"
	StateCollectingPayment State = "collecting_payment"
	StateCompleted         State = "completed"
)

// Info is the shipping and contact data collected in the first step.
type Info struct {
	Name       string `json:"name"`
	Contact    string `json:"contact"`
	Address    string `json:"address"`
	PostalCode string `json:"postalCode"`
}

// Complete reports whether every field is non-empty after trimming.
func (i Info) Complete() bool {
	t := i.trimmed()
	return t.Name != "" && t.Contact != "" && t.Address != "" && t.PostalCode != ""
}

func (i Info) trimmed() Info {
	return Info{
		Name:       strings.TrimSpace(i.Name),
		Contact:    strings.TrimSpace(i.Contact),
		Address:    strings.TrimSpace(i.Address),
		PostalCode: strings.TrimSpace(i.PostalCode),
	}
}

// Pipeline is the per-session checkout state. The zero value is a fresh pipeline.
// Refused transitions return false and change nothing.
type Pipeline struct {
	State   State  `json:"state"`
	Info    Info   `json:"info"`
	Proof   string `json:"proof,omitempty"`
	OrderID string `json:"orderId,omitempty"`
}

func New() Pipeline {
	return Pipeline{State: StateCollectingInfo}
}

// Current treats an unset state as the first step.
func (p *Pipeline) Current() State {
	if p.State == "" {
		return StateCollectingInfo
	}
	return p.State
}

// SetInfo replaces the collected info while still in the first step.
func (p *Pipeline) SetInfo(info Info) bool {
	if p.Current() != StateCollectingInfo {
		return false
	}
	p.State = StateCollectingInfo
	p.Info = info
	return true
}

// Proceed moves to the payment step. The info gate is checked here, not only by callers.
func (p *Pipeline) Proceed() bool {
	if p.Current() != StateCollectingInfo || !p.Info.Complete() {
		return false
	}
	p.State = StateCollectingPayment
	return true
}

func (p *Pipeline) AttachProof(proof string) bool {
	if p.Current() != StateCollectingPayment || strings.TrimSpace(proof) == "" {
		return false
	}
	p.Proof = proof
	return true
}

// Ready reports whether Submit would be accepted, ignoring the cart.
func (p *Pipeline) Ready() bool {
	return p.Current() == StateCollectingPayment && p.Info.Complete() && p.Proof != ""
}

// Close abandons or finishes the pipeline and discards everything it collected.
func (p *Pipeline) Close() {
	*p = New()
}

func (p *Pipeline) complete(orderID string) {
	p.State = StateCompleted
	p.OrderID = orderID
}
