package engine

import "encoding/json"

// PaymentMessage is one of the request body variants sent to the
// application server. Variants are discriminated by shape, except the
// quick-payment variant which carries an explicit type tag.
type PaymentMessage interface {
	paymentMessage()
	kind() string
}

// SuccessMessage is the final acknowledgment after a confirmation that
// needed no further server work.
type SuccessMessage struct{}

func (SuccessMessage) paymentMessage() {}
func (SuccessMessage) kind() string    { return "success" }

func (SuccessMessage) MarshalJSON() ([]byte, error) {
	return []byte(`{"success":true}`), nil
}

// PaymentMethodMessage hands a tokenized payment method to the server.
type PaymentMethodMessage struct {
	PaymentMethodID string `json:"payment_method_id"`
}

func (PaymentMethodMessage) paymentMessage() {}
func (PaymentMethodMessage) kind() string    { return "payment_method" }

// MandateMessage carries the bank-debit mandate form. Extra holds the
// additional billing fields revealed by the IBAN validation; they are
// flattened into the top-level JSON object.
type MandateMessage struct {
	IBAN      string
	OwnerName string
	Extra     map[string]string
}

func (MandateMessage) paymentMessage() {}
func (MandateMessage) kind() string    { return "mandate" }

func (m MandateMessage) MarshalJSON() ([]byte, error) {
	fields := make(map[string]string, len(m.Extra)+2)
	for k, v := range m.Extra {
		fields[k] = v
	}
	fields["iban"] = m.IBAN
	fields["owner_name"] = m.OwnerName
	return json.Marshal(fields)
}

// QuickPaymentMessage is the tagged express-checkout variant combining
// payer data with the live amount/interval configuration.
type QuickPaymentMessage struct {
	Type           string `json:"type"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Interval       int    `json:"interval"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	City           string `json:"city"`
	Postcode       string `json:"postcode"`
	Country        string `json:"country"`
	StreetAddress1 string `json:"street_address_1"`
	StreetAddress2 string `json:"street_address_2"`
}

func (QuickPaymentMessage) paymentMessage() {}
func (QuickPaymentMessage) kind() string    { return "quickpayment" }

func (m QuickPaymentMessage) MarshalJSON() ([]byte, error) {
	type alias QuickPaymentMessage
	a := alias(m)
	a.Type = "quickpayment"
	return json.Marshal(a)
}

// ProcessingResponse is the server's answer to a payment message.
// At most one of Error, RequiresAction and Success is meaningfully set;
// PaymentIntentClientSecret accompanies RequiresAction.
type ProcessingResponse struct {
	Error                     string `json:"error,omitempty"`
	Type                      string `json:"type,omitempty"`
	RequiresAction            bool   `json:"requires_action,omitempty"`
	RequiresConfirmation      bool   `json:"requires_confirmation,omitempty"`
	PaymentIntentClientSecret string `json:"payment_intent_client_secret,omitempty"`
	PaymentMethod             string `json:"payment_method,omitempty"`
	Success                   bool   `json:"success,omitempty"`
	// Customer reports whether a reusable payment method was stored.
	Customer bool `json:"customer,omitempty"`
	// SuccessURL optionally overrides the configured redirect target.
	SuccessURL string `json:"successurl,omitempty"`
}

// Failed reports a server-side fault carried in the response body.
func (r ProcessingResponse) Failed() bool {
	return r.Error != ""
}
