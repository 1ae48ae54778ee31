package reconcile

import (
	"fmt"
	"strings"
)

// PaymentDetails is the payload of a "confirm payment details" message.
type PaymentDetails struct {
	Amount        string
	Bank          string
	AccountNumber string
	Date          string
}

// BuildFormLink renders the secure form URL for a request.
func BuildFormLink(baseURL, requestID string) string {
	return fmt.Sprintf("%s/verify/%s", strings.TrimRight(baseURL, "/"), requestID)
}

// BuildMissingFieldsMessage renders the outbound message asking a recipient
// to supply missing fields through the form link.
func BuildMissingFieldsMessage(recipientName string, missingFields []string, formLink string) string {
	return fmt.Sprintf(`Hi %s,

We need some additional information to process your payment.

Missing: %s

Please fill out this secure form:
%s

This link expires in 24 hours.

- RytFlow`, recipientName, strings.Join(missingFields, ", "), formLink)
}

// BuildPaymentDetailsMessage renders the outbound message asking a
// recipient to confirm the payment details on file.
func BuildPaymentDetailsMessage(recipientName string, details PaymentDetails, formLink string) string {
	return fmt.Sprintf(`Hi %s,

Here are your payment details for confirmation:
- Amount: %s
- Bank: %s
- Account: %s
- Date: %s

If this looks correct, reply OK.
If anything is wrong, update it here:
%s

This link expires in 24 hours.

- RytFlow`,
		recipientName,
		orNA(details.Amount),
		orNA(details.Bank),
		orNA(details.AccountNumber),
		orNA(details.Date),
		formLink)
}

func orNA(value string) string {
	if value == "" {
		return "N/A"
	}
	return value
}
