package mailer

import (
	"fmt"
	"time"
)

// OtpMessage tells the recipient how long the code lasts. A zero ttl means the
// code stays valid until a new one is requested.
func OtpMessage(company, code string, ttl time.Duration) (subject, body string) {
	subject = fmt.Sprintf("Your %s verification code", company)
	body = fmt.Sprintf("## Verify your order\n\nYour verification code is **%s**.\n\n%s If you did not request it, you can ignore this email.", code, validity(ttl))
	return subject, body
}

func validity(ttl time.Duration) string {
	switch {
	case ttl <= 0:
		return "The code stays valid until a new one is requested."
	case ttl == time.Minute:
		return "The code is valid for 1 minute."
	case ttl%time.Minute == 0:
		return fmt.Sprintf("The code is valid for %d minutes.", ttl/time.Minute)
	default:
		return fmt.Sprintf("The code is valid for %s.", ttl)
	}
}

func OrderMessage(company, customer, product, orderID, trackingID string) (subject, body string) {
	subject = fmt.Sprintf("%s order %s confirmed", company, orderID)
	body = fmt.Sprintf("## Thank you, %s!\n\nYour order for **%s** is confirmed.\n\n- Order ID: `%s`\n- Tracking ID: `%s`\n\nThank you for shopping with %s.", customer, product, orderID, trackingID, company)
	return subject, body
}
