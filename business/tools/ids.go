package tools

import (
	"strings"

	"github.com/google/uuid"
)

// NewOrderIDs returns a fresh order id and tracking id.
func NewOrderIDs() (orderID string, trackingID string) {
	return "ORD-" + hexPrefix(8), "TRK-" + hexPrefix(16)
}

func hexPrefix(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(s[:n])
}
