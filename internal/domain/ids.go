package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewClientOrderID builds a client order id of the form t-{prefix}-{hash}.
// Gate.io requires user-assigned order text to start with "t-". The hash
// tail keeps ids unique within the reconciliation lookback window.
func NewClientOrderID(prefix string) string {
	h := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("t-%s-%s", prefix, h[:10])
}
