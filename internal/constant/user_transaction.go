package constant

import (
	"fmt"
	"strings"
)

func GetUserTransactionCursorKey(exchange string, pair string) string {
	return fmt.Sprintf("%s:user_transactions:%s:cursor", strings.ToLower(exchange), strings.ToLower(pair))
}
