package constant

import (
	"fmt"
	"strings"
)

const (
	TickerStreamName       = "ticker"
	TickerStreamSubjectAll = "ticker.>"

	TickerInsertQueueGroup = "ticker_insert_group"
)

func GetTickerStreamSubject(exchange string, pair string) string {
	return fmt.Sprintf("ticker.%s.%s", strings.ToLower(exchange), strings.ToLower(pair))
}
