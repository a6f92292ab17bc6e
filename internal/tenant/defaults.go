// AngelaMos | 2026
// defaults.go

package tenant

import (
	"strconv"
	"strings"
)

// DefaultConfigs returns the system configuration every new tenant starts with.
func DefaultConfigs(companyName, subdomain, currency string, overdueDays int) []SystemConfig {
	return []SystemConfig{
		{Key: ConfigCompanyName, Value: companyName, Type: ConfigString},
		{Key: ConfigNextInvoiceNumber, Value: "1", Type: ConfigNumber},
		{Key: ConfigInvoicePrefix, Value: strings.ToUpper(subdomain), Type: ConfigString},
		{Key: ConfigCurrency, Value: currency, Type: ConfigString},
		{Key: ConfigOverdueDays, Value: strconv.Itoa(overdueDays), Type: ConfigNumber},
	}
}
