package risk

import "github.com/aegisaware/phishtrack/internal/domain"

// Classify maps aggregated counts to a risk tier. Precedence, highest wins:
//
//	credential submissions >= 1  -> critical
//	clicks >= 3                  -> high
//	clicks == 2                  -> medium
//	clicks == 1                  -> low
//	clicks == 0                  -> none (excluded from vulnerable-user results)
//
// A submission always dominates, regardless of click count.
func Classify(clicks, credentialSubmissions int) domain.RiskLevel {
	switch {
	case credentialSubmissions >= 1:
		return domain.RiskCritical
	case clicks >= 3:
		return domain.RiskHigh
	case clicks == 2:
		return domain.RiskMedium
	case clicks == 1:
		return domain.RiskLow
	default:
		return domain.RiskNone
	}
}
