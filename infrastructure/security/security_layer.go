package security

import (
	"fmt"
	"strings"
	"unicode"

	"browser_agent/domain/entities"
	"browser_agent/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// matched as whole selector tokens
var destructiveKeywords = []string{
	"delete", "remove", "cancel", "clear", "reset", "trash", "unsubscribe",
}

// matched as token prefixes, so "checkoutBtn" and "payment" count
var paymentKeywords = []string{
	"pay", "checkout", "buy", "purchase", "order", "confirm", "placeorder",
}

type SecurityLayer struct {
	logger *logrus.Logger
}

func NewSecurityLayer(logger *logrus.Logger) *SecurityLayer {
	return &SecurityLayer{
		logger: logger,
	}
}

// AssessStep - grades a step by what it can change on the remote site
func (s *SecurityLayer) AssessStep(step entities.Step) (entities.RiskLevel, string) {
	switch st := step.(type) {
	case entities.SubmitForm:
		return entities.RiskHigh, "submits a form"
	case entities.Click:
		for _, sel := range st.Selectors {
			if kw, ok := matchToken(sel, destructiveKeywords, false); ok {
				return entities.RiskHigh, fmt.Sprintf("clicks a %q control", kw)
			}
			if kw, ok := matchToken(sel, paymentKeywords, true); ok {
				return entities.RiskHigh, fmt.Sprintf("clicks a %q control", kw)
			}
		}
		return entities.RiskMedium, "clicks on the page"
	case entities.Navigate:
		if kw, ok := matchToken(st.URL, paymentKeywords, true); ok {
			return entities.RiskMedium, fmt.Sprintf("opens a %q page", kw)
		}
		return entities.RiskLow, ""
	case entities.Type, entities.FillFormField:
		return entities.RiskMedium, "enters text"
	default:
		return entities.RiskLow, ""
	}
}

// PendingActions - high risk steps of plan, numbered from 1
func (s *SecurityLayer) PendingActions(plan entities.Plan) []entities.PendingAction {
	var pending []entities.PendingAction
	for i, step := range plan {
		risk, reason := s.AssessStep(step)
		if risk != entities.RiskHigh {
			continue
		}
		pending = append(pending, entities.PendingAction{
			Step:   i + 1,
			Action: step.Action(),
			Risk:   risk,
			Reason: reason,
		})
	}
	if len(pending) > 0 {
		s.logger.WithField("count", len(pending)).Debug("plan has steps needing confirmation")
	}
	return pending
}

func matchToken(s string, keywords []string, prefix bool) (string, bool) {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		for _, kw := range keywords {
			if tok == kw || (prefix && strings.HasPrefix(tok, kw)) {
				return kw, true
			}
		}
	}
	return "", false
}

var _ interfaces.StepGuard = (*SecurityLayer)(nil)
