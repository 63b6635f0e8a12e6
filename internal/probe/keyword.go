package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/hamed0406/uptimecore/internal/domain"
)

// KeywordProbe runs the HTTP check and then looks for a case-sensitive
// keyword in the first MiB of the body.
type KeywordProbe struct{}

func (KeywordProbe) Validate(m domain.Monitor) error {
	if err := (HTTPProbe{}).Validate(m); err != nil {
		return err
	}
	if m.Keyword == "" {
		return invalid(m, "keyword", errRequired)
	}
	switch m.KeywordType {
	case "", domain.KeywordExists, domain.KeywordNotExists:
	default:
		return invalid(m, "keyword_type", fmt.Errorf("unknown %q", m.KeywordType))
	}
	return nil
}

func (KeywordProbe) Execute(ctx context.Context, m domain.Monitor, t Transport) domain.CheckResult {
	res, resp := fetch(ctx, m, t, true)
	if res.Status != domain.StatusUp || resp == nil {
		return res
	}

	found := strings.Contains(string(resp.Body), m.Keyword)
	res.KeywordFound = domain.BoolPtr(found)

	if m.KeywordType == domain.KeywordNotExists {
		if found {
			res.Status = domain.StatusDown
			res.ErrorMessage = domain.StrPtr(fmt.Sprintf("keyword %q found in response", m.Keyword))
		}
		return res
	}
	if !found {
		res.Status = domain.StatusDown
		res.ErrorMessage = domain.StrPtr(fmt.Sprintf("keyword %q not found in response", m.Keyword))
	}
	return res
}
