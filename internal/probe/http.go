package probe

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/hamed0406/uptimecore/internal/domain"
)

// HTTPProbe serves the http and https kinds.
type HTTPProbe struct{}

func (HTTPProbe) Validate(m domain.Monitor) error {
	if err := validateURL(m); err != nil {
		return err
	}
	if _, err := ParseStatusCodes(m.ExpectedStatusCodes); err != nil {
		return invalid(m, "expected_status_codes", err)
	}
	return nil
}

func (HTTPProbe) Execute(ctx context.Context, m domain.Monitor, t Transport) domain.CheckResult {
	res, _ := fetch(ctx, m, t, false)
	return res
}

// fetch performs the monitor's HTTP request and classifies the outcome. The
// response is returned only when the status matched the expected set.
func fetch(ctx context.Context, m domain.Monitor, t Transport, readBody bool) (domain.CheckResult, *Response) {
	expected, err := ParseStatusCodes(m.ExpectedStatusCodes)
	if err != nil {
		return domain.CheckResult{Status: domain.StatusError, ErrorMessage: domain.StrPtr(err.Error())}, nil
	}

	req := Request{
		Method:          m.Method,
		URL:             m.URL,
		Headers:         requestHeaders(m),
		Body:            m.Body,
		FollowRedirects: m.FollowRedirects,
		VerifyTLS:       m.VerifyTLS,
		ReadBody:        readBody,
	}

	start := time.Now()
	resp, err := t.Fetch(ctx, req)
	if err != nil {
		return classify(ctx, err), nil
	}

	res := domain.CheckResult{
		ResponseTimeMS: domain.IntPtr(elapsedMS(start)),
		StatusCode:     domain.IntPtr(resp.StatusCode),
	}
	if !expected.Contains(resp.StatusCode) {
		res.Status = domain.StatusDown
		res.ErrorMessage = domain.StrPtr(fmt.Sprintf("unexpected status code %d (expected %s)", resp.StatusCode, expected))
		return res, nil
	}
	res.Status = domain.StatusUp
	return res, resp
}

func requestHeaders(m domain.Monitor) map[string]string {
	h := make(map[string]string, len(m.Headers)+1)
	for k, v := range m.Headers {
		h[k] = v
	}
	switch m.Auth.Type {
	case domain.AuthBasic:
		cred := base64.StdEncoding.EncodeToString([]byte(m.Auth.Username + ":" + m.Auth.Password))
		h["Authorization"] = "Basic " + cred
	case domain.AuthBearer:
		h["Authorization"] = "Bearer " + m.Auth.Token
	}
	return h
}

// classify maps a failed request to timeout, error or down.
func classify(ctx context.Context, err error) domain.CheckResult {
	switch {
	case isTimeout(ctx, err):
		return domain.CheckResult{Status: domain.StatusTimeout, ErrorMessage: domain.StrPtr("request timed out")}
	case isRequestError(err):
		return domain.CheckResult{Status: domain.StatusError, ErrorMessage: domain.StrPtr(err.Error())}
	default:
		return down(err.Error())
	}
}
