package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxBodyBytes caps how much of a response body keyword probes inspect.
const maxBodyBytes = 1 << 20

const maxRedirects = 10

// Request is a single outbound HTTP call. The deadline comes from ctx.
type Request struct {
	Method          string
	URL             string
	Headers         map[string]string
	Body            string
	FollowRedirects bool
	VerifyTLS       bool
	ReadBody        bool
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte // only populated when Request.ReadBody is set
	TLS        *tls.ConnectionState
}

// Transport is the outbound network boundary of the probe engine.
type Transport interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
	Connect(ctx context.Context, host string, port int) error
}

// NetTransport implements Transport on net/http and net.Dialer. It keeps one
// pooled transport for verified TLS and one for unverified TLS.
type NetTransport struct {
	verified   *http.Transport
	unverified *http.Transport
	dialer     *net.Dialer
}

func NewNetTransport() *NetTransport {
	base := http.DefaultTransport.(*http.Transport)
	verified := base.Clone()
	unverified := base.Clone()
	unverified.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-out per monitor
	return &NetTransport{
		verified:   verified,
		unverified: unverified,
		dialer:     &net.Dialer{},
	}
}

func (t *NetTransport) Fetch(ctx context.Context, r Request) (*Response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if r.Body != "" {
		body = strings.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, &requestError{err: err}
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	rt := t.verified
	if !r.VerifyTLS {
		rt = t.unverified
	}
	client := &http.Client{
		Transport: rt,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if !r.FollowRedirects {
				return http.ErrUseLastResponse
			}
			// Past the cap the last redirect is judged like any other response.
			if len(via) > maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, TLS: resp.TLS}
	if r.ReadBody {
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		out.Body = b
	} else {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	}
	return out, nil
}

func (t *NetTransport) Connect(ctx context.Context, host string, port int) error {
	conn, err := t.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	return conn.Close()
}

// requestError marks a request that could not be built, as opposed to one
// that failed on the wire.
type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// isTimeout reports whether err (or the probe context) hit its deadline.
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isRequestError(err error) bool {
	var re *requestError
	return errors.As(err, &re)
}

func elapsedMS(start time.Time) int {
	return int(time.Since(start).Milliseconds())
}
