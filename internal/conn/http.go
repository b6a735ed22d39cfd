package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hamed0406/liveprobe/internal/probe"
)

// httpDial probes an HTTP endpoint: HEAD first, falling back to GET when
// the server refuses HEAD. Any 2xx/3xx counts as alive.
func httpDial(client *http.Client, target string, creds *probe.Credentials) DialFunc {
	return func(ctx context.Context) (io.Closer, error) {
		resp, err := doHTTP(ctx, client, http.MethodHead, target, creds)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusMethodNotAllowed {
			resp.Body.Close()
			resp, err = doHTTP(ctx, client, http.MethodGet, target, creds)
			if err != nil {
				return nil, err
			}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
		}
		return resp.Body, nil
	}
}

func doHTTP(ctx context.Context, client *http.Client, method, target string, creds *probe.Credentials) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	if creds != nil {
		req.SetBasicAuth(creds.Login, creds.Password)
	}
	return client.Do(req)
}

// StatusError is an HTTP response outside 2xx/3xx.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected http status %s", e.Status)
}

// httpFatal treats rejected credentials as final: retrying will not help.
func httpFatal(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && (se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden)
}
