package transport

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
)

// ErrStatus is returned when the origin answers with anything but 200 OK.
var ErrStatus = errors.New("unexpected status code")

// Getter issues a single GET and returns the decoded response body.
// Implementations do not retry; retry policy belongs to the caller.
type Getter interface {
	Get(ctx context.Context, rawURL string, cookies ...*http.Cookie) ([]byte, error)
}
