package classification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/enzopoeta/i2a2-final/internal/contracts"
	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/enzopoeta/i2a2-final/internal/ports"
)

const maxResponseBytes = 16 << 20

type Config struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// HTTPClassifier posts a document to the classification webhook and expects
// the same envelope back with nota_fiscal.classificacao filled in.
type HTTPClassifier struct {
	url        string
	httpClient *http.Client
}

var _ ports.Classifier = (*HTTPClassifier)(nil)

func NewHTTPClassifier(cfg Config) *HTTPClassifier {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPClassifier{url: strings.TrimSpace(cfg.URL), httpClient: client}
}

// Classify fails with domain.ErrDependencyUnavailable for transport errors,
// non-2xx answers and responses that are not a valid envelope for the same
// document. Timeouts additionally wrap context.DeadlineExceeded.
func (c *HTTPClassifier) Classify(ctx context.Context, doc domain.Document) (domain.Document, error) {
	if c.url == "" {
		return domain.Document{}, fmt.Errorf("%w: classification url not configured", domain.ErrDependencyUnavailable)
	}
	body, err := contracts.MarshalEnvelope(doc)
	if err != nil {
		return domain.Document{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.Document{}, fmt.Errorf("build classification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return domain.Document{}, fmt.Errorf("%w: classification timed out: %w", domain.ErrDependencyUnavailable, context.DeadlineExceeded)
		}
		return domain.Document{}, fmt.Errorf("%w: classification request: %v", domain.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: read classification response: %v", domain.ErrDependencyUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Document{}, fmt.Errorf("%w: classification failed: status=%d body=%s",
			domain.ErrDependencyUnavailable, resp.StatusCode, truncate(strings.TrimSpace(string(raw)), 512))
	}

	classified, err := contracts.ParseEnvelope(raw)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: invalid classification response: %v", domain.ErrDependencyUnavailable, err)
	}
	if classified.AccessKey() != doc.AccessKey() {
		return domain.Document{}, fmt.Errorf("%w: classification answered for %s, expected %s",
			domain.ErrDependencyUnavailable, classified.AccessKey(), doc.AccessKey())
	}
	return classified, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
