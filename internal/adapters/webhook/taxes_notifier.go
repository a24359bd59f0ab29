package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/enzopoeta/i2a2-final/internal/contracts"
	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/enzopoeta/i2a2-final/internal/ports"
)

type Config struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// TaxesNotifier posts documents to the taxes workflow without waiting for
// the answer. Outcomes are only logged.
type TaxesNotifier struct {
	logger     *slog.Logger
	url        string
	timeout    time.Duration
	httpClient *http.Client
	wg         sync.WaitGroup
}

var _ ports.TaxesNotifier = (*TaxesNotifier)(nil)

func NewTaxesNotifier(logger *slog.Logger, cfg Config) *TaxesNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &TaxesNotifier{
		logger:     logger,
		url:        strings.TrimSpace(cfg.URL),
		timeout:    timeout,
		httpClient: client,
	}
}

// Notify returns immediately. The request outlives ctx so a finished HTTP
// request does not cancel the webhook call.
func (n *TaxesNotifier) Notify(ctx context.Context, doc domain.Document) {
	if n.url == "" {
		return
	}
	body, err := contracts.MarshalEnvelope(doc)
	if err != nil {
		n.log(ctx, doc.AccessKey(), "failure", 0, err)
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		status, err := n.post(callCtx, body)
		if err != nil {
			n.log(callCtx, doc.AccessKey(), "failure", status, err)
			return
		}
		n.log(callCtx, doc.AccessKey(), "success", status, nil)
	}()
}

// Wait blocks until in-flight notifications finish or ctx ends.
func (n *TaxesNotifier) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (n *TaxesNotifier) post(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("taxes webhook returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (n *TaxesNotifier) log(ctx context.Context, key, outcome string, status int, err error) {
	attrs := []any{
		"module", "webhook.taxes_notifier",
		"layer", "adapter",
		"operation", "notify",
		"outcome", outcome,
		"chave_acesso", key,
	}
	if status != 0 {
		attrs = append(attrs, "status_code", status)
	}
	if err != nil {
		n.logger.WarnContext(ctx, "taxes webhook call failed", append(attrs, "error", err)...)
		return
	}
	n.logger.InfoContext(ctx, "taxes webhook call finished", attrs...)
}
