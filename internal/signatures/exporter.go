package signatures

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nemt_portal_backend/internal/datastore"
	"nemt_portal_backend/internal/scheduler"
	"nemt_portal_backend/platform/logger"
)

// SignatureReader loads signature records.
type SignatureReader interface {
	GetSignature(ctx context.Context, id string) (datastore.SignatureRecord, error)
}

type exportPayload struct {
	SignatureID string `json:"signature_id"`
	ClientID    string `json:"client_id"`
	SignedAt    string `json:"signed_at"`
	DocumentURL string `json:"document_url"`
	SignerName  string `json:"signer_name"`
}

// Exporter posts signature records to the export webhook.
type Exporter struct {
	signatures SignatureReader
	url        string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

func NewExporter(signatures SignatureReader, url, apiKey string, timeout time.Duration, log *logger.Logger) *Exporter {
	return &Exporter{
		signatures: signatures,
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Export loads the signature and delivers it. Errors wrapping
// scheduler.ErrPermanent will not succeed on retry.
func (e *Exporter) Export(ctx context.Context, signatureID string) error {
	sig, err := e.signatures.GetSignature(ctx, signatureID)
	if err != nil {
		if datastore.IsNotFound(err) {
			return fmt.Errorf("signature %s: %w", signatureID, scheduler.ErrPermanent)
		}
		return fmt.Errorf("load signature %s: %w", signatureID, err)
	}

	payload := exportPayload{
		SignatureID: sig.ID,
		ClientID:    sig.ClientID,
		DocumentURL: sig.DocumentURL,
		SignerName:  sig.SignerName,
	}
	if !sig.SignedAt.IsZero() {
		payload.SignedAt = sig.SignedAt.UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal signature export: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%v: %w", err, scheduler.ErrPermanent)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("X-API-Key", e.apiKey)
	}

	start := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.log.WebhookCall("signature_export", 0, time.Since(start), err)
		return fmt.Errorf("post signature export: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("signature export webhook returned status %d", resp.StatusCode)
		e.log.WebhookCall("signature_export", resp.StatusCode, time.Since(start), statusErr)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return fmt.Errorf("%v: %w", statusErr, scheduler.ErrPermanent)
		}
		return statusErr
	}

	e.log.WebhookCall("signature_export", resp.StatusCode, time.Since(start), nil)
	return nil
}

var _ scheduler.SignatureExporter = (*Exporter)(nil)
