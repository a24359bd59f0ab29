package contracts

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed envelope.schema.json
var envelopeSchemaRaw string

var envelopeSchema = jsonschema.MustCompileString("envelope.schema.json", envelopeSchemaRaw)

// ParseEnvelope decodes a queue payload into a Document. Any failure wraps
// domain.ErrMalformedPayload: the payload is not JSON, breaks the envelope
// schema, or carries values that do not decode (dates, amounts).
func ParseEnvelope(raw []byte) (domain.Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return domain.Document{}, fmt.Errorf("%w: empty body", domain.ErrMalformedPayload)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if err := envelopeSchema.Validate(generic); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	var doc domain.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	normalize(&doc)
	if err := domain.ValidateAccessKey(doc.AccessKey()); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	return doc, nil
}

// MarshalEnvelope is the inverse of ParseEnvelope.
func MarshalEnvelope(doc domain.Document) ([]byte, error) {
	if err := domain.ValidateAccessKey(doc.AccessKey()); err != nil {
		return nil, err
	}
	if doc.Items == nil {
		doc.Items = []domain.LineItem{}
	}
	return json.Marshal(doc)
}

// normalize fills the child keys from the header so every sub-record carries
// the parent access key.
func normalize(doc *domain.Document) {
	key := strings.TrimSpace(doc.NotaFiscal.ChaveAcesso)
	doc.NotaFiscal.ChaveAcesso = key
	for i := range doc.Items {
		doc.Items[i].ChaveAcessoNF = key
	}
	if doc.ImpostosNota != nil {
		doc.ImpostosNota.ChaveAcessoNF = key
	}
	for i := range doc.ImpostosItems {
		doc.ImpostosItems[i].ChaveAcessoNF = key
	}
}
