package application_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/enzopoeta/i2a2-final/internal/ports"
	"github.com/shopspring/decimal"
)

// memoryStore implements every repository port over maps.
type memoryStore struct {
	mu         sync.Mutex
	docs       map[string]domain.Document
	analyses   map[string]ports.FiscalAnalysis
	nextID     int64
	statsReads int
	upsertErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: map[string]domain.Document{}, analyses: map[string]ports.FiscalAnalysis{}}
}

func (m *memoryStore) UpsertDocument(_ context.Context, doc domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	key := doc.AccessKey()
	prev, exists := m.docs[key]
	if exists && !doc.Classified() {
		doc.NotaFiscal.Classificacao = prev.NotaFiscal.Classificacao
	}
	if exists {
		seen := map[int]bool{}
		for _, it := range prev.Items {
			seen[it.NumeroProduto] = true
		}
		items := prev.Items
		for _, it := range doc.Items {
			if !seen[it.NumeroProduto] {
				items = append(items, it)
				seen[it.NumeroProduto] = true
			}
		}
		doc.Items = items
	}
	m.docs[key] = doc
	return nil
}

func (m *memoryStore) ListDocuments(context.Context) ([]ports.DocumentSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.DocumentSummary, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, ports.DocumentSummary{
			ChaveAcesso: d.AccessKey(), NumeroNF: d.NotaFiscal.NumeroNF, DataEmissao: d.NotaFiscal.DataEmissao.Ptr(),
			ValorNotaFiscal: d.NotaFiscal.ValorNotaFiscal, Classificacao: d.NotaFiscal.Classificacao, TotalItems: len(d.Items),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChaveAcesso < out[j].ChaveAcesso })
	return out, nil
}

func (m *memoryStore) GetDocument(_ context.Context, key string) (domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[key]
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrNotFound, key)
	}
	return d, nil
}

func (m *memoryStore) GetTaxTotals(_ context.Context, key string) (*domain.DocumentTaxTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[key].ImpostosNota, nil
}

func (m *memoryStore) ListItemTaxes(_ context.Context, key string) ([]domain.ItemTaxBreakdown, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ItemTaxBreakdown{}, m.docs[key].ImpostosItems...), nil
}

func (m *memoryStore) DocumentExists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[key]
	return ok, nil
}

func (m *memoryStore) Statistics(context.Context) (ports.Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsReads++
	var stats ports.Statistics
	for _, d := range m.docs {
		stats.NotasFiscais++
		stats.ItensNotaFiscal += int64(len(d.Items))
		stats.TotalValue = stats.TotalValue.Add(d.NotaFiscal.ValorNotaFiscal)
		if d.Classified() {
			stats.NotasClassificadas++
		}
	}
	return stats, nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }

func (m *memoryStore) ClearAll(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = map[string]domain.Document{}
	m.analyses = map[string]ports.FiscalAnalysis{}
	return []string{"analise_fiscal", "impostos_item", "impostos_nota_fiscal", "itensnotafiscal", "notasfiscais"}, nil
}

func (m *memoryStore) EnsureSchema(context.Context) error { return nil }

func (m *memoryStore) SaveAnalysis(_ context.Context, a ports.FiscalAnalysis, now time.Time) (ports.FiscalAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[a.ChaveAcesso]; !ok {
		return ports.FiscalAnalysis{}, fmt.Errorf("%w: %s", domain.ErrNotFound, a.ChaveAcesso)
	}
	if prev, ok := m.analyses[a.ChaveAcesso]; ok {
		a.ID = prev.ID
		a.DataCriacao = prev.DataCriacao
	} else {
		m.nextID++
		a.ID = m.nextID
		a.DataCriacao = now
	}
	a.EmProcessamento = false
	a.DataAtualizacao = now
	m.analyses[a.ChaveAcesso] = a
	return a, nil
}

func (m *memoryStore) SetProcessing(_ context.Context, key string, processing bool, now time.Time) (ports.FiscalAnalysis, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.analyses[key]; ok {
		a.EmProcessamento = processing
		a.DataAtualizacao = now
		m.analyses[key] = a
		return a, false, nil
	}
	if _, ok := m.docs[key]; !ok {
		return ports.FiscalAnalysis{}, false, fmt.Errorf("%w: %s", domain.ErrNotFound, key)
	}
	m.nextID++
	a := ports.FiscalAnalysis{ID: m.nextID, ChaveAcesso: key, EmProcessamento: processing, DataCriacao: now, DataAtualizacao: now}
	m.analyses[key] = a
	return a, true, nil
}

func (m *memoryStore) GetAnalysis(_ context.Context, key string) (ports.FiscalAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[key]
	if !ok {
		return ports.FiscalAnalysis{}, fmt.Errorf("%w: %s", domain.ErrNotFound, key)
	}
	return a, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []domain.Document
	failKeys  map[string]bool
}

func (p *fakePublisher) Publish(_ context.Context, doc domain.Document) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failKeys[doc.AccessKey()] {
		return false
	}
	p.published = append(p.published, doc)
	return true
}

type fakeClassifier struct {
	tag string
	err error
}

func (c fakeClassifier) Classify(_ context.Context, doc domain.Document) (domain.Document, error) {
	if c.err != nil {
		return domain.Document{}, c.err
	}
	tag := c.tag
	doc.NotaFiscal.Classificacao = &tag
	return doc, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	keys []string
}

func (n *fakeNotifier) Notify(_ context.Context, doc domain.Document) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.keys = append(n.keys, doc.AccessKey())
}

type fakeCache struct {
	mu      sync.Mutex
	items   map[string]string
	deletes int
}

func newFakeCache() *fakeCache { return &fakeCache{items: map[string]string{}} }

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[key], nil
}

func (c *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	c.deletes++
	return nil
}

type publishedEvent struct {
	eventType    string
	payload      []byte
	partitionKey string
}

type fakeEvents struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (e *fakeEvents) Publish(_ context.Context, eventType string, payload []byte, partitionKey string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, publishedEvent{eventType: eventType, payload: payload, partitionKey: partitionKey})
	return nil
}

type fakeExtractor struct {
	batch ports.ExtractedBatch
	doc   domain.Document
	err   error
}

func (e fakeExtractor) ExtractArchive([]byte) (ports.ExtractedBatch, error) { return e.batch, e.err }

func (e fakeExtractor) ExtractXML([]byte) (domain.Document, error) { return e.doc, e.err }

const sampleKey = "35250512345678000199550010000000011234567890"

func sampleDocument(key string) domain.Document {
	return domain.Document{
		NotaFiscal: domain.FiscalDocument{
			ChaveAcesso:     key,
			HeaderSnapshot:  domain.HeaderSnapshot{NumeroNF: "1", UFEmitente: "SP", UFDestinatario: "RJ"},
			ValorNotaFiscal: decimal.RequireFromString("150.50"),
		},
		Items: []domain.LineItem{
			{ChaveAcessoNF: key, NumeroProduto: 1, ValorTotal: decimal.RequireFromString("100.50")},
			{ChaveAcessoNF: key, NumeroProduto: 2, ValorTotal: decimal.RequireFromString("50")},
		},
	}
}

func otherKey(suffix string) string {
	return sampleKey[:len(sampleKey)-len(suffix)] + suffix
}
