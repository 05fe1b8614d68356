package loader_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/documentModel"
)

// MockCompleter implements loader.Completer
type MockCompleter struct {
	Calls      int32
	OnComplete func(ctx context.Context, prompt string, model string) (string, error)
}

func (m *MockCompleter) Complete(ctx context.Context, prompt string, model string) (string, error) {
	atomic.AddInt32(&m.Calls, 1)
	if m.OnComplete != nil {
		return m.OnComplete(ctx, prompt, model)
	}
	return "BEGIN_LOADER\nIMSI | subscriber_id | 15 digits\nEND_LOADER", nil
}

func (m *MockCompleter) DefaultModel() string {
	return "mock-model"
}

// MockExtractor implements extract.Extractor
type MockExtractor struct {
	OnExtract func(ctx context.Context, doc documentModel.UploadedDocument) documentModel.ExtractionResult
}

func (m *MockExtractor) Extract(ctx context.Context, doc documentModel.UploadedDocument) documentModel.ExtractionResult {
	if m.OnExtract != nil {
		return m.OnExtract(ctx, doc)
	}
	return documentModel.ExtractionResult{
		Document: doc,
		Status:   documentModel.ExtractionOK,
		Text:     "TEXT OF " + doc.OriginalName,
		Pages:    1,
	}
}

// MockPublisher implements publish.Publisher
type MockPublisher struct {
	mu        sync.Mutex
	Prefixes  []string
	Files     [][]string
	OnPublish func(ctx context.Context, prefix string, files []string) error
}

func (m *MockPublisher) Publish(ctx context.Context, prefix string, files []string) error {
	m.mu.Lock()
	m.Prefixes = append(m.Prefixes, prefix)
	m.Files = append(m.Files, files)
	m.mu.Unlock()
	if m.OnPublish != nil {
		return m.OnPublish(ctx, prefix, files)
	}
	return nil
}
