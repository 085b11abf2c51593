// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mock

import "github.com/poiesic/legisearch/ai"

// MockProvider implements ai.Provider using mock services.
type MockProvider struct {
	embedder   *MockEmbedder
	classifier *MockClassifier
	inferrer   *MockSchemaInferrer
}

// NewMockProvider creates a mock AI provider with default mock services.
func NewMockProvider() ai.Provider {
	return &MockProvider{
		embedder:   NewMockEmbedder(),
		classifier: NewMockClassifier(),
		inferrer:   NewMockSchemaInferrer(),
	}
}

// NewMockProviderWithServices creates a mock provider with specific mock
// services, allowing tests to pre-configure behavior.
func NewMockProviderWithServices(embedder *MockEmbedder, classifier *MockClassifier, inferrer *MockSchemaInferrer) ai.Provider {
	return &MockProvider{
		embedder:   embedder,
		classifier: classifier,
		inferrer:   inferrer,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Classifier returns the mock classifier.
func (p *MockProvider) Classifier() ai.Classifier {
	return p.classifier
}

// SchemaInferrer returns the mock schema inferrer.
func (p *MockProvider) SchemaInferrer() ai.SchemaInferrer {
	return p.inferrer
}

// Close implements ai.Provider. No resources to release.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test configuration.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockClassifier returns the underlying mock classifier for test configuration.
func (p *MockProvider) GetMockClassifier() *MockClassifier {
	return p.classifier
}

// GetMockInferrer returns the underlying mock schema inferrer for test configuration.
func (p *MockProvider) GetMockInferrer() *MockSchemaInferrer {
	return p.inferrer
}
