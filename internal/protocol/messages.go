// Package protocol defines the messages exchanged with the indexing worker.
// Payloads travel as JSON so neither side shares memory with the other.
package protocol

import (
	"encoding/json"
	"fmt"

	"docrag/internal/domain"
)

// Type tags a request or response.
type Type string

// Request types.
const (
	TypeInit       Type = "init"
	TypeBuildIndex Type = "build_index"
	TypeQuery      Type = "query"
	TypeGetMetrics Type = "get_metrics"
	TypeClearCache Type = "clear_cache"
)

// Response types.
const (
	TypeWorkerReady   Type = "worker_ready"
	TypeIndexReady    Type = "index_ready"
	TypeQueryResponse Type = "query_response"
	TypeMetrics       Type = "metrics"
	TypeCacheCleared  Type = "cache_cleared"
	TypeError         Type = "error"
)

// Request is a message sent to the worker. ID correlates the response.
type Request struct {
	ID      string          `json:"id"`
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is a message posted by the worker. Error is set when Type is
// TypeError.
type Response struct {
	ID      string          `json:"id"`
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *ErrorPayload   `json:"error,omitempty"`
}

// NewRequest encodes payload into a request.
func NewRequest(id string, typ Type, payload any) (Request, error) {
	raw, err := encode(payload)
	if err != nil {
		return Request{}, fmt.Errorf("encode %s request: %w", typ, err)
	}
	return Request{ID: id, Type: typ, Payload: raw}, nil
}

// NewResponse encodes payload into a response.
func NewResponse(id string, typ Type, payload any) (Response, error) {
	raw, err := encode(payload)
	if err != nil {
		return Response{}, fmt.Errorf("encode %s response: %w", typ, err)
	}
	return Response{ID: id, Type: typ, Payload: raw}, nil
}

// NewErrorResponse builds an error response.
func NewErrorResponse(id string, e ErrorPayload) Response {
	return Response{ID: id, Type: TypeError, Error: &e}
}

func encode(payload any) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(payload)
}

// Decode unmarshals a raw payload into out. An empty payload leaves out
// untouched.
func Decode(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// InitConfig overrides worker configuration. Model names are carried for
// forward compatibility and do not change scoring.
type InitConfig struct {
	EmbeddingModel  string `json:"embeddingModel,omitempty"`
	QAModel         string `json:"qaModel,omitempty"`
	GenerationModel string `json:"generationModel,omitempty"`
	EnableCache     *bool  `json:"enableCache,omitempty"`
	MaxCacheSize    int64  `json:"maxCacheSize,omitempty"`
}

// InitPayload is the body of an init request.
type InitPayload struct {
	Config *InitConfig `json:"config,omitempty"`
}

// Models lists the configured model names.
type Models struct {
	Embedding  string `json:"embedding"`
	QA         string `json:"qa"`
	Generation string `json:"generation"`
}

// WorkerReady answers init.
type WorkerReady struct {
	Models       Models   `json:"models"`
	Capabilities []string `json:"capabilities"`
}

// BuildIndexPayload is the body of a build_index request.
type BuildIndexPayload struct {
	ID      string               `json:"id"`
	Text    string               `json:"text"`
	Options *domain.BuildOptions `json:"options,omitempty"`
}

// IndexReadyStats summarizes a built index.
type IndexReadyStats struct {
	Chunks           int             `json:"chunks"`
	TotalTokens      int             `json:"totalTokens"`
	AvgChunkSize     float64         `json:"avgChunkSize"`
	ProcessingTimeMs int64           `json:"processingTime"`
	Strategy         domain.Strategy `json:"strategy"`
	Language         domain.Language `json:"language"`
}

// IndexReady answers build_index.
type IndexReady struct {
	ID    string          `json:"id"`
	Stats IndexReadyStats `json:"stats"`
}

// QueryPayload is the body of a query request.
type QueryPayload struct {
	IndexID  string               `json:"indexId"`
	Question string               `json:"question"`
	Options  *domain.QueryOptions `json:"options,omitempty"`
}

// ClearCachePayload is the body of clear_cache and cache_cleared. An empty
// IndexID clears everything.
type ClearCachePayload struct {
	IndexID string `json:"indexId,omitempty"`
}

// ErrorPayload describes a failed request.
type ErrorPayload struct {
	Error       string      `json:"error"`
	Kind        domain.Kind `json:"kind"`
	Context     string      `json:"context,omitempty"`
	Recoverable bool        `json:"recoverable"`
}

// ToError rebuilds a domain error from the payload.
func (p ErrorPayload) ToError() *domain.Error {
	kind := p.Kind
	if kind == "" {
		kind = domain.KindWorkerFault
	}
	return &domain.Error{Kind: kind, Message: p.Error, Context: p.Context, Recoverable: p.Recoverable}
}
