package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/lexcorpus-backend/internal/platform/ctxutil"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
	"github.com/yungbote/lexcorpus-backend/internal/platform/vectorstore"
)

const (
	payloadNamespaceKey  = "_lex_namespace"
	payloadChunkIDKey    = "chunk_id"
	payloadDocumentIDKey = "document_id"
	payloadSourceKey     = "source"
	payloadTextKey       = "text"
	payloadCountryKey    = "country"
	maxErrorBodyBytes    = 1024
)

var pointIDNamespaceUUID = uuid.MustParse("6f0c7a52-3b0e-4f0d-9a55-4c8b2f1f7e21")

type vectorStore struct {
	log      *logger.Logger
	cfg      Config
	baseURL  string
	ns       string
	distance string
	http     *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantSearchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// NewVectorStore connects to Qdrant, creating the collection with Euclid distance when absent.
func NewVectorStore(ctx context.Context, log *logger.Logger, cfg Config) (vectorstore.Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	s := &vectorStore{
		log:     log.With("service", "QdrantVectorStore"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		ns:      strings.TrimSpace(cfg.NamespacePrefix),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	s.log.Info(
		"Qdrant vector store selected",
		"url", s.baseURL,
		"collection", cfg.Collection,
		"namespace", s.ns,
		"vector_dim", cfg.VectorDim,
		"distance", s.distance,
	)
	return s, nil
}

func (s *vectorStore) Dimension() int { return s.cfg.VectorDim }

func (s *vectorStore) Upsert(ctx context.Context, records []vectorstore.Record) error {
	const op = "upsert"
	if len(records) == 0 {
		return nil
	}
	if err := vectorstore.CheckDimension(s.cfg.VectorDim, records); err != nil {
		return err
	}

	points := make([]map[string]any, 0, len(records))
	for _, r := range records {
		points = append(points, map[string]any{
			"id":     s.pointID(r.ChunkID),
			"vector": r.Vector,
			"payload": map[string]any{
				payloadNamespaceKey:  s.ns,
				payloadChunkIDKey:    r.ChunkID,
				payloadDocumentIDKey: r.DocumentID,
				payloadSourceKey:     r.Source,
				payloadTextKey:       r.Text,
				payloadCountryKey:    r.Country,
			},
		})
	}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": points}, nil)
}

func (s *vectorStore) Search(ctx context.Context, q []float32, k int) ([]vectorstore.Result, error) {
	const op = "search"
	if k <= 0 || len(q) != s.cfg.VectorDim {
		return []vectorstore.Result{}, nil
	}

	req := map[string]any{
		"vector":       q,
		"limit":        k,
		"with_payload": true,
		"with_vector":  false,
		"filter":       matchAll(map[string]string{payloadNamespaceKey: s.ns}),
	}
	var rawResults []qdrantSearchResultItem
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/search"), req, &rawResults); err != nil {
		return nil, err
	}

	out := make([]vectorstore.Result, 0, len(rawResults))
	for _, item := range rawResults {
		chunkID := payloadString(item.Payload, payloadChunkIDKey)
		if chunkID == "" {
			chunkID = decodePointID(item.ID)
		}
		if chunkID == "" {
			continue
		}
		out = append(out, vectorstore.Result{
			ChunkID:    chunkID,
			DocumentID: payloadString(item.Payload, payloadDocumentIDKey),
			Source:     payloadString(item.Payload, payloadSourceKey),
			Text:       payloadString(item.Payload, payloadTextKey),
			Distance:   s.scoreToDistance(item.Score),
		})
	}
	vectorstore.SortResults(out)
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (s *vectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	const op = "delete_document"
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return opErr(op, OperationErrorValidation, "document id is required", nil)
	}
	req := map[string]any{
		"filter": matchAll(map[string]string{
			payloadNamespaceKey:  s.ns,
			payloadDocumentIDKey: documentID,
		}),
	}
	return s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/delete?wait=true"), req, nil)
}

func (s *vectorStore) ensureCollection(ctx context.Context) error {
	const op = "bootstrap"

	readyReq, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, s.baseURL+"/readyz", nil)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build ready request failed", err)
	}
	s.setHeaders(readyReq)
	readyResp, err := s.http.Do(readyReq)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant ready check failed", err)
	}
	_ = readyResp.Body.Close()
	if readyResp.StatusCode < 200 || readyResp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: readyResp.StatusCode,
			Message:    fmt.Sprintf("qdrant ready check returned status=%d", readyResp.StatusCode),
		}
	}

	var result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err = s.doJSON(ctx, op, http.MethodGet, s.collectionPath(""), nil, &result)
	var opErrTyped *OperationError
	if errors.As(err, &opErrTyped) && opErrTyped.StatusCode == http.StatusNotFound {
		create := map[string]any{
			"vectors": map[string]any{"size": s.cfg.VectorDim, "distance": "Euclid"},
		}
		if err := s.doJSON(ctx, "create_collection", http.MethodPut, s.collectionPath(""), create, nil); err != nil {
			return err
		}
		s.distance = "Euclid"
		s.log.Info("Created qdrant collection", "collection", s.cfg.Collection, "vector_dim", s.cfg.VectorDim)
		return nil
	}
	if err != nil {
		return err
	}

	size := result.Config.Params.Vectors.Size
	if size != 0 && size != s.cfg.VectorDim {
		return &OperationError{
			Code:      OperationErrorValidation,
			Operation: op,
			Message: fmt.Sprintf(
				"qdrant collection %q vector size mismatch: expected=%d actual=%d",
				s.cfg.Collection, s.cfg.VectorDim, size,
			),
			Cause: vectorstore.ErrDimensionMismatch,
		}
	}
	s.distance = strings.TrimSpace(result.Config.Params.Vectors.Distance)
	return nil
}

func (s *vectorStore) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}
}

func (s *vectorStore) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	s.setHeaders(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 64*maxErrorBodyBytes))
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(envelope.Status); statusErr != "" {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    statusErr,
		}
	}
	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}
	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil && strings.TrimSpace(statusObject.Error) != "" {
		return strings.TrimSpace(statusObject.Error)
	}
	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

// matchAll builds a filter requiring every key to equal its value.
func matchAll(conds map[string]string) map[string]any {
	must := make([]any, 0, len(conds))
	for _, key := range sortedKeys(conds) {
		must = append(must, map[string]any{
			"key":   key,
			"match": map[string]any{"value": conds[key]},
		})
	}
	return map[string]any{"must": must}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func payloadString(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func (s *vectorStore) pointID(chunkID string) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(s.ns+"|"+chunkID)).String()
}

func (s *vectorStore) collectionPath(suffix string) string {
	path := "/collections/" + s.cfg.Collection
	if strings.TrimSpace(suffix) == "" {
		return path
	}
	return path + suffix
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var idString string
	if err := json.Unmarshal(raw, &idString); err == nil {
		return strings.TrimSpace(idString)
	}
	var idNumber int64
	if err := json.Unmarshal(raw, &idNumber); err == nil {
		return fmt.Sprintf("%d", idNumber)
	}
	return strings.TrimSpace(string(raw))
}

// scoreToDistance maps the collection's score into an ascending distance.
func (s *vectorStore) scoreToDistance(score float64) float64 {
	switch strings.ToLower(strings.TrimSpace(s.distance)) {
	case "cosine":
		return 1 - score
	case "dot":
		return -score
	default:
		if score < 0 {
			return -score
		}
		return score
	}
}
