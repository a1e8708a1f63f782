package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/lexcorpus-backend/internal/domain"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
	"github.com/yungbote/lexcorpus-backend/internal/platform/neo4jdb"
)

const (
	KindLaw     = "law"
	KindCase    = "case"
	KindArticle = "article"
)

// CitingDocument is a document that cites a reference, as stored in the graph.
type CitingDocument struct {
	DocumentID uuid.UUID `json:"document_id"`
	Filename   string    `json:"filename"`
	Country    string    `json:"country"`
	Mentions   int64     `json:"mentions"`
}

// Citations mirrors document -> reference edges into Neo4j. A nil client turns every call into a no-op.
type Citations struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewCitations(client *neo4jdb.Client, log *logger.Logger) *Citations {
	return &Citations{client: client, log: log.With("graph", "Citations")}
}

func (c *Citations) Enabled() bool {
	return c != nil && c.client != nil && c.client.Driver != nil
}

// SyncDocument replaces the CITES edges of doc with the references found across its chunks.
func (c *Citations) SyncDocument(ctx context.Context, doc *types.Document, chunks []*types.Chunk) error {
	if !c.Enabled() || doc == nil || doc.ID == uuid.Nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	rows := citationRows(chunks)

	session := c.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.client.Database,
	})
	defer session.Close(ctx)

	// Best-effort schema init.
	for _, q := range []string{
		`CREATE CONSTRAINT legal_document_id_unique IF NOT EXISTS FOR (d:LegalDocument) REQUIRE d.id IS UNIQUE`,
		`CREATE CONSTRAINT reference_key_unique IF NOT EXISTS FOR (r:Reference) REQUIRE r.key IS UNIQUE`,
	} {
		if res, err := session.Run(ctx, q, nil); err != nil {
			c.log.Warn("neo4j schema init failed (continuing)", "error", err)
		} else {
			_, _ = res.Consume(ctx)
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (d:LegalDocument {id: $doc.id})
SET d += $doc
WITH d
OPTIONAL MATCH (d)-[old:CITES]->(:Reference)
DELETE old
`, map[string]any{
			"doc": map[string]any{
				"id":            doc.ID.String(),
				"filename":      doc.Filename,
				"country":       doc.Country,
				"document_type": doc.DocumentType,
				"uploaded_at":   doc.UploadedAt.UTC().Format(time.RFC3339Nano),
				"synced_at":     now,
			},
		})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		res, err = tx.Run(ctx, `
UNWIND $refs AS r
MATCH (d:LegalDocument {id: $doc_id})
MERGE (ref:Reference {key: r.key})
SET ref.kind = r.kind, ref.text = r.text
MERGE (d)-[e:CITES]->(ref)
SET e.mentions = r.mentions, e.synced_at = $synced_at
`, map[string]any{"doc_id": doc.ID.String(), "refs": rows, "synced_at": now})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("neo4j sync document %s: %w", doc.ID, err)
	}
	return nil
}

func (c *Citations) DeleteDocument(ctx context.Context, documentID uuid.UUID) error {
	if !c.Enabled() || documentID == uuid.Nil {
		return nil
	}
	session := c.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (d:LegalDocument {id: $id})
DETACH DELETE d
WITH 1 AS done
MATCH (r:Reference) WHERE NOT (r)<-[:CITES]-()
DELETE r
`, map[string]any{"id": documentID.String()})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("neo4j delete document %s: %w", documentID, err)
	}
	return nil
}

// DocumentsCiting lists documents whose chunks cite ref, most mentions first.
func (c *Citations) DocumentsCiting(ctx context.Context, ref string, limit int) ([]CitingDocument, error) {
	if !c.Enabled() {
		return nil, nil
	}
	key := ReferenceKey(ref)
	if key == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	session := c.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: c.client.Database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (d:LegalDocument)-[e:CITES]->(r:Reference {key: $key})
RETURN d.id AS id, d.filename AS filename, d.country AS country, e.mentions AS mentions
ORDER BY mentions DESC, filename ASC
LIMIT $limit
`, map[string]any{"key": key, "limit": int64(limit)})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		docs := make([]CitingDocument, 0, len(records))
		for _, rec := range records {
			raw, _ := rec.Get("id")
			id, err := uuid.Parse(fmt.Sprint(raw))
			if err != nil {
				continue
			}
			d := CitingDocument{DocumentID: id}
			if v, ok := rec.Get("filename"); ok && v != nil {
				d.Filename = fmt.Sprint(v)
			}
			if v, ok := rec.Get("country"); ok && v != nil {
				d.Country = fmt.Sprint(v)
			}
			if v, ok := rec.Get("mentions"); ok {
				if n, ok := v.(int64); ok {
					d.Mentions = n
				}
			}
			docs = append(docs, d)
		}
		return docs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j documents citing %q: %w", ref, err)
	}
	docs, _ := out.([]CitingDocument)
	return docs, nil
}

// ReferenceKey is the case- and whitespace-insensitive identity of a reference.
func ReferenceKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(s), " ")
}

func citationRows(chunks []*types.Chunk) []map[string]any {
	type agg struct {
		kind, text string
		mentions   int64
	}
	byKey := map[string]*agg{}
	order := []string{}
	add := func(kind string, refs []string) {
		for _, r := range refs {
			key := ReferenceKey(r)
			if key == "" {
				continue
			}
			if a, ok := byKey[key]; ok {
				a.mentions++
				continue
			}
			byKey[key] = &agg{kind: kind, text: strings.Join(strings.Fields(r), " "), mentions: 1}
			order = append(order, key)
		}
	}
	for _, ch := range chunks {
		if ch == nil {
			continue
		}
		refs := ch.DecodeReferences()
		add(KindLaw, refs.Laws)
		add(KindArticle, refs.Articles)
		add(KindCase, refs.Cases)
	}
	rows := make([]map[string]any, 0, len(order))
	for _, key := range order {
		a := byKey[key]
		rows = append(rows, map[string]any{"key": key, "kind": a.kind, "text": a.text, "mentions": a.mentions})
	}
	return rows
}
