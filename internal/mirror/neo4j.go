package mirror

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ppiankov/ontograph/internal/logger"
	"github.com/ppiankov/ontograph/internal/model"
)

// Neo4jWriter writes mirror batches to a neo4j database
type Neo4jWriter struct {
	driver   neo4j.DriverWithContext
	database string
	log      *logger.Logger
}

// Connect opens a driver and verifies connectivity
func Connect(ctx context.Context, cfg model.MirrorConfig, log *logger.Logger) (*Neo4jWriter, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j mirror: missing uri")
	}
	if log == nil {
		log = logger.Nop()
	}

	auth := neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		c.SocketConnectTimeout = 10 * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j mirror: init driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j mirror: verify connectivity: %w", err)
	}

	return &Neo4jWriter{driver: driver, database: cfg.Database, log: log.With("client", "Neo4jMirror")}, nil
}

// EnsureSchema creates the term id constraint. Failures are logged only;
// restricted users may not be allowed to manage schema.
func (w *Neo4jWriter) EnsureSchema(ctx context.Context) {
	session := w.session(ctx)
	defer func() { _ = session.Close(ctx) }()

	res, err := session.Run(ctx, `CREATE CONSTRAINT term_id_unique IF NOT EXISTS FOR (t:Term) REQUIRE t.id IS UNIQUE`, nil)
	if err != nil {
		w.log.Warn("neo4j schema init failed (continuing)", "error", err)
		return
	}
	_, _ = res.Consume(ctx)
}

// WriteBatch merges the batch's terms and edges in one transaction
func (w *Neo4jWriter) WriteBatch(ctx context.Context, batch Batch) error {
	session := w.session(ctx)
	defer func() { _ = session.Close(ctx) }()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(batch.Nodes) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $nodes AS n
MERGE (t:Term {id: n.id})
SET t += n
`, map[string]any{"nodes": batch.Nodes})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if len(batch.Edges) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rels AS r
MATCH (a:Term {id: r.source_id})
MATCH (b:Term {id: r.target_id})
MERGE (a)-[e:RELATES {predicate: r.predicate}]->(b)
SET e.confidence = r.confidence,
    e.evidence_json = r.evidence_json,
    e.occurrence_count = r.occurrence_count,
    e.relation_type = r.relation_type,
    e.weight = r.weight,
    e.last_verified_at = r.last_verified_at,
    e.synced_at = r.synced_at
`, map[string]any{"rels": batch.Edges})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j mirror: write batch: %w", err)
	}
	return nil
}

// Close releases the driver
func (w *Neo4jWriter) Close(ctx context.Context) error {
	if w == nil || w.driver == nil {
		return nil
	}
	return w.driver.Close(ctx)
}

func (w *Neo4jWriter) session(ctx context.Context) neo4j.SessionWithContext {
	return w.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: w.database,
	})
}
