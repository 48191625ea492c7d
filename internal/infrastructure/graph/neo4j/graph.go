// Package neo4j resolves related medical conditions from a knowledge graph.
// The graph is optional: deployments without one fall back to metadata tags.
package neo4j

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

type Graph struct {
	driver neo4j.DriverWithContext
}

func New(uri, user, password string) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &Graph{driver: driver}, nil
}

// Related returns names of conditions linked to the given condition,
// deduplicated and lowercased.
func (g *Graph) Related(ctx context.Context, condition string) ([]string, error) {
	condition = strings.ToLower(strings.TrimSpace(condition))
	if condition == "" {
		return nil, nil
	}

	result, err := neo4j.ExecuteQuery(ctx, g.driver,
		`MATCH (c:Condition {name: $name})-[:RELATED_TO]-(other:Condition)
		 RETURN DISTINCT other.name AS name
		 ORDER BY name
		 LIMIT 10`,
		map[string]any{"name": condition},
		neo4j.EagerResultTransformer,
	)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUnavailable, "graph related", err)
	}

	related := make([]string, 0, len(result.Records))
	for _, record := range result.Records {
		name, ok := record.Get("name")
		if !ok {
			continue
		}
		s, ok := name.(string)
		if !ok || s == "" {
			continue
		}
		related = append(related, strings.ToLower(s))
	}
	return related, nil
}

func (g *Graph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}
