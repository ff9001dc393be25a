package contentservice

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/anatomy-twin-server/internal/domain"
)

// Runner executes a read query and returns each record as a key/value map.
type Runner interface {
	Read(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
	Close(ctx context.Context) error
}

// driverRunner runs queries in managed read transactions.
type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jRunner connects to Neo4j and verifies connectivity.
func NewNeo4jRunner(ctx context.Context, config domain.Neo4jConfig) (Runner, error) {
	driver, err := neo4j.NewDriverWithContext(config.URI, neo4j.BasicAuth(config.Username, config.Password, ""), func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = 50
		c.MaxConnectionLifetime = time.Hour
		c.ConnectionAcquisitionTimeout = 60 * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("%w: neo4j: %v", ErrUnavailable, err)
	}

	database := config.Database
	if database == "" {
		database = "neo4j"
	}
	return &driverRunner{driver: driver, database: database}, nil
}

func (r *driverRunner) Read(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: r.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var rows []map[string]any
		for result.Next(ctx) {
			rows = append(rows, result.Record().AsMap())
		}
		return rows, result.Err()
	})
	if err != nil {
		return nil, err
	}
	rows, _ := out.([]map[string]any)
	return rows, nil
}

func (r *driverRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// Graph layout: every node carries the label :Node plus id, type, name and
// optional list properties; edges are :RELATED with a kind property.
const (
	anatomyQuery = `
		MATCH (n:Node {id: $id, type: 'anatomy'})
		RETURN n.region_id AS id, n.name AS name, n.spanish_name AS spanish,
		       n.body_system AS system, n.location AS location, n.description AS function,
		       n.conditions AS conditions, n.symptoms AS symptoms, n.procedures AS procedures`

	symptomsQuery = `
		MATCH (s:Node {type: 'symptom'})
		WHERE toLower(s.primary_region) = toLower($region)
		   OR any(r IN coalesce(s.body_regions, []) WHERE toLower(r) = toLower($region))
		RETURN s.symptom_id AS id, s.name AS name, s.description AS description,
		       s.body_regions AS body_regions, s.primary_region AS primary_region,
		       s.possible_causes AS possible_causes
		ORDER BY s.name`

	specialtiesQuery = `
		MATCH (s:Node {type: 'specialty'})
		WHERE any(b IN coalesce(s.body_systems, []) WHERE toLower(b) = toLower($system))
		RETURN s.specialty_id AS id, s.name AS name, s.body_systems AS body_systems,
		       s.description AS description
		ORDER BY s.name`

	relatedQuery = `
		MATCH (n:Node {id: $id})-[r:RELATED]->(m:Node)
		WHERE ($rel = '' OR r.kind = $rel) AND ($type = '' OR m.type = $type)
		RETURN m.id AS id, m.type AS type, m.name AS name, m.spanish_name AS spanish_name,
		       m.aliases AS aliases, m.body_system AS body_system, m.code AS code,
		       m.description AS description, 0 AS direction
		UNION ALL
		MATCH (n:Node {id: $id})<-[r:RELATED]-(m:Node)
		WHERE ($rel = '' OR r.kind = $rel) AND ($type = '' OR m.type = $type)
		RETURN m.id AS id, m.type AS type, m.name AS name, m.spanish_name AS spanish_name,
		       m.aliases AS aliases, m.body_system AS body_system, m.code AS code,
		       m.description AS description, 1 AS direction`
)

// Neo4jClient serves content-service queries from a Neo4j graph.
type Neo4jClient struct {
	runner Runner
	log    *logrus.Logger
}

var _ Client = (*Neo4jClient)(nil)

func NewNeo4jClient(runner Runner, logger *logrus.Logger) *Neo4jClient {
	return &Neo4jClient{runner: runner, log: logger}
}

func (c *Neo4jClient) GetAnatomyRegion(ctx context.Context, regionID string) (*domain.AnatomyRegion, error) {
	rows, err := c.read(ctx, "anatomy", anatomyQuery, map[string]any{"id": domain.AnatomyNamespace + regionID})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	row := rows[0]
	region := &domain.AnatomyRegion{
		ID:         stringProp(row, "id"),
		Name:       stringProp(row, "name"),
		Spanish:    stringProp(row, "spanish"),
		System:     stringProp(row, "system"),
		Location:   stringProp(row, "location"),
		Function:   stringProp(row, "function"),
		Conditions: stringsProp(row, "conditions"),
		Symptoms:   stringsProp(row, "symptoms"),
		Procedures: stringsProp(row, "procedures"),
	}
	if region.ID == "" {
		region.ID = regionID
	}
	return region, nil
}

func (c *Neo4jClient) GetSymptomsByRegion(ctx context.Context, regionID string) ([]domain.SymptomEntry, error) {
	rows, err := c.read(ctx, "symptoms", symptomsQuery, map[string]any{"region": regionID})
	if err != nil {
		return nil, err
	}
	out := make([]domain.SymptomEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.SymptomEntry{
			ID:             stringProp(row, "id"),
			Name:           stringProp(row, "name"),
			Description:    stringProp(row, "description"),
			BodyRegions:    stringsProp(row, "body_regions"),
			PrimaryRegion:  stringProp(row, "primary_region"),
			PossibleCauses: stringsProp(row, "possible_causes"),
		})
	}
	return out, nil
}

func (c *Neo4jClient) GetSpecialtiesForBodySystem(ctx context.Context, system string) ([]domain.MedicalSpecialty, error) {
	rows, err := c.read(ctx, "specialties", specialtiesQuery, map[string]any{"system": system})
	if err != nil {
		return nil, err
	}
	out := make([]domain.MedicalSpecialty, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.MedicalSpecialty{
			ID:          stringProp(row, "id"),
			Name:        stringProp(row, "name"),
			BodySystems: stringsProp(row, "body_systems"),
			Description: stringProp(row, "description"),
		})
	}
	return out, nil
}

// GetRelated returns outgoing neighbours before incoming ones, each once.
func (c *Neo4jClient) GetRelated(ctx context.Context, nodeID string, filter RelatedFilter) ([]domain.KnowledgeNode, error) {
	rows, err := c.read(ctx, "related", relatedQuery, map[string]any{
		"id":   nodeID,
		"rel":  string(filter.Relationship),
		"type": string(filter.TargetType),
	})
	if err != nil {
		return nil, err
	}

	var outgoing, incoming []domain.KnowledgeNode
	for _, row := range rows {
		node := domain.KnowledgeNode{
			ID:          stringProp(row, "id"),
			Type:        domain.NodeType(stringProp(row, "type")),
			Name:        stringProp(row, "name"),
			SpanishName: stringProp(row, "spanish_name"),
			Aliases:     stringsProp(row, "aliases"),
			BodySystem:  stringProp(row, "body_system"),
			Code:        stringProp(row, "code"),
			Description: stringProp(row, "description"),
		}
		if dir, _ := row["direction"].(int64); dir == 1 {
			incoming = append(incoming, node)
		} else {
			outgoing = append(outgoing, node)
		}
	}
	return appendUnique(appendUnique([]domain.KnowledgeNode{}, outgoing), incoming), nil
}

// Close releases the underlying driver.
func (c *Neo4jClient) Close(ctx context.Context) error {
	return c.runner.Close(ctx)
}

func (c *Neo4jClient) read(ctx context.Context, op, cypher string, params map[string]any) ([]map[string]any, error) {
	rows, err := c.runner.Read(ctx, cypher, params)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"operation": op,
			"params":    params,
			"error":     err,
		}).Error("Neo4j read failed")
		return nil, fmt.Errorf("%w: neo4j %s: %v", ErrUnavailable, op, err)
	}
	return rows, nil
}

func stringProp(row map[string]any, key string) string {
	s, _ := row[key].(string)
	return s
}

// stringsProp accepts both []string and the []any lists the driver returns.
func stringsProp(row map[string]any, key string) []string {
	switch v := row[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
