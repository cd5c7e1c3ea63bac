package socialgraph

import (
	"context"
	"fmt"
	"reflect"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"

	"github.com/saulfrancisco-ruizacevedo/go-socialgraph/models"
)

// ErrNotFound is returned by Find operations when no record matching the criteria is
// found in the database. It is the same sentinel the aggregator reports for a missing
// focal person.
var ErrNotFound = models.ErrNotFound

// Repository provides a generic abstraction for CRUD operations for a specific
// entity type T. It relies on struct tags to map struct fields to node properties.
type Repository[T any] struct {
	runner DBRunner
	meta   *entityMetadata
}

// NewRepository creates a new generic repository for the type T.
// It parses the struct tags of T to understand its mapping to a Neo4j node.
//
// Parameters:
//   - runner: An instance of DBRunner, used to execute all Cypher queries.
//
// Returns:
//
//	A new Repository instance or an error if the struct tags are invalid.
func NewRepository[T any](runner DBRunner) (*Repository[T], error) {
	meta, err := parseTags[T]()
	if err != nil {
		return nil, err
	}
	return &Repository[T]{
		runner: runner,
		meta:   meta,
	}, nil
}

// Save creates a new node or updates an existing one.
// It uses a MERGE query based on the struct's primary key (`pk` tag); all other mapped
// fields are set on the node. When T has an `elementId` field it is filled from the
// stored node.
//
// Parameters:
//   - ctx: The context for the query execution.
//   - entity: A pointer to the struct instance to be saved.
//
// Returns:
//
//	An error if the query building or execution fails.
func (r *Repository[T]) Save(ctx context.Context, entity *T) error {
	val := reflect.ValueOf(entity).Elem()
	pkValue := val.FieldByName(r.meta.PKField).Interface()
	mergeProps := map[string]interface{}{r.meta.PKProp: pkValue}

	setProps := make(map[string]interface{})
	for fieldName, propName := range r.meta.Mappings {
		if fieldName != r.meta.PKField {
			// The property is prefixed with 'n.' for the SET clause.
			setProps["n."+propName] = val.FieldByName(fieldName).Interface()
		}
	}

	qb := gocypher.NewQueryBuilder().
		Merge(gocypher.N("n", r.meta.Label).WithProperties(mergeProps))
	if len(setProps) > 0 {
		qb = qb.Set(setProps)
	}

	query, params, err := qb.Return("n").Build()
	if err != nil {
		return err
	}
	result, err := r.runner.Run(ctx, query, params)
	if err != nil {
		return err
	}

	if r.meta.IDField != "" && len(result.Records) > 0 {
		if node, ok := nodeValue(result.Records[0], "n"); ok {
			val.FieldByName(r.meta.IDField).SetString(node.ElementId)
		}
	}
	return nil
}

// FindByID retrieves a single entity from the database by its primary key.
//
// Parameters:
//   - ctx: The context for the query execution.
//   - id: The primary key value of the entity to find.
//
// Returns:
//
//	A pointer to the found entity, ErrNotFound if no record is found, or another
//	error if the query or mapping fails.
func (r *Repository[T]) FindByID(ctx context.Context, id interface{}) (*T, error) {
	props := map[string]interface{}{r.meta.PKProp: id}
	return r.FindOne(ctx, gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label).WithProperties(props)).
		Return("n"))
}

// FindByProperty returns every entity whose mapped property equals value.
// The property may be given either as the database property name or the struct field name.
func (r *Repository[T]) FindByProperty(ctx context.Context, property string, value interface{}) ([]*T, error) {
	prop, ok := r.meta.propertyFor(property)
	if !ok {
		return nil, fmt.Errorf("%w: property %q is not mapped on %s", models.ErrInvalidInput, property, r.meta.Label)
	}
	return r.Find(ctx, gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label).WithProperties(map[string]interface{}{prop: value})).
		Return("n"))
}

// FindAll returns every node carrying the entity's label.
func (r *Repository[T]) FindAll(ctx context.Context) ([]*T, error) {
	return r.Find(ctx, gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label)).
		Return("n"))
}

// Find executes a caller-built query and maps the first returned column of every record
// into an entity. Records whose first value is not a node are skipped.
func (r *Repository[T]) Find(ctx context.Context, qb *gocypher.QueryBuilder) ([]*T, error) {
	query, params, err := qb.Build()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}
	eagerResult, err := r.runner.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}

	entities := make([]*T, 0, len(eagerResult.Records))
	for _, record := range eagerResult.Records {
		if len(record.Values) == 0 {
			continue
		}
		node, ok := record.Values[0].(neo4j.Node)
		if !ok {
			continue
		}
		entity := new(T)
		if err := mapNodeToStruct(node, entity, r.meta); err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// FindOne is like Find but expects exactly one result.
//
// Returns:
//
//	The entity, ErrNotFound when the query matched nothing, or an error when it matched
//	more than one record (a data integrity issue for key lookups).
func (r *Repository[T]) FindOne(ctx context.Context, qb *gocypher.QueryBuilder) (*T, error) {
	entities, err := r.Find(ctx, qb)
	if err != nil {
		return nil, err
	}
	switch len(entities) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return entities[0], nil
	default:
		return nil, fmt.Errorf("expected 1 record but found %d", len(entities))
	}
}

// Count returns the number of nodes carrying the entity's label.
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	query := "MATCH (n:" + r.meta.Label + ") RETURN count(n) AS total"
	return r.count(ctx, query, nil)
}

// CountByProperty returns the number of nodes whose mapped property equals value.
func (r *Repository[T]) CountByProperty(ctx context.Context, property string, value interface{}) (int64, error) {
	prop, ok := r.meta.propertyFor(property)
	if !ok {
		return 0, fmt.Errorf("%w: property %q is not mapped on %s", models.ErrInvalidInput, property, r.meta.Label)
	}
	query := "MATCH (n:" + r.meta.Label + ") WHERE n." + prop + " = $value RETURN count(n) AS total"
	return r.count(ctx, query, map[string]interface{}{"value": value})
}

func (r *Repository[T]) count(ctx context.Context, query string, params map[string]interface{}) (int64, error) {
	eagerResult, err := r.runner.Run(ctx, query, params)
	if err != nil {
		return 0, err
	}
	if len(eagerResult.Records) == 0 {
		return 0, nil
	}
	total, ok := eagerResult.Records[0].Get("total")
	if !ok {
		return 0, fmt.Errorf("could not find return value 'total' in query result")
	}
	n, ok := total.(int64)
	if !ok {
		return 0, fmt.Errorf("return value 'total' is %T, not an integer", total)
	}
	return n, nil
}

// Delete removes a node from the database by its primary key.
// It uses a DETACH DELETE query to also remove any relationships connected to the node.
//
// Parameters:
//   - ctx: The context for the query execution.
//   - id: The primary key value of the entity to delete.
//
// Returns:
//
//	An error if the query building or execution fails.
func (r *Repository[T]) Delete(ctx context.Context, id interface{}) error {
	props := map[string]interface{}{r.meta.PKProp: id}
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label).WithProperties(props)).
		DetachDelete("n").
		Build()
	if err != nil {
		return err
	}
	_, err = r.runner.Run(ctx, query, params)
	return err
}

// nodeValue extracts a node returned under the given key.
func nodeValue(record *neo4j.Record, key string) (neo4j.Node, bool) {
	v, ok := record.Get(key)
	if !ok {
		return neo4j.Node{}, false
	}
	node, ok := v.(neo4j.Node)
	return node, ok
}

// mapNodeToStruct populates a struct's fields from a neo4j.Node's properties, based on the
// parsed metadata. Numeric properties are converted when the field type differs (the driver
// returns every integer as int64).
func mapNodeToStruct(node neo4j.Node, entity any, meta *entityMetadata) error {
	val := reflect.ValueOf(entity).Elem()

	if meta.IDField != "" {
		if f := val.FieldByName(meta.IDField); f.IsValid() && f.CanSet() {
			f.SetString(node.ElementId)
		}
	}

	for fieldName, propName := range meta.Mappings {
		field := val.FieldByName(fieldName)
		if !field.IsValid() || !field.CanSet() {
			continue
		}

		propValue, ok := node.Props[propName]
		if !ok || propValue == nil {
			continue
		}

		pv := reflect.ValueOf(propValue)
		switch {
		case pv.Type().AssignableTo(field.Type()):
			field.Set(pv)
		case isNumeric(pv.Kind()) && isNumeric(field.Kind()):
			field.Set(pv.Convert(field.Type()))
		default:
			return fmt.Errorf("property %s of type %T cannot be assigned to field %s (%s)",
				propName, propValue, fieldName, field.Type())
		}
	}
	return nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
