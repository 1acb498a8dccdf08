package docstore

import "fmt"

// OwnerRule marks a collection as owner-scoped: every document carries the
// creator's id in Field, reads must filter on Field == principal and writes
// must set Field to the principal.
type OwnerRule struct {
	Collection string
	Field      string
}

// Rules is the store-side authorization config.
type Rules struct {
	owners map[string]string
}

// NewRules builds rules from owner-scoped collections.
func NewRules(owners ...OwnerRule) Rules {
	r := Rules{owners: make(map[string]string, len(owners))}
	for _, o := range owners {
		r.owners[o.Collection] = o.Field
	}
	return r
}

// OwnerField returns the owner field of an owner-scoped collection.
func (r Rules) OwnerField(collection string) (string, bool) {
	field, ok := r.owners[collection]
	return field, ok
}

// CheckRead rejects queries that could read another principal's documents.
func (r Rules) CheckRead(q Query) error {
	if err := ValidateQuery(q); err != nil {
		return err
	}
	field, ok := r.owners[q.Collection]
	if !ok {
		return nil
	}
	if q.Principal == "" {
		return fmt.Errorf("%w: %s requires an authenticated principal", ErrPermissionDenied, q.Collection)
	}
	for _, f := range q.Filters {
		if f.Field == field {
			if s, isString := f.Value.(string); isString && s == q.Principal {
				return nil
			}
			return fmt.Errorf("%w: %s filter does not match principal", ErrPermissionDenied, field)
		}
	}
	return fmt.Errorf("%w: %s query must filter on %s", ErrPermissionDenied, q.Collection, field)
}

// CheckWrite rejects documents not owned by the writing principal.
func (r Rules) CheckWrite(principal, collection string, fields Fields) error {
	if collection == "" {
		return fmt.Errorf("%w: collection is required", ErrInvalidQuery)
	}
	field, ok := r.owners[collection]
	if !ok {
		return nil
	}
	owner, _ := fields[field].(string)
	if principal == "" || owner != principal {
		return fmt.Errorf("%w: %s.%s must equal the writing principal", ErrPermissionDenied, collection, field)
	}
	return nil
}

// ValidateQuery checks the query shape.
func ValidateQuery(q Query) error {
	if q.Collection == "" {
		return fmt.Errorf("%w: collection is required", ErrInvalidQuery)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidQuery, q.Limit)
	}
	for _, f := range q.Filters {
		if f.Field == "" {
			return fmt.Errorf("%w: filter field is required", ErrInvalidQuery)
		}
	}
	return nil
}
