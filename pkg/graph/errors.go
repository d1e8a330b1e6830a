package graph

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNodeNotFound        = errors.New("node not found")
	ErrEdgeNotFound        = errors.New("edge not found")
	ErrDuplicateNode       = errors.New("node already exists")
	ErrDuplicateEdge       = errors.New("edge already exists")
	ErrEndpointMissing     = errors.New("edge endpoint missing")
	ErrInvalidNode         = errors.New("invalid node")
	ErrInvalidEdge         = errors.New("invalid edge")
	ErrInvalidFailureMode  = errors.New("invalid failure mode")
	ErrInvalidDisasterType = errors.New("invalid disaster type")
	ErrSeverityOutOfRange  = errors.New("severity out of range")
	ErrInvalidLocation     = errors.New("invalid location")
	ErrEmptyGraph          = errors.New("graph has no nodes")
)

// GraphError provides structured error information for graph operations.
type GraphError struct {
	Op      string // Operation that failed (e.g., "AddNode", "Predict")
	Entity  string // Entity type (e.g., "node", "edge")
	ID      string // Entity ID (if applicable)
	Context string // Additional context
	Cause   error  // Underlying error
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %q: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	if e.Context != "" {
		if e.Entity != "" {
			return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
		}
		return fmt.Sprintf("%s (%s): %v", e.Op, e.Context, e.Cause)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *GraphError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *GraphError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building GraphErrors.
type ErrorBuilder struct {
	err GraphError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: GraphError{Op: op}}
}

// Node sets the entity to "node" with the given ID.
func (b *ErrorBuilder) Node(id string) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.ID = id
	return b
}

// Edge sets the entity to "edge" with the given source->target key.
func (b *ErrorBuilder) Edge(source, target string) *ErrorBuilder {
	b.err.Entity = "edge"
	b.err.ID = source + "->" + target
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed GraphError.
func (b *ErrorBuilder) Build() *GraphError {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// NodeNotFoundError creates a node not found error.
func NodeNotFoundError(op, nodeID string) error {
	return NewError(op).Node(nodeID).Cause(ErrNodeNotFound).Err()
}

// EdgeNotFoundError creates an edge not found error.
func EdgeNotFoundError(op, source, target string) error {
	return NewError(op).Edge(source, target).Cause(ErrEdgeNotFound).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound) || errors.Is(err, ErrEdgeNotFound)
}

// IsValidation returns true if the error indicates invalid caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidNode) ||
		errors.Is(err, ErrInvalidEdge) ||
		errors.Is(err, ErrInvalidFailureMode) ||
		errors.Is(err, ErrInvalidDisasterType) ||
		errors.Is(err, ErrSeverityOutOfRange) ||
		errors.Is(err, ErrInvalidLocation) ||
		errors.Is(err, ErrDuplicateNode) ||
		errors.Is(err, ErrDuplicateEdge) ||
		errors.Is(err, ErrEndpointMissing)
}
