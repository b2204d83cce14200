package knystlog

import (
	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across the
// command bus. Use these constants instead of raw strings.
const (
	// Identity
	FieldNodeID     = "node_id"
	FieldGraphID    = "graph_id"
	FieldCallbackID = "callback_id"
	FieldRequestID  = "request_id"

	// Operations
	FieldCommand     = "command"
	FieldResourceOp  = "resource_op"
	FieldResourceID  = "resource_id"

	// Errors
	FieldError     = "error"
	FieldErrorKind = "error_kind"

	// Counts and sizes
	FieldCount       = "count"
	FieldDeferredAge = "deferred_age"
)

// ComponentLogger returns a named logger for a specific component. This is
// the preferred way to get a logger for dependency injection.
//
//	type Controller struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewController() *Controller {
//	    return &Controller{logger: knystlog.ComponentLogger("controller")}
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
