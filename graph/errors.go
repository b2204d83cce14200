package graph

import (
	"github.com/Tuurlijk/knyst/knysterr"
)

// ReferenceKind classifies why a reference (a NodeId or GraphId named
// in a command) failed to resolve, so the Controller can decide
// between deferring the command and reporting it outright.
type ReferenceKind int

const (
	ReferenceUnknown ReferenceKind = iota
	// ReferenceNotYetPushed: the node or graph may still arrive in a
	// later batch this tick or a future one. Transient.
	ReferenceNotYetPushed
	// ReferenceGone: the node or graph existed and has since been
	// freed, or the reference can never resolve. Permanent.
	ReferenceGone
)

// ConnectionError is returned by Graph.Connect/Disconnect when an
// endpoint does not resolve.
type ConnectionError struct {
	Kind ReferenceKind
	Conn string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return "connect " + e.Conn + ": " + e.Err.Error()
	}
	return "connect " + e.Conn + ": unresolved reference"
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ScheduleError is returned by Graph.ScheduleChange/ScheduleChanges
// when the targeted node does not resolve.
type ScheduleError struct {
	Kind ReferenceKind
	Err  error
}

func (e *ScheduleError) Error() string {
	if e.Err != nil {
		return "schedule change: " + e.Err.Error()
	}
	return "schedule change: unresolved reference"
}

func (e *ScheduleError) Unwrap() error { return e.Err }

// FreeError is returned by Graph.FreeNode/FreeNodeMendConnections when
// the named node does not resolve.
type FreeError struct {
	Kind ReferenceKind
	Err  error
}

func (e *FreeError) Error() string {
	if e.Err != nil {
		return "free node: " + e.Err.Error()
	}
	return "free node: unresolved reference"
}

func (e *FreeError) Unwrap() error { return e.Err }

// StructureError is returned for violations that are never transient:
// a cycle, a channel-count mismatch, or a reference into the wrong
// graph.
type StructureError struct {
	Err error
}

func (e *StructureError) Error() string { return "graph structure: " + e.Err.Error() }
func (e *StructureError) Unwrap() error { return e.Err }

// Kind classifies err (one produced by this package, or any other
// error) into the knysterr taxonomy the Controller's dispatch policy
// runs on.
func Kind(err error) knysterr.Kind {
	if err == nil {
		return knysterr.KindUnknown
	}
	var connErr *ConnectionError
	if knysterr.As(err, &connErr) {
		return referenceKindToKnystKind(connErr.Kind)
	}
	var schedErr *ScheduleError
	if knysterr.As(err, &schedErr) {
		return referenceKindToKnystKind(schedErr.Kind)
	}
	var freeErr *FreeError
	if knysterr.As(err, &freeErr) {
		return referenceKindToKnystKind(freeErr.Kind)
	}
	var structErr *StructureError
	if knysterr.As(err, &structErr) {
		return knysterr.KindGraphStructureViolation
	}
	return knysterr.KindUnknown
}

func referenceKindToKnystKind(k ReferenceKind) knysterr.Kind {
	switch k {
	case ReferenceNotYetPushed:
		return knysterr.KindTransientReferenceMiss
	case ReferenceGone:
		return knysterr.KindPermanentReferenceMiss
	default:
		return knysterr.KindUnknown
	}
}
