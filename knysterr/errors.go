// Package knysterr provides error handling for the knyst command bus.
//
// It re-exports github.com/cockroachdb/errors for stack traces, wrapping,
// and structured detail, and adds the Kind taxonomy used by the Controller's
// dispatch policy: every error the Graph collaborator returns, or that
// the Commands facade raises on protocol misuse, is classified into one
// of a small number of Kinds that decide whether the Controller
// retries, reports, or just logs a warning.
//
//	err := knysterr.New("node not pushed")
//	err = knysterr.WithKind(err, knysterr.KindTransientReferenceMiss)
//	if knysterr.KindOf(err) == knysterr.KindTransientReferenceMiss {
//	    // re-enqueue
//	}
package knysterr

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping.
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details.
var (
	WithHint        = crdb.WithHint
	WithHintf       = crdb.WithHintf
	WithDetail      = crdb.WithDetail
	WithDetailf     = crdb.WithDetailf
	WithSafeDetails = crdb.WithSafeDetails
)

// Error inspection.
var (
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	UnwrapOnce    = crdb.UnwrapOnce
	UnwrapAll     = crdb.UnwrapAll
	GetAllDetails = crdb.GetAllDetails
	GetAllHints   = crdb.GetAllHints
)

// Kind classifies an error for the Controller's dispatch policy.
type Kind int

const (
	// KindUnknown covers errors the Controller did not originate and has
	// no retry/report policy for; treated the same as GraphStructureViolation.
	KindUnknown Kind = iota
	// KindTransientReferenceMiss: a referenced node or graph does not
	// exist yet. Policy: re-enqueue the originating command.
	KindTransientReferenceMiss
	// KindPermanentReferenceMiss: Free* after a bound retry window, or an
	// impossible reference. Policy: report.
	KindPermanentReferenceMiss
	// KindGraphStructureViolation: cycle, mismatched channel count, wrong
	// graph. Policy: report.
	KindGraphStructureViolation
	// KindBackpressureFull: resources ring full. Policy: re-enqueue.
	KindBackpressureFull
	// KindProtocolMisuse: nested bundle, missing local graph, etc. Policy:
	// log a warning, keep going, never crash.
	KindProtocolMisuse
)

func (k Kind) String() string {
	switch k {
	case KindTransientReferenceMiss:
		return "transient_reference_miss"
	case KindPermanentReferenceMiss:
		return "permanent_reference_miss"
	case KindGraphStructureViolation:
		return "graph_structure_violation"
	case KindBackpressureFull:
		return "backpressure_full"
	case KindProtocolMisuse:
		return "protocol_misuse"
	default:
		return "unknown"
	}
}

// WithKind tags err with a Kind, retrievable later via KindOf. Wrapping
// again with WithKind overrides any previously attached Kind.
func WithKind(err error, kind Kind) error {
	if err == nil {
		return nil
	}
	return crdb.WithDetail(&kindError{error: err, kind: kind}, "kind: "+kind.String())
}

type kindError struct {
	error
	kind Kind
}

func (e *kindError) Unwrap() error { return e.error }

// KindOf returns the Kind most recently attached via WithKind, or
// KindUnknown if none was attached anywhere in err's chain.
func KindOf(err error) Kind {
	var ke *kindError
	if crdb.As(err, &ke) {
		return ke.kind
	}
	return KindUnknown
}
