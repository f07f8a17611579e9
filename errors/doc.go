// Package errors classifies every failure of the startup sequence.
//
// Each error carries a machine-readable code, a human-readable message and,
// where it applies, the offending field, deployment variant or raw value.
// Errors are never retried by serverkit: they describe operator mistakes and
// stop startup.
//
//	if errors.Is(err, kiterrors.ErrMissingField) {
//	    field := kiterrors.DetailOf(err, kiterrors.DetailField)
//	}
package errors
