// Package diag defines the diagnostic and error model shared by every setup
// phase of the material resolver.
//
// # Purpose
//
//   - Provide deterministic, serialisable records describing problems found
//     while loading a problem description, normalising compositions,
//     finalising materials and populating the registry.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to storage or formatting.
//   - Define the error taxonomy (sentinels + *Error) returned by the core
//     packages, so callers can use errors.Is and still get an actionable
//     message naming the material and the offending nuclide.
//
// # Scope
//
// Package diag does not perform any formatting or IO. Rendering lives in
// internal/diagfmt; orchestration lives in internal/setup.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Message – human oriented text; keep it short and actionable.
//   - Primary – the Location (file, material, nuclide) the issue refers to.
//   - Notes – optional secondary locations/messages.
//
// # Errors
//
// Core packages return *Error values. Each carries a Code; the code maps to
// one of the Err* sentinels, which is what errors.Is matches against:
//
//	if errors.Is(err, diag.ErrDuplicateIdentifier) { ... }
//
// FromError converts any error into a Diagnostic so the setup driver can
// collect failures into a Bag and keep going with the next material.
package diag
