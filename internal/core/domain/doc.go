// Package domain defines the core business entities for Granted.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A bounded, embeddable unit of text from a document or live doc
//   - Document: A parsed source file owned by a workspace
//   - ChatMessage / ChatSummary: Rolling and summarised chat memory
//   - Rules: Workspace style and constraint configuration
//   - PromptRequest / PromptResult: Input and output of prompt assembly
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
