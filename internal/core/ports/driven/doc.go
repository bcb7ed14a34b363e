// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - LiveDocStore: Live-document chunk persistence
//   - DocumentStore: Source documents, their chunks and similarity search
//   - ChatStore: Chat messages and summaries
//   - RulesStore: Workspace rules
//   - ConfigStore: Application configuration
//   - PromptStore: Editable prompt templates
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Without it, retrieval falls back to keyword, recency or position ranking.
//   - LLMService: Without it, chat summarisation is disabled.
//   - DocumentParser: Without it, only pre-parsed documents can be ingested.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
