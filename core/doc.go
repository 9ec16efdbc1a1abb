// Package core defines the domain model of IOC Lens and the contracts between its layers.
//
// # Overview
//
// The core package provides:
//   - Domain types (Indicator, Category, IOCResult, AnalysisRecord, SearchQueryRecord, User)
//   - Schema validation for LLM output (ParseIOCResult, ParseSearchQueryResult)
//   - The error taxonomy shared by every layer (Error, Kind)
//   - The history view-model (Summarize, HighestRiskLevel)
//   - Consumer interfaces for storage, content retrieval and reasoning
//
// Interfaces follow the rest of the codebase: small, context.Context first, concrete
// types returned from constructors.
package core
