// Package core provides the business logic for spreadsheet roll-ups.
//
// A run is four pure stages over an in-memory sheet:
//
//	Classify        decide each column's class (numeric, ZIP, phone, ID, date, text)
//	ApplyOverrides  merge the user's force-include / force-exclude directives
//	Normalize       clean every cell according to its column's final class
//	Aggregate       sum the value column grouped by the group-by column
//
// Run chains the stages. Service wraps them for a server: it keeps loaded
// sheets under short-lived dataset ids between the inspect and generate
// steps, bounds concurrent runs and stores the export file for download.
//
// Workbook parsing and serialization are behind the WorkbookReader and
// WorkbookWriter interfaces; this package has no UI or file format
// dependencies.
//
// # Errors
//
// UnreadableWorkbookError and SheetNotFoundError are fatal for a run.
// ConfigurationError is a bad column selection the user can correct.
// MapError turns any of them into a UserMessage with a support code.
package core
