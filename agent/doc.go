// Package agent implements the three research workers of the literary finder:
// the Historian, the Cartographer and the Connector.
//
// Every worker satisfies core.Worker. Model backed workers embed BaseWorker,
// which renders the prompt, calls the configured model.Model and retries
// transient failures under a RetryPolicy and a per-run call budget. Retries
// stay inside the worker; the engine only ever sees one payload or one error.
//
// Model output is requested in labelled sections ("Birth year:", "Recurring
// themes:") and parsed back into the typed payloads of package core. When a
// model ignores the layout, the parsers fall back to pattern matching over the
// free text.
package agent
