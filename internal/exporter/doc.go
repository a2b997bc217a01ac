// Package exporter writes the carbon-model input tables as CSV.
//
// CSVWriter is the core writer: headers, append mode, optional UTF-8 BOM and
// a streaming variant for the yield-curve table. Tables layers one function
// per output file on top of it, and ReadEvents reads a written event table
// back for the archive step.
//
// Example usage:
//
//	writer := exporter.NewCSVWriter(paths, logger)
//	tables := exporter.NewTables(writer, cfg.Simulation.StartYear)
//	path, err := tables.WriteTransitions(rules)
package exporter
