// Package pipeline runs the probes of one domain analysis and merges their
// results into a single model.Payload.
//
// Steps are grouped into stages. The steps of a stage run concurrently with
// errgroup, and a stage starts only after the previous one has finished, so
// a step can read what earlier stages wrote (geolocation needs the first A
// record). Each step writes its own payload field.
//
// A failing step never aborts the run. Its error is logged and recorded in
// the Report, and its field keeps the empty value the step left behind.
package pipeline
