// Package builders produces protected builds: it scans a project, encrypts
// the selected source units and model artifacts into an output tree, writes
// the manifest the runtime uses to pre-seed its resolver registry, and
// optionally packages or uploads the result.
package builders
