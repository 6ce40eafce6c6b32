// Package discovery walks a project tree and selects the source units and
// model artifacts that the build pipeline should protect.
//
// Selection runs through a filter rule set. Default rules keep out version
// control metadata, caches, virtual environments, build outputs, tests and
// documentation, plus files that must stay plain for the host runtime to
// start (package init files, setup scripts, configuration). User rules merge
// with the defaults rather than replacing them.
package discovery
