// Package source adapts external repository listings into catalog
// records.
//
// Three adapter kinds exist: the forge adapter lists a Git forge
// account over its REST API, the hub adapter lists model-hub
// datasets, models and spaces, and the local adapter scans configured
// directory trees for working copies. All three implement the Adapter
// interface and write through the narrow Catalog surface, so the sync
// orchestrator treats them uniformly.
//
// Per-record network work (topics, readmes, checkout resolution) fans
// out on a bounded worker pool. A failing record is skipped; only a
// failing listing call aborts the adapter.
package source
