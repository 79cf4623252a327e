// Package bundle orchestrates multi-asset media uploads over a storage
// provider.
//
// A bundle is the set of assets (audio, optional video, optional cover art)
// for one song id, stored under a common key prefix with a JSON manifest
// describing the bundle's current keys, links, and metadata.
//
// # Operations
//
//   - Upload: stores audio plus optional video/art, writes the manifest, and
//     records one audit log per uploaded object.
//   - ReplaceAsset: overwrites a single asset and merges only its slot into
//     the manifest, preserving the other slots verbatim.
//
// # Consistency
//
// Steps within one operation run strictly in order; there is no rollback, so
// an operation that fails midway leaves the bundle partially updated. The
// manifest is read-modify-written without a lock: concurrent replaces against
// the same prefix race and the last writer wins. Upload logs and the manifest
// pre-read are best-effort and never fail the primary operation.
package bundle
