// Package executor carries out a SyncPlan over a transport session.
//
// Uploads run in parallel up to a worker limit. Deletions run only after
// every upload succeeded, so a failed batch never removes files from the
// target. A failed upload cancels the remaining ones and the whole batch
// fails as one unit; there are no retries.
package executor
