// Package testutil provides filesystem fixtures shared by rioship tests:
// project trees, compiled-unit archives and assertions on transferred files.
package testutil
