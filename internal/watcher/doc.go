// Package watcher turns raw filesystem notifications for a set of root
// directories into normalized, debounced events.
//
// Delivery is best-effort: the backend may coalesce changes, the debouncer
// suppresses repeats of the same (action, path) inside the window, and a full
// queue drops the newest event. Callers that need exact history must not rely
// on this package.
package watcher
