// Package browser drives real browsers through Playwright for the
// automation server.
//
// A Manager owns the Playwright runtime and hands out Sessions, each of
// which holds one browser, one context and one page and implements Driver.
// Nothing starts eagerly:
//
//  1. The runtime is started by the first session that needs it. Concurrent
//     first uses share a single start.
//  2. A session launches its browser on Launch, or on the first page
//     operation with default options (headless chromium, 1280x720).
//  3. Close releases the session; Manager.Shutdown releases everything and
//     stops the runtime.
//
// Driver is the seam the server is written against, so tests can swap in a
// fake without a browser installed.
package browser
