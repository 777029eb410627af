// Package browser drives a controlled Chromium instance through Playwright.
//
// The package is built around three concepts:
//
//  1. Launcher: starts Playwright once and launches one exclusively-owned
//     browser per workflow run. It tracks every live instance so Shutdown can
//     force-close browsers a cancelled caller left behind.
//  2. Browser: one launched instance with a single page and its cookie jar.
//     Close is idempotent and must be called by the owner on every path.
//  3. Page and Element: the narrow surface the publish and login workflows
//     use. Workflows never touch Playwright types directly, which keeps them
//     testable against an in-memory page.
//
// # Session Bridge
//
// Seed transplants a stored platform session into a fresh browser. The
// browser must sit on the platform origin before cookies are injected, so
// Seed navigates there first. Each cookie is injected on its own; a malformed
// or rejected entry is logged and skipped.
//
// # Page Dumps
//
// CleanPage reduces captured page markup to its semantic structure, keeping
// the attributes that matter for diagnosing selector drift (ids, classes,
// placeholders, data-* attributes, contenteditable).
package browser
