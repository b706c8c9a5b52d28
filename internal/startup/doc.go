// Package startup handles application initialization: configuration
// loading from environment variables, directory validation, feature
// flag resolution, and the structured startup/shutdown logging that
// frames the server lifecycle.
package startup
