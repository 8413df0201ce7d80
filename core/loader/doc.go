// Package loader wires application features into the HTTP server.
//
// Each feature implements the Feature interface and registers its own routes;
// the Manager loads them in registration order during startup.
package loader
