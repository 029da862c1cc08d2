// Package common holds helpers shared by the MCP tool packages: the
// argument vocabulary for booking tools and the instrumentation wrapper
// every tool handler is registered through.
package common
