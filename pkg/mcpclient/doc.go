// Package mcpclient is a session-scoped client for a remote MCP server that
// drives a browser through Playwright.
//
// A Client owns exactly one session. Its lifecycle is
//
//	uninitialized -> connecting -> ready -> closed
//
// and every remote tool call goes through Client.Invoke, which only runs in
// the ready state. The wire mechanism is chosen when the Client is built by
// passing a Dialer:
//
//   - SDKDialer with a streamable HTTP, SSE or stdio transport from the
//     official MCP Go SDK
//   - RESTDialer for servers exposing the older HTTP session API
//     (POST /session, POST /session/{id}/{tool}, DELETE /session/{id})
//
// Invocations are never retried. The streamable transport may resume an
// interrupted response stream with the last event id it saw, which only
// replays delivery of the same response and never re-sends the request.
//
// Browser wraps any Invoker with typed operations (Navigate, Click, Type,
// Select, Screenshot, PageContent, StartBrowser) and the table of tool names
// they map to.
//
// # Example
//
//	client := mcpclient.New(mcpclient.NewStreamableDialer("http://localhost:13000/mcp", nil))
//	if err := client.Initialize(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	b := mcpclient.NewBrowser(client, mcpclient.DefaultToolNames())
//	if err := b.Navigate(ctx, "https://example.com", nil); err != nil {
//	    return err
//	}
package mcpclient
