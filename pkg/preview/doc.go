// Package preview serves a live, interactive rendering of a template.
//
// The server mounts the template once and keeps the view alive. Browsers
// connect over a websocket and send scope writes and DOM events; after each
// one the server pushes the re-rendered markup:
//
//	client → server  {"type":"set","path":"user.name","value":"Ada"}
//	client → server  {"type":"event","id":3,"event":"click","value":null}
//	server → client  {"type":"render","html":"..."}
//	server → client  {"type":"error","error":"..."}
//
// When watching is enabled the template file is re-read and remounted on
// every write, keeping the current scope data.
package preview
