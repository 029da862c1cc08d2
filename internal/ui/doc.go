// Package ui serves the room booking single page application.
//
// The application (web/index.html, web/app.js, web/app.css) is compiled into
// the binary. Renderer loads index.html and injects two things: an optional
// <base href> so relative paths resolve against the public server, and a
// window.__ROOM_BOOKING__ object carrying the embedded flag, the staged
// reservation used to pre-fill the form, the room list and the time slots.
package ui
