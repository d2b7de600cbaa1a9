// Package relay implements the client side of the relay protocol: JSON
// REST calls for account, contact, and key-bundle operations, and a
// websocket connection for live message traffic. Server error statuses
// map back onto the domain error taxonomy so callers can branch with
// errors.Is.
package relay
