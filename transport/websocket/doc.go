// Package websocket pushes live city updates to browser clients.
//
// A Hub keeps the clients of each session and runs a single event loop that
// owns all bookkeeping. Clients subscribe with the session id when they
// connect; every placement, removal, advance or reset broadcasts the new
// city state to the subscribers of that session only.
//
// Outgoing messages are JSON documents, one per frame:
//
//	{"session_id": "a1b2", "event": "state_update", "city": {...}}
//	{"session_id": "a1b2", "event": "city_event", "data": {"type": "consequence", ...}}
//
// Incoming messages are ignored; reads only keep the connection alive.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session_id"))
//	})
//
// Broadcasts never block the caller. When the queue is full the message is
// dropped, and a client whose buffer is full is disconnected.
package websocket
