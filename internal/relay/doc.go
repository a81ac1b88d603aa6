// Package relay implements the chat surface: free text becomes notes,
// calendar attachments become backend events, /next lists upcoming items
// and /remindme drives the reminder session.
//
// All handlers run on the router's single consumer goroutine; the session
// machine is owned by Relay and never touched from elsewhere.
package relay
