// Command liveprobe checks that remote stateful services (NATS, PostgreSQL,
// Redis, HTTP and plain TCP endpoints) accept connections, on demand or on a
// schedule behind an HTTP API.
package main

func main() {
	Execute()
}
