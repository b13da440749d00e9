// Package shutdown coordinates orderly teardown of long-running commands.
//
// A Handler waits for SIGINT/SIGTERM, a cancelled parent context or an
// explicit Trigger, then runs the registered hooks in reverse order of
// registration under a bounded context. `bankline session watch` uses it
// to stop the metrics listener, the config watcher and the session
// Manager in that order.
package shutdown
