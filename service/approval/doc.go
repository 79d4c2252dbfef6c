// Package approval implements the human-in-the-loop approval layer. Tasks
// whose required trust exceeds the principal's configuration are parked here
// until an explicit approve or deny decision is recorded, or until the
// request expires.
package approval
