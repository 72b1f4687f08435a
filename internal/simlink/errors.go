package simlink

import "errors"

// errClosed is returned from Recv once the endpoint has been closed.
var errClosed = errors.New("simlink: endpoint closed")

// timeoutError satisfies net.Error so source/session's isTimeout helper
// (which type-asserts on net.Error.Timeout()) treats it exactly like a real
// socket read-deadline expiry.
type timeoutError struct{}

func (timeoutError) Error() string   { return "simlink: recv timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var errTimeout error = timeoutError{}
