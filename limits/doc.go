// Package limits provides the centralized option ranges, buffer capacities
// and defaults used across netsock.
//
// # Buffers
//
// The stream adapter buffers at most StreamBufferSize bytes in each
// direction. PutbackSize bytes of the previous input fill are preserved so
// a reader can step back across a refill.
//
// # Validation Functions
//
// Each validator returns nil or a neterr InvalidArgument error naming the
// operation and the rejected value:
//
//	if err := limits.ValidateTrafficClass("Socket.SetTrafficClass", tc); err != nil {
//	    return err
//	}
//
// # Backlog
//
// A listen backlog that is not positive is replaced by DefaultBacklog.
package limits
