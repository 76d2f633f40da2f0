// Package coordinator multiplexes logical request/response pairs over the
// single peer channel.
//
// Each send gets a monotonically assigned id that is never reused, a fixed
// response deadline, and a single-settlement result: exactly one of success
// or failure reaches the caller, whether the request completes, times out,
// is cancelled, or the channel disconnects underneath it. Only the most
// recently issued request is eligible for user-initiated cancellation;
// concurrent sends are otherwise independent.
//
// The channel is opened lazily on the first send and reopened lazily after a
// disconnect, which drains every in-flight request at once.
package coordinator
