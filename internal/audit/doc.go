// Package audit delivers engine audit events to a sink off the hot path.
//
// [Dispatcher] owns a buffered channel and one delivery goroutine, with
// drop-if-full or block-if-full behavior. [Sink] implementations write to a
// channel, a JSON line stream or a zap logger.
//
// The package decides nothing about which events exist; the engine does.
// It must not import goJWT.
package audit
