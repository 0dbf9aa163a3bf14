// Package runware is a client for the Runware image-generation WebSocket API.
//
// Many image jobs share one long-lived socket. Each job carries a
// client-generated task UUID and its answer may arrive in any order relative
// to other jobs, so the client keeps a correlation table from task UUID to the
// waiting caller.
//
// # Connection lifecycle
//
// The connection moves through
//
//	disconnected -> connecting -> authenticating -> ready
//
// and falls back to disconnected whenever the socket closes or errors. From
// disconnected a reconnect is scheduled after a fixed delay (one second by
// default) and is retried forever unless Config.MaxReconnectAttempts is set.
// Only one connect cycle is ever in flight; concurrent callers of EnsureReady
// share it.
//
// The handshake sends
//
//	[{"taskType":"authentication","apiKey":"...","connectionSessionUUID":"..."}]
//
// and waits for the matching acknowledgement, whose connectionSessionUUID is
// kept and offered again on the next reconnect so the server may resume the
// session.
//
// # Usage
//
//	client, err := runware.NewClient(runware.DefaultConfig(), credential.Static(apiKey))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	url, err := client.GenerateImage(ctx, "a cat")
//
// # Pending tasks and disconnects
//
// A task whose socket drops before the answer arrives is never answered on
// the next connection; it stays in the table until the caller's context ends
// or the client is closed. Close rejects every pending task with ErrClosed.
package runware
