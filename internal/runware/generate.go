package runware

import (
	"context"
	"fmt"

	"github.com/codefionn/charwizard/internal/credential"
	"github.com/gorilla/websocket"
)

type taskResult struct {
	item Item
	err  error
}

// GenerateImage submits an image-inference job for prompt and returns the URL
// of the generated image. It waits for the connection to become ready first.
//
// There is no timeout: with a background context the call waits until the
// server answers. If the socket drops while the job is pending, the answer
// never arrives and only ctx can end the wait.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	item, err := c.submit(ctx, func(taskUUID string) interface{} {
		return []ImageInferenceRequest{newImageInferenceRequest(taskUUID, prompt)}
	})
	if err != nil {
		return "", err
	}
	return item.ImageURL, nil
}

// submit registers a Pending Task and sends the frame built for its
// identifier on the ready connection.
func (c *Client) submit(ctx context.Context, build func(taskUUID string) interface{}) (Item, error) {
	if _, err := credential.Resolve(ctx, c.creds); err != nil {
		return Item{}, fmt.Errorf("%w: %v", ErrMissingCredential, err)
	}

	conn, err := c.readyConn(ctx)
	if err != nil {
		return Item{}, err
	}

	taskUUID := c.ids.NewID()
	results := make(chan taskResult, 1)
	err = c.correlator.Submit(taskUUID, func(item Item, err error) {
		results <- taskResult{item: item, err: err}
	})
	if err != nil {
		return Item{}, err
	}

	c.log.Debug("Sending task %s", taskUUID)
	if err := c.write(conn, build(taskUUID)); err != nil {
		c.correlator.Abandon(taskUUID)
		return Item{}, fmt.Errorf("runware: send task %s: %w", taskUUID, err)
	}

	select {
	case res := <-results:
		if res.err != nil {
			c.log.Warn("Task %s failed: %v", taskUUID, res.err)
		}
		return res.item, res.err
	case <-ctx.Done():
		if !c.correlator.Abandon(taskUUID) {
			// Resolved concurrently; the result is already buffered.
			res := <-results
			return res.item, res.err
		}
		return Item{}, ctx.Err()
	}
}

// readyConn waits for readiness and returns the open connection. A closure
// observed between the wait and the lookup triggers one more wait.
func (c *Client) readyConn(ctx context.Context) (*websocket.Conn, error) {
	for attempt := 0; attempt < 2; attempt++ {
		if err := c.EnsureReady(ctx); err != nil {
			return nil, err
		}

		c.mu.Lock()
		conn, state := c.conn, c.state
		c.mu.Unlock()

		if state == StateReady && conn != nil {
			return conn, nil
		}
		c.log.Warn("Connection %s after readiness wait, retrying", state)
	}
	return nil, ErrNotReady
}
