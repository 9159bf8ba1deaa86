package core

import (
	"context"
	"sync"

	"github.com/lifemate/lifemate-go/pkg/llm"
	"github.com/lifemate/lifemate-go/pkg/pipeline"
)

// AsyncClient provides asynchronous chat.
//
// It wraps the synchronous Client and runs each request in its own goroutine.
// The client tracks all goroutines and provides Wait() to ensure all requests
// finish.
//
// Example:
//
//	asyncClient, _ := core.NewAsyncClient(config)
//	defer asyncClient.Close()
//
//	respChan := asyncClient.ChatAsync(ctx, "user_001", "What should I study today?", nil)
//	resp := <-respChan
//	fmt.Println(resp.Response)
type AsyncClient struct {
	*Client
	wg sync.WaitGroup
}

// NewAsyncClient creates a new asynchronous LifeMate client.
func NewAsyncClient(cfg *Config, opts ...ClientOption) (*AsyncClient, error) {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}

	return &AsyncClient{
		Client: client,
	}, nil
}

// ChatAsync answers message in a separate goroutine. The returned channel
// receives exactly one response and is then closed.
func (ac *AsyncClient) ChatAsync(ctx context.Context, userID, message string, history []llm.Message) <-chan *pipeline.ChatResponse {
	respChan := make(chan *pipeline.ChatResponse, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		respChan <- ac.Chat(ctx, userID, message, history)
		close(respChan)
	}()

	return respChan
}

// Wait blocks until every request started by ChatAsync, and the learning it
// triggered, has finished.
func (ac *AsyncClient) Wait() {
	ac.wg.Wait()
	ac.Client.Wait()
}

// Close waits for pending requests, then closes the client.
func (ac *AsyncClient) Close() error {
	ac.wg.Wait()
	return ac.Client.Close()
}
