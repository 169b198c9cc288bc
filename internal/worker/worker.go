package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aescanero/dago-libs/pkg/domain"
	"github.com/aescanero/dago-libs/pkg/domain/state"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/aescanero/dago-node-prompt/internal/config"
	"github.com/aescanero/dago-node-prompt/internal/runner"
)

// StateLoader loads the stored state of an execution
type StateLoader interface {
	Load(ctx context.Context, executionID string) (state.State, error)
}

// Publisher writes a JSON payload to a stream
type Publisher interface {
	Publish(ctx context.Context, stream string, payload interface{}) error
}

// Worker represents the prompt worker
type Worker struct {
	id            string
	config        *config.Config
	redisClient   *redis.Client
	runner        *runner.Runner
	publisher     Publisher
	stateStore    StateLoader
	logger        *zap.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	done          chan struct{}
	streamKey     string
	consumerGroup string
	resultStream  string
}

// NewWorker creates a new worker
func NewWorker(
	cfg *config.Config,
	redisClient *redis.Client,
	runnerInstance *runner.Runner,
	publisher Publisher,
	stateStore StateLoader,
	logger *zap.Logger,
) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		id:            cfg.WorkerID,
		config:        cfg,
		redisClient:   redisClient,
		runner:        runnerInstance,
		publisher:     publisher,
		stateStore:    stateStore,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
		streamKey:     cfg.StreamKey,
		consumerGroup: cfg.ConsumerGroup,
		resultStream:  cfg.ResultStream,
	}
}

// Start starts the worker
func (w *Worker) Start() error {
	w.logger.Info("starting prompt worker",
		zap.String("worker_id", w.id),
		zap.String("stream_key", w.streamKey),
		zap.String("consumer_group", w.consumerGroup),
	)

	// Create consumer group if it doesn't exist
	if err := w.ensureConsumerGroup(); err != nil {
		return fmt.Errorf("failed to ensure consumer group: %w", err)
	}

	// Start processing work
	go w.processWork()

	w.logger.Info("prompt worker started", zap.String("worker_id", w.id))
	return nil
}

// Stop stops the worker and waits for the in-flight message, up to timeout
func (w *Worker) Stop(timeout time.Duration) error {
	w.logger.Info("stopping prompt worker", zap.String("worker_id", w.id))

	// Cancel context to stop work processing
	w.cancel()

	// Wait for the in-flight message to finish
	select {
	case <-w.done:
	case <-time.After(timeout):
		return fmt.Errorf("worker did not stop within %s", timeout)
	}

	w.logger.Info("prompt worker stopped", zap.String("worker_id", w.id))
	return nil
}

// Running reports whether the processing loop is still active
func (w *Worker) Running(_ context.Context) error {
	select {
	case <-w.done:
		return fmt.Errorf("worker %s is not processing", w.id)
	default:
		return nil
	}
}

// ensureConsumerGroup creates the consumer group if it doesn't exist
func (w *Worker) ensureConsumerGroup() error {
	// Try to create the group
	err := w.redisClient.XGroupCreateMkStream(w.ctx, w.streamKey, w.consumerGroup, "0").Err()
	if err != nil {
		// BUSYGROUP error means the group already exists, which is fine
		if err.Error() == "BUSYGROUP Consumer Group name already exists" {
			w.logger.Debug("consumer group already exists",
				zap.String("group", w.consumerGroup),
			)
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	w.logger.Info("created consumer group",
		zap.String("group", w.consumerGroup),
		zap.String("stream", w.streamKey),
	)
	return nil
}

// processWork processes work from the Redis stream
func (w *Worker) processWork() {
	defer close(w.done)
	w.logger.Info("starting work processing loop")

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("work processing loop stopped")
			return
		default:
			// Read from stream
			streams, err := w.redisClient.XReadGroup(w.ctx, &redis.XReadGroupArgs{
				Group:    w.consumerGroup,
				Consumer: w.id,
				Streams:  []string{w.streamKey, ">"},
				Count:    1,
				Block:    w.config.BlockTime,
			}).Result()

			if err != nil {
				if err == redis.Nil || w.ctx.Err() != nil {
					// No messages available, or stopping
					continue
				}
				w.logger.Error("failed to read from stream",
					zap.Error(err),
				)
				time.Sleep(time.Second)
				continue
			}

			// Process each message
			for _, stream := range streams {
				for _, message := range stream.Messages {
					w.handleMessage(message)
				}
			}
		}
	}
}

// handleMessage handles a single prompt request message
func (w *Worker) handleMessage(message redis.XMessage) {
	messageID := message.ID
	w.logger.Info("processing prompt request",
		zap.String("message_id", messageID),
	)

	// Process the request; interrupted work is not acked
	if !w.handleRequest(w.ctx, messageID, message.Values) {
		w.logger.Warn("prompt request interrupted, leaving it pending for redelivery",
			zap.String("message_id", messageID),
		)
		return
	}

	// Acknowledge message
	w.acknowledgeMessage(messageID)
}

// handleRequest parses and runs one request, reporting failures to the
// error stream. It returns false when ctx was cancelled before the request
// reached a result or an error event, in which case the message must stay
// pending.
func (w *Worker) handleRequest(ctx context.Context, messageID string, values map[string]interface{}) bool {
	if ctx.Err() != nil {
		return false
	}

	// Parse work request
	workRequest, err := w.parseWorkRequest(values)
	if err != nil {
		w.logger.Error("failed to parse work request",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		if workRequest != nil {
			w.publishError(ctx, workRequest, err)
		}
		return true
	}

	// Process prompt request
	if err := w.processPromptRequest(ctx, workRequest); err != nil {
		if ctx.Err() != nil {
			return false
		}
		w.logger.Error("failed to process prompt request",
			zap.String("message_id", messageID),
			zap.String("execution_id", workRequest.ExecutionID),
			zap.Error(err),
		)
		// Publish error event
		w.publishError(ctx, workRequest, err)
	}
	return true
}

// WorkRequest represents a prompt work request
type WorkRequest struct {
	ExecutionID string                 `json:"execution_id"`
	NodeID      string                 `json:"node_id"`
	Config      map[string]interface{} `json:"config"`
}

// parseWorkRequest parses a work request from a Redis message. When the
// payload is malformed but still names its execution, the partial request is
// returned alongside the error so the failure can be reported.
func (w *Worker) parseWorkRequest(values map[string]interface{}) (*WorkRequest, error) {
	dataStr, ok := values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'data' field")
	}
	if !gjson.Valid(dataStr) {
		return nil, fmt.Errorf("'data' field is not valid JSON")
	}

	var request WorkRequest
	if err := json.Unmarshal([]byte(dataStr), &request); err != nil {
		ids := gjson.GetMany(dataStr, "execution_id", "node_id")
		if ids[0].String() == "" {
			return nil, fmt.Errorf("failed to unmarshal work request: %w", err)
		}
		partial := &WorkRequest{ExecutionID: ids[0].String(), NodeID: ids[1].String()}
		return partial, fmt.Errorf("failed to unmarshal work request: %w", err)
	}

	if request.ExecutionID == "" {
		return nil, fmt.Errorf("work request has no execution_id")
	}

	return &request, nil
}

// processPromptRequest processes a prompt request
func (w *Worker) processPromptRequest(ctx context.Context, request *WorkRequest) error {
	// Load graph state from store
	stateData, err := w.stateStore.Load(ctx, request.ExecutionID)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	// Convert state.State (map) to domain.GraphState
	graphState, err := w.convertToGraphState(request.ExecutionID, stateData)
	if err != nil {
		return fmt.Errorf("failed to convert state: %w", err)
	}

	// Parse prompt node configuration
	nodeConfig, err := w.parseNodeConfig(request.Config)
	if err != nil {
		return fmt.Errorf("failed to parse node config: %w", err)
	}

	// Render and optionally complete the prompt
	result, err := w.runner.Run(ctx, graphState, nodeConfig)
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}

	// Publish prompt result
	if err := w.publishResult(ctx, request, result); err != nil {
		return fmt.Errorf("failed to publish result: %w", err)
	}

	return nil
}

// parseNodeConfig parses the node configuration into runner.NodeConfig
func (w *Worker) parseNodeConfig(config map[string]interface{}) (*runner.NodeConfig, error) {
	// Marshal and unmarshal to convert map to struct
	data, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	var nodeConfig runner.NodeConfig
	if err := json.Unmarshal(data, &nodeConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &nodeConfig, nil
}

// ResultEvent is published for every completed prompt node
type ResultEvent struct {
	RunID        string    `json:"run_id"`
	ExecutionID  string    `json:"execution_id"`
	NodeID       string    `json:"node_id"`
	Rendered     string    `json:"rendered"`
	Output       string    `json:"output,omitempty"`
	Model        string    `json:"model,omitempty"`
	Variant      string    `json:"variant,omitempty"`
	Mode         string    `json:"mode"`
	PathTaken    string    `json:"path_taken"`
	Files        []string  `json:"files,omitempty"`
	InputTokens  int       `json:"input_tokens,omitempty"`
	OutputTokens int       `json:"output_tokens,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ErrorEvent is published to the error stream when a request fails
type ErrorEvent struct {
	RunID       string    `json:"run_id"`
	ExecutionID string    `json:"execution_id"`
	NodeID      string    `json:"node_id"`
	Error       string    `json:"error"`
	Timestamp   time.Time `json:"timestamp"`
}

// publishResult publishes the prompt result
func (w *Worker) publishResult(ctx context.Context, request *WorkRequest, result *runner.Result) error {
	event := ResultEvent{
		RunID:        uuid.NewString(),
		ExecutionID:  request.ExecutionID,
		NodeID:       request.NodeID,
		Rendered:     result.Rendered,
		Output:       result.Output,
		Model:        result.Model,
		Variant:      result.Variant,
		Mode:         result.Mode,
		PathTaken:    result.PathTaken,
		Files:        result.Files,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		Timestamp:    time.Now().UTC(),
	}

	// Publish to result stream
	if err := w.publisher.Publish(ctx, w.resultStream, event); err != nil {
		return err
	}

	w.logger.Info("published prompt result",
		zap.String("run_id", event.RunID),
		zap.String("execution_id", request.ExecutionID),
		zap.String("path", result.PathTaken),
	)

	return nil
}

// publishError publishes an error event
func (w *Worker) publishError(ctx context.Context, request *WorkRequest, err error) {
	event := ErrorEvent{
		RunID:       uuid.NewString(),
		ExecutionID: request.ExecutionID,
		NodeID:      request.NodeID,
		Error:       err.Error(),
		Timestamp:   time.Now().UTC(),
	}

	// Publish error to a separate stream
	if publishErr := w.publisher.Publish(ctx, w.errorStream(), event); publishErr != nil {
		w.logger.Error("failed to publish error event", zap.Error(publishErr))
	}
}

func (w *Worker) errorStream() string {
	return w.resultStream + ".errors"
}

// acknowledgeMessage acknowledges a message from the stream. The outcome is
// already published, so the ack must not depend on the worker context.
func (w *Worker) acknowledgeMessage(messageID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := w.redisClient.XAck(ctx, w.streamKey, w.consumerGroup, messageID).Err()
	if err != nil {
		w.logger.Error("failed to acknowledge message",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}

// convertToGraphState converts state.State to domain.GraphState
func (w *Worker) convertToGraphState(graphID string, stateData state.State) (*domain.GraphState, error) {
	// Marshal the state data to JSON then unmarshal to GraphState
	data, err := json.Marshal(stateData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}

	var graphState domain.GraphState
	if err := json.Unmarshal(data, &graphState); err != nil {
		return nil, fmt.Errorf("failed to unmarshal to GraphState: %w", err)
	}

	// Ensure GraphID is set
	if graphState.GraphID == "" {
		graphState.GraphID = graphID
	}

	return &graphState, nil
}
