package gate

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// HandlerFunc processes a frame payload and returns an optional response body.
type HandlerFunc func(ctx context.Context, deviceID string, payload json.RawMessage) (interface{}, error)

// Router dispatches frame types to handlers.
type Router struct {
	handlers map[string]HandlerFunc
}

// NewRouter returns router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]HandlerFunc)}
}

// Register attaches handler to a frame type.
func (r *Router) Register(frameType string, handler HandlerFunc) {
	r.handlers[frameType] = handler
}

// Route executes the handler for a frame.
func (r *Router) Route(ctx context.Context, deviceID string, frame *Frame) (interface{}, error) {
	handler, ok := r.handlers[frame.Type]
	if !ok {
		return nil, fmt.Errorf("gate: unsupported frame type %s", frame.Type)
	}
	return handler(ctx, deviceID, frame.Payload)
}

// AuditLog records device traffic.
type AuditLog interface {
	Save(ctx context.Context, deviceID, direction, frameType string, payload []byte) error
}

// Processor ties together parsing, routing, response encoding, and the audit
// trail. It implements the connection's MessageProcessor.
type Processor struct {
	router   *Router
	auditLog AuditLog
	logger   *zap.Logger
}

// NewProcessor builds Processor.
func NewProcessor(router *Router, auditLog AuditLog, logger *zap.Logger) *Processor {
	return &Processor{
		router:   router,
		auditLog: auditLog,
		logger:   logger,
	}
}

// Process handles one raw frame and returns response bytes, or nil when the
// frame needs no reply.
func (p *Processor) Process(ctx context.Context, deviceID string, raw []byte) ([]byte, error) {
	frame, err := ParseFrame(raw)
	if err != nil {
		return nil, err
	}

	if p.auditLog != nil {
		_ = p.auditLog.Save(ctx, deviceID, "incoming", frame.Type, raw)
	}

	responsePayload, err := p.router.Route(ctx, deviceID, frame)
	if err != nil {
		p.logger.Warn("gate handler failed",
			zap.String("device_id", deviceID),
			zap.String("frame_type", frame.Type),
			zap.Error(err))
		return nil, err
	}
	if responsePayload == nil {
		return nil, nil
	}

	respBytes, err := EncodeCommand(frame.Type+"_ack", responsePayload)
	if err != nil {
		p.logger.Error("encode gate response failed", zap.Error(err))
		return nil, err
	}

	if p.auditLog != nil {
		_ = p.auditLog.Save(ctx, deviceID, "outgoing", frame.Type+"_ack", respBytes)
	}
	return respBytes, nil
}

// Decode convenience helper for handlers.
func Decode[T any](payload json.RawMessage) (T, error) {
	var target T
	if err := json.Unmarshal(payload, &target); err != nil {
		var zero T
		return zero, err
	}
	return target, nil
}
