package gate

import (
	"go.uber.org/zap"
)

// Broadcaster delivers an encoded frame to connected devices.
type Broadcaster interface {
	Broadcast(msg []byte)
}

// Display kinds for the checkpoint LCD.
const (
	DisplayInfo  = "info"
	DisplayFee   = "fee"
	DisplayError = "error"
)

// Commander issues hardware commands. Frames go to every connected device;
// each controller filters on the checkpoint field.
type Commander struct {
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewCommander builds commander.
func NewCommander(broadcaster Broadcaster, logger *zap.Logger) *Commander {
	return &Commander{broadcaster: broadcaster, logger: logger}
}

func (c *Commander) send(commandType string, payload interface{}) {
	msg, err := EncodeCommand(commandType, payload)
	if err != nil {
		c.logger.Error("encode command failed", zap.String("command", commandType), zap.Error(err))
		return
	}
	c.broadcaster.Broadcast(msg)
}

// OpenBarrier lifts the barrier at a checkpoint.
func (c *Commander) OpenBarrier(checkpoint string) {
	c.logger.Info("opening barrier", zap.String("checkpoint", checkpoint))
	c.send(CommandOpenBarrier, OpenBarrierPayload{Checkpoint: checkpoint})
}

// Display writes up to two lines on a checkpoint LCD.
func (c *Commander) Display(checkpoint, kind string, lines ...string) {
	c.send(CommandDisplay, DisplayPayload{Checkpoint: checkpoint, Kind: kind, Lines: lines})
}

// SlotSummary refreshes the availability sign.
func (c *Commander) SlotSummary(available, total int) {
	c.send(CommandSlotSummary, SlotSummaryPayload{Available: available, Total: total})
}
