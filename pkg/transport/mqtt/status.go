package mqtt

import (
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/mwboot/pkg/msgs"
	"github.com/robotalks/mwboot/pkg/ui"
)

// Publisher publishes payloads on topics.
type Publisher interface {
	Pub(topic string, payload []byte) paho.Token
}

// StatusPublisher is a ui.Display publishing StatusEvent messages.
// Publishing does not wait for the broker.
type StatusPublisher struct {
	Pub    Publisher
	Device string
	// Frames, if set, stamps events with the frame counter.
	Frames func() uint32
}

// NewStatusPublisher creates a StatusPublisher.
func NewStatusPublisher(pub Publisher, device string) *StatusPublisher {
	return &StatusPublisher{Pub: pub, Device: device}
}

func (p *StatusPublisher) publish(topic string, m proto.Message) {
	payload, err := msgs.Encode(m)
	if err != nil {
		glog.Errorf("encode %s: %v", topic, err)
		return
	}
	p.Pub.Pub(p.Device+"/"+topic, payload)
}

func (p *StatusPublisher) event(ev *msgs.StatusEvent) {
	ev.Device = p.Device
	if p.Frames != nil {
		ev.Frame = p.Frames()
	}
	p.publish(TopicStatus, ev)
}

// Message implements ui.Display.
func (p *StatusPublisher) Message(level ui.Level, text string) {
	p.event(&msgs.StatusEvent{Kind: msgs.KindMessage, Level: int32(level), Text: text})
}

// Progress implements ui.Display.
func (p *StatusPublisher) Progress(done, total int) {
	p.event(&msgs.StatusEvent{Kind: msgs.KindProgress, Done: uint32(done), Total: uint32(total)})
}

// Clear implements ui.Display.
func (p *StatusPublisher) Clear() {
	p.event(&msgs.StatusEvent{Kind: msgs.KindClear})
}

// PublishStats publishes transfer counters.
func (p *StatusPublisher) PublishStats(stats *msgs.TransferStats) {
	stats.Device = p.Device
	p.publish(TopicStats, stats)
}
