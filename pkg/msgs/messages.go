package msgs

import (
	"github.com/golang/protobuf/proto"
)

// Event kinds.
const (
	KindMessage  int32 = 0
	KindProgress int32 = 1
	KindClear    int32 = 2
)

// StatusEvent mirrors what the bootloader shows on screen.
type StatusEvent struct {
	Device string `protobuf:"bytes,1,opt,name=device,proto3" json:"device,omitempty"`
	Kind   int32  `protobuf:"varint,2,opt,name=kind,proto3" json:"kind,omitempty"`
	Level  int32  `protobuf:"varint,3,opt,name=level,proto3" json:"level,omitempty"`
	Text   string `protobuf:"bytes,4,opt,name=text,proto3" json:"text,omitempty"`
	Done   uint32 `protobuf:"varint,5,opt,name=done,proto3" json:"done,omitempty"`
	Total  uint32 `protobuf:"varint,6,opt,name=total,proto3" json:"total,omitempty"`
	Frame  uint32 `protobuf:"varint,7,opt,name=frame,proto3" json:"frame,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *StatusEvent) ProtoMessage() {}

// Reset implements proto.Message.
func (m *StatusEvent) Reset() { *m = StatusEvent{} }

// String implements proto.Message.
func (m *StatusEvent) String() string { return proto.CompactTextString(m) }

// TransferStats reports the progress counters of a PROGRAM transfer.
type TransferStats struct {
	Device        string `protobuf:"bytes,1,opt,name=device,proto3" json:"device,omitempty"`
	State         string `protobuf:"bytes,2,opt,name=state,proto3" json:"state,omitempty"`
	Addr          uint32 `protobuf:"varint,3,opt,name=addr,proto3" json:"addr,omitempty"`
	Length        uint32 `protobuf:"varint,4,opt,name=length,proto3" json:"length,omitempty"`
	Received      uint32 `protobuf:"varint,5,opt,name=received,proto3" json:"received,omitempty"`
	Written       uint32 `protobuf:"varint,6,opt,name=written,proto3" json:"written,omitempty"`
	FullBuffers   int32  `protobuf:"varint,7,opt,name=full_buffers,proto3" json:"full_buffers,omitempty"`
	MaxFull       int32  `protobuf:"varint,8,opt,name=max_full,proto3" json:"max_full,omitempty"`
	ReceiveCycles uint32 `protobuf:"varint,9,opt,name=receive_cycles,proto3" json:"receive_cycles,omitempty"`
	WriteCycles   uint32 `protobuf:"varint,10,opt,name=write_cycles,proto3" json:"write_cycles,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *TransferStats) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TransferStats) Reset() { *m = TransferStats{} }

// String implements proto.Message.
func (m *TransferStats) String() string { return proto.CompactTextString(m) }

// Encode serializes a message.
func Encode(m proto.Message) ([]byte, error) {
	return proto.Marshal(m)
}

// DecodeStatusEvent parses a serialized StatusEvent.
func DecodeStatusEvent(b []byte) (*StatusEvent, error) {
	m := &StatusEvent{}
	if err := proto.Unmarshal(b, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeTransferStats parses a serialized TransferStats.
func DecodeTransferStats(b []byte) (*TransferStats, error) {
	m := &TransferStats{}
	if err := proto.Unmarshal(b, m); err != nil {
		return nil, err
	}
	return m, nil
}
