package relaypb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ClientUpdate is one frame in the host-agent-to-relay stream. Exactly one
// field is set; it mirrors the proto3 "oneof client_message".
type ClientUpdate struct {
	Hello        *string
	Data         *DataUpdate
	CreatedShell *CreatedShell
	ClosedShell  *ClosedShell
	Pong         *int64
	Error        *string
}

func (m *ClientUpdate) Marshal() ([]byte, error) {
	var b []byte
	var err error
	switch {
	case m.Hello != nil:
		b = appendString(b, 1, *m.Hello)
	case m.Data != nil:
		b, err = appendMessage(b, 2, m.Data)
	case m.CreatedShell != nil:
		b, err = appendMessage(b, 3, m.CreatedShell)
	case m.ClosedShell != nil:
		b, err = appendMessage(b, 4, m.ClosedShell)
	case m.Pong != nil:
		b = appendInt64(b, 5, *m.Pong)
	case m.Error != nil:
		b = appendString(b, 6, *m.Error)
	}
	return b, err
}

func (m *ClientUpdate) Unmarshal(b []byte) error {
	*m = ClientUpdate{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("relaypb: ClientUpdate: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("relaypb: ClientUpdate.hello: %w", protowire.ParseError(n))
			}
			m.Hello, b = &v, b[n:]
		case 2:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("relaypb: ClientUpdate.data: %w", protowire.ParseError(n))
			}
			var v DataUpdate
			if err := v.Unmarshal(raw); err != nil {
				return err
			}
			m.Data, b = &v, b[n:]
		case 3:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("relaypb: ClientUpdate.created_shell: %w", protowire.ParseError(n))
			}
			var v CreatedShell
			if err := v.Unmarshal(raw); err != nil {
				return err
			}
			m.CreatedShell, b = &v, b[n:]
		case 4:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("relaypb: ClientUpdate.closed_shell: %w", protowire.ParseError(n))
			}
			var v ClosedShell
			if err := v.Unmarshal(raw); err != nil {
				return err
			}
			m.ClosedShell, b = &v, b[n:]
		case 5:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("relaypb: ClientUpdate.pong: %w", protowire.ParseError(n))
			}
			iv := int64(v)
			m.Pong, b = &iv, b[n:]
		case 6:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("relaypb: ClientUpdate.error: %w", protowire.ParseError(n))
			}
			m.Error, b = &v, b[n:]
		default:
			n, err := consumeUnknown(b, typ)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

// ServerUpdate is one frame in the relay-to-host-agent stream. Exactly one
// field is set; it mirrors the proto3 "oneof server_message".
type ServerUpdate struct {
	Input       *InputUpdate
	CreateShell *NewShell
	CloseShell  *uint32
	Sync        *SequenceNumbers
	Resize      *TerminalSize
	Ping        *int64
	Error       *string
}

func (m *ServerUpdate) Marshal() ([]byte, error) {
	var b []byte
	var err error
	switch {
	case m.Input != nil:
		b, err = appendMessage(b, 1, m.Input)
	case m.CreateShell != nil:
		b, err = appendMessage(b, 2, m.CreateShell)
	case m.CloseShell != nil:
		b = appendVarint(b, 3, uint64(*m.CloseShell))
	case m.Sync != nil:
		b, err = appendMessage(b, 4, m.Sync)
	case m.Resize != nil:
		b, err = appendMessage(b, 5, m.Resize)
	case m.Ping != nil:
		b = appendInt64(b, 6, *m.Ping)
	case m.Error != nil:
		b = appendString(b, 7, *m.Error)
	}
	return b, err
}

func (m *ServerUpdate) Unmarshal(b []byte) error {
	*m = ServerUpdate{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("relaypb: ServerUpdate: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("relaypb: ServerUpdate.input: %w", protowire.ParseError(n))
			}
			var v InputUpdate
			if err := v.Unmarshal(raw); err != nil {
				return err
			}
			m.Input, b = &v, b[n:]
		case 2:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("relaypb: ServerUpdate.create_shell: %w", protowire.ParseError(n))
			}
			var v NewShell
			if err := v.Unmarshal(raw); err != nil {
				return err
			}
			m.CreateShell, b = &v, b[n:]
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("relaypb: ServerUpdate.close_shell: %w", protowire.ParseError(n))
			}
			uv := uint32(v)
			m.CloseShell, b = &uv, b[n:]
		case 4:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("relaypb: ServerUpdate.sync: %w", protowire.ParseError(n))
			}
			var v SequenceNumbers
			if err := v.Unmarshal(raw); err != nil {
				return err
			}
			m.Sync, b = &v, b[n:]
		case 5:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("relaypb: ServerUpdate.resize: %w", protowire.ParseError(n))
			}
			var v TerminalSize
			if err := v.Unmarshal(raw); err != nil {
				return err
			}
			m.Resize, b = &v, b[n:]
		case 6:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("relaypb: ServerUpdate.ping: %w", protowire.ParseError(n))
			}
			iv := int64(v)
			m.Ping, b = &iv, b[n:]
		case 7:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("relaypb: ServerUpdate.error: %w", protowire.ParseError(n))
			}
			m.Error, b = &v, b[n:]
		default:
			n, err := consumeUnknown(b, typ)
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}
