package relaypb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// OpenRequest is the host agent's request to open (or attach to) a session.
type OpenRequest struct {
	Origin            string
	EncryptedZeros    []byte
	Name              string
	WritePasswordHash []byte
}

func (m *OpenRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Origin)
	b = appendBytes(b, 2, m.EncryptedZeros)
	b = appendString(b, 3, m.Name)
	b = appendBytes(b, 4, m.WritePasswordHash)
	return b, nil
}

func (m *OpenRequest) Unmarshal(b []byte) error {
	*m = OpenRequest{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("relaypb: OpenRequest: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("relaypb: OpenRequest.origin: %w", protowire.ParseError(n))
			}
			m.Origin, b = v, b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("relaypb: OpenRequest.encrypted_zeros: %w", protowire.ParseError(n))
			}
			m.EncryptedZeros, b = append([]byte(nil), v...), b[n:]
		case 3:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("relaypb: OpenRequest.name: %w", protowire.ParseError(n))
			}
			m.Name, b = v, b[n:]
		case 4:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("relaypb: OpenRequest.write_password_hash: %w", protowire.ParseError(n))
			}
			m.WritePasswordHash, b = append([]byte(nil), v...), b[n:]
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

// OpenResponse tells the host agent where the session lives.
type OpenResponse struct {
	Name  string
	Token string
	URL   string
}

func (m *OpenResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Name)
	b = appendString(b, 2, m.Token)
	b = appendString(b, 3, m.URL)
	return b, nil
}

func (m *OpenResponse) Unmarshal(b []byte) error {
	*m = OpenResponse{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("relaypb: OpenResponse: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("relaypb: OpenResponse.name: %w", protowire.ParseError(n))
			}
			m.Name, b = v, b[n:]
		case 2:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("relaypb: OpenResponse.token: %w", protowire.ParseError(n))
			}
			m.Token, b = v, b[n:]
		case 3:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("relaypb: OpenResponse.url: %w", protowire.ParseError(n))
			}
			m.URL, b = v, b[n:]
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

// CloseRequest asks the relay to tear down a session.
type CloseRequest struct {
	Name  string
	Token string
}

func (m *CloseRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Name)
	b = appendString(b, 2, m.Token)
	return b, nil
}

func (m *CloseRequest) Unmarshal(b []byte) error {
	*m = CloseRequest{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("relaypb: CloseRequest: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("relaypb: CloseRequest.name: %w", protowire.ParseError(n))
			}
			m.Name, b = v, b[n:]
		case 2:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("relaypb: CloseRequest.token: %w", protowire.ParseError(n))
			}
			m.Token, b = v, b[n:]
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

// CloseResponse carries no fields.
type CloseResponse struct{}

func (m *CloseResponse) Marshal() ([]byte, error) { return nil, nil }

func (m *CloseResponse) Unmarshal(b []byte) error {
	for len(b) > 0 {
		_, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("relaypb: CloseResponse: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		m, err := consumeUnknown(b, typ)
		if err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}

// DataUpdate is backend-originated shell output.
type DataUpdate struct {
	ID   uint32
	Data []byte
	Seq  uint64
}

func (m *DataUpdate) Marshal() ([]byte, error) {
	var b []byte
	b = appendVarint(b, 1, uint64(m.ID))
	b = appendBytes(b, 2, m.Data)
	b = appendVarint(b, 3, m.Seq)
	return b, nil
}

func (m *DataUpdate) Unmarshal(b []byte) error {
	*m = DataUpdate{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("relaypb: DataUpdate: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("relaypb: DataUpdate.id: %w", protowire.ParseError(n))
			}
			m.ID, b = uint32(v), b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("relaypb: DataUpdate.data: %w", protowire.ParseError(n))
			}
			m.Data, b = append([]byte(nil), v...), b[n:]
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("relaypb: DataUpdate.seq: %w", protowire.ParseError(n))
			}
			m.Seq, b = v, b[n:]
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

// InputUpdate is frontend-originated keystroke data destined for a shell.
type InputUpdate struct {
	ID     uint32
	Data   []byte
	Offset uint64
}

func (m *InputUpdate) Marshal() ([]byte, error) {
	var b []byte
	b = appendVarint(b, 1, uint64(m.ID))
	b = appendBytes(b, 2, m.Data)
	b = appendVarint(b, 3, m.Offset)
	return b, nil
}

func (m *InputUpdate) Unmarshal(b []byte) error {
	*m = InputUpdate{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("relaypb: InputUpdate: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("relaypb: InputUpdate.id: %w", protowire.ParseError(n))
			}
			m.ID, b = uint32(v), b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("relaypb: InputUpdate.data: %w", protowire.ParseError(n))
			}
			m.Data, b = append([]byte(nil), v...), b[n:]
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("relaypb: InputUpdate.offset: %w", protowire.ParseError(n))
			}
			m.Offset, b = v, b[n:]
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

// NewShell asks the backend to start a shell at the given placement.
type NewShell struct {
	ID   uint32
	X, Y int32
}

func (m *NewShell) Marshal() ([]byte, error) {
	var b []byte
	b = appendVarint(b, 1, uint64(m.ID))
	b = appendInt32(b, 2, m.X)
	b = appendInt32(b, 3, m.Y)
	return b, nil
}

func (m *NewShell) Unmarshal(b []byte) error {
	*m = NewShell{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("relaypb: NewShell: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("relaypb: NewShell.id: %w", protowire.ParseError(n))
			}
			m.ID, b = uint32(v), b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("relaypb: NewShell.x: %w", protowire.ParseError(n))
			}
			m.X, b = int32(int64(v)), b[n:]
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("relaypb: NewShell.y: %w", protowire.ParseError(n))
			}
			m.Y, b = int32(int64(v)), b[n:]
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

// CreatedShell acknowledges a NewShell request.
type CreatedShell struct {
	ID   uint32
	X, Y int32
}

func (m *CreatedShell) Marshal() ([]byte, error) {
	var b []byte
	b = appendVarint(b, 1, uint64(m.ID))
	b = appendInt32(b, 2, m.X)
	b = appendInt32(b, 3, m.Y)
	return b, nil
}

func (m *CreatedShell) Unmarshal(b []byte) error {
	*m = CreatedShell{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("relaypb: CreatedShell: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("relaypb: CreatedShell.id: %w", protowire.ParseError(n))
			}
			m.ID, b = uint32(v), b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("relaypb: CreatedShell.x: %w", protowire.ParseError(n))
			}
			m.X, b = int32(int64(v)), b[n:]
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("relaypb: CreatedShell.y: %w", protowire.ParseError(n))
			}
			m.Y, b = int32(int64(v)), b[n:]
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

// ClosedShell acknowledges a shell's termination.
type ClosedShell struct {
	ID uint32
}

func (m *ClosedShell) Marshal() ([]byte, error) {
	var b []byte
	b = appendVarint(b, 1, uint64(m.ID))
	return b, nil
}

func (m *ClosedShell) Unmarshal(b []byte) error {
	*m = ClosedShell{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("relaypb: ClosedShell: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("relaypb: ClosedShell.id: %w", protowire.ParseError(n))
			}
			m.ID, b = uint32(v), b[n:]
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

// TerminalSize resizes a shell's pty.
type TerminalSize struct {
	ID         uint32
	Rows, Cols uint32
}

func (m *TerminalSize) Marshal() ([]byte, error) {
	var b []byte
	b = appendVarint(b, 1, uint64(m.ID))
	b = appendVarint(b, 2, uint64(m.Rows))
	b = appendVarint(b, 3, uint64(m.Cols))
	return b, nil
}

func (m *TerminalSize) Unmarshal(b []byte) error {
	*m = TerminalSize{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("relaypb: TerminalSize: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("relaypb: TerminalSize.id: %w", protowire.ParseError(n))
			}
			m.ID, b = uint32(v), b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("relaypb: TerminalSize.rows: %w", protowire.ParseError(n))
			}
			m.Rows, b = uint32(v), b[n:]
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("relaypb: TerminalSize.cols: %w", protowire.ParseError(n))
			}
			m.Cols, b = uint32(v), b[n:]
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

// SequenceNumbers carries the relay's per-shell byte-total horizon, one
// entry per shell, keyed by shell ID.
type SequenceNumbers struct {
	Map map[uint32]uint64
}

func (m *SequenceNumbers) Marshal() ([]byte, error) {
	var b []byte
	for k, v := range m.Map {
		var entry []byte
		entry = appendVarint(entry, 1, uint64(k))
		entry = appendVarint(entry, 2, v)
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b, nil
}

func (m *SequenceNumbers) Unmarshal(b []byte) error {
	m.Map = make(map[uint32]uint64)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("relaypb: SequenceNumbers: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if num != 1 {
			n, err := consumeUnknown(b, typ)
			if err != nil {
				return err
			}
			b = b[n:]
			continue
		}
		entry, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return fmt.Errorf("relaypb: SequenceNumbers.map entry: %w", protowire.ParseError(n))
		}
		b = b[n:]

		var key uint32
		var val uint64
		e := entry
		for len(e) > 0 {
			enum, etyp, en := protowire.ConsumeTag(e)
			if en < 0 {
				return fmt.Errorf("relaypb: SequenceNumbers.map entry: bad tag: %w", protowire.ParseError(en))
			}
			e = e[en:]
			switch enum {
			case 1:
				v, en := protowire.ConsumeVarint(e)
				if en < 0 {
					return fmt.Errorf("relaypb: SequenceNumbers.map key: %w", protowire.ParseError(en))
				}
				key, e = uint32(v), e[en:]
			case 2:
				v, en := protowire.ConsumeVarint(e)
				if en < 0 {
					return fmt.Errorf("relaypb: SequenceNumbers.map value: %w", protowire.ParseError(en))
				}
				val, e = v, e[en:]
			default:
				en, err := consumeUnknown(e, etyp)
				if err != nil {
					return err
				}
				e = e[en:]
			}
		}
		m.Map[key] = val
	}
	return nil
}
