package session

// Winsize is the position and size of a terminal window, as seen by the
// frontend. Field names and the (0,0,24,80) default mirror the original
// sshx wire type (WsWinsize), including the shape of the camelCased JSON
// tags it carries.
type Winsize struct {
	X    int32  `json:"x" cbor:"x"`
	Y    int32  `json:"y" cbor:"y"`
	Rows uint16 `json:"rows" cbor:"rows"`
	Cols uint16 `json:"cols" cbor:"cols"`
}

// DefaultWinsize returns the default window placement and size for a newly
// created shell.
func DefaultWinsize() Winsize {
	return Winsize{X: 0, Y: 0, Rows: 24, Cols: 80}
}
