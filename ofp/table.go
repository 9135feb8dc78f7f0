package ofp

import (
	"fmt"
	"io"

	"github.com/netrack/ofswitch/internal/encoding"
)

// maxTableNameLen defines the maximum length of the table name.
const maxTableNameLen = 32

// Table defines a switch table number.
type Table uint8

// String returns a string representation of the table.
func (t Table) String() string {
	return fmt.Sprintf("Table(%d)", t)
}

const (
	// TableMax defines the last usable table number.
	TableMax Table = 0xfe

	// TableAll defines the wildcard table used for table config, flow
	// stats and flow deletes.
	TableAll Table = 0xff
)

// TableConfig defines the miss policy applied when a packet does not
// match any entry of a table.
type TableConfig uint32

const (
	// TableConfigMissController sends unmatched packets to the
	// controller as a PacketIn. This is the default.
	TableConfigMissController TableConfig = 0

	// TableConfigMissContinue forwards unmatched packets to the next
	// table in the pipeline.
	TableConfigMissContinue TableConfig = 1 << 0

	// TableConfigMissDrop silently drops unmatched packets.
	TableConfigMissDrop TableConfig = 1 << 1

	// TableConfigMissMask isolates the miss-policy bits of the
	// configuration bitmap.
	TableConfigMissMask TableConfig = 3
)

// TableMod is a message used to configure or modify behavior of a
// flow table.
type TableMod struct {
	// The Table chooses the table to which the configuration change should
	// be applied. If the Table is TableAll, the configuration is applied
	// to all tables in the switch.
	Table Table

	// Config specifies the miss policy applied by the table.
	Config TableConfig
}

// WriteTo implements io.WriterTo interface. It serializes the table
// modification message into the wire format.
func (t *TableMod) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, t.Table, pad3{}, t.Config)
}

// ReadFrom implements io.ReaderFrom interface. It deserializes the
// table modification message from the wire format.
func (t *TableMod) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &t.Table, &defaultPad3, &t.Config)
}

// TableStats is an element of the multipart reply body that carries
// information about a table presented within a switch.
type TableStats struct {
	// Table identifies a table within a switch. Lower numbered tables
	// are consulted first.
	Table Table

	// Name is a human-readable name of the table.
	Name string

	// Config reports the miss policy currently in effect.
	Config TableConfig

	// MaxEntries is the maximum number of entries the table supports.
	MaxEntries uint32

	// ActiveCount is a number of active entries.
	ActiveCount uint32

	// LookupCount is a number of packets looked up in table.
	LookupCount uint64

	// MatchedCount is a number of packets that hit table.
	MatchedCount uint64
}

// WriteTo implements io.WriterTo interface. It serializes the table
// statistics into the wire format.
func (t *TableStats) WriteTo(w io.Writer) (int64, error) {
	name := make([]byte, maxTableNameLen)
	copy(name, []byte(t.Name))

	return encoding.WriteTo(w, t.Table, pad3{}, name,
		t.Config, t.MaxEntries, t.ActiveCount,
		t.LookupCount, t.MatchedCount)
}

// ReadFrom implements io.ReaderFrom interface. It deserializes the
// table statistics from the wire format.
func (t *TableStats) ReadFrom(r io.Reader) (int64, error) {
	var name [maxTableNameLen]byte

	n, err := encoding.ReadFrom(r, &t.Table, &defaultPad3, &name,
		&t.Config, &t.MaxEntries, &t.ActiveCount,
		&t.LookupCount, &t.MatchedCount)

	t.Name = string(name[:])
	return n, err
}
