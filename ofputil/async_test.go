package ofputil

import (
	"testing"
)

func TestAsyncConfigMask(t *testing.T) {
	mask := AsyncConfigMask(3, 4)
	if mask != [2]uint32{3, 4} {
		t.Fatalf("Invalid mask returned: %v", mask)
	}
}
