package memory

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Memory is a size in bytes, used for container memory ceilings and output caps.
type Memory int64

const (
	Byte     Memory = 1
	Kilobyte        = 1024 * Byte
	Megabyte        = 1024 * Kilobyte
	Gigabyte        = 1024 * Megabyte
)

func (d Memory) Bytes() int64 { return int64(d) }

func (d Memory) Kilobytes() int64 { return int64(d) / int64(Kilobyte) }

func (d Memory) Megabytes() int64 { return int64(d) / int64(Megabyte) }

func (d Memory) Gigabytes() int64 { return int64(d) / int64(Gigabyte) }

func (d Memory) String() string {
	switch {
	case d >= Gigabyte && d%Gigabyte == 0:
		return fmt.Sprintf("%dg", d.Gigabytes())
	case d >= Megabyte && d%Megabyte == 0:
		return fmt.Sprintf("%dm", d.Megabytes())
	case d >= Kilobyte && d%Kilobyte == 0:
		return fmt.Sprintf("%dk", d.Kilobytes())
	default:
		return fmt.Sprintf("%db", d.Bytes())
	}
}

// Parse reads a docker style size such as "256m", "1g", "512k" or a plain
// number of bytes.
func Parse(value string) (Memory, error) {
	value = strings.ToLower(strings.TrimSpace(value))

	if value == "" {
		return 0, errors.New("empty memory value")
	}

	unit := Byte

	switch value[len(value)-1] {
	case 'b':
		value = value[:len(value)-1]
	case 'k':
		unit, value = Kilobyte, value[:len(value)-1]
	case 'm':
		unit, value = Megabyte, value[:len(value)-1]
	case 'g':
		unit, value = Gigabyte, value[:len(value)-1]
	}

	amount, err := strconv.ParseInt(value, 10, 64)

	if err != nil {
		return 0, errors.Wrapf(err, "invalid memory value %q", value)
	}

	if amount < 0 {
		return 0, errors.Errorf("memory value %q must not be negative", value)
	}

	return Memory(amount) * unit, nil
}

// LimitExceeded is reported when the sandbox kills a process for exceeding
// its memory ceiling.
var LimitExceeded error = memoryLimitExceededError{}

type memoryLimitExceededError struct{}

func (memoryLimitExceededError) Error() string { return "memory limit exceeded" }
