// Package utils holds small generic helpers shared across packages:
// node-id construction, functional slice helpers, retry/schedule
// loops. The go-ethereum-dependent helpers (CalculateShardToSend,
// CalculateMappingSlotIndex, SlotToKey — all derived from EVM account
// addresses and storage slots, which have no TriBFT counterpart) are
// dropped; the remaining generic helpers operate on plain TriBFT
// collections.
package utils

import (
	"fmt"
	"strconv"
	"time"

	"tribft/types"
)

// NewNodeID returns a NodeID for a simulated node index.
func NewNodeID(node int) types.NodeID {
	if node < 0 {
		node = -node
	}
	return types.NodeID(strconv.Itoa(node))
}

// Node returns the integer component of a NodeID minted by NewNodeID.
func Node(id types.NodeID) int {
	n, err := strconv.Atoi(string(id))
	if err != nil {
		return 0
	}
	return n
}

// Map applies fn to every element of ts.
func Map[T, V any](ts []T, fn func(T) V) []V {
	result := make([]V, len(ts))
	for i, t := range ts {
		result[i] = fn(t)
	}
	return result
}

// Contains reports whether target appears in slice.
func Contains[T comparable](slice []T, target T) bool {
	for _, v := range slice {
		if v == target {
			return true
		}
	}
	return false
}

// RemoveSliceIndex returns slice with the element at index dropped.
func RemoveSliceIndex[T any](index int, slice []T) []T {
	out := make([]T, 0, len(slice))
	for i, v := range slice {
		if i == index {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Retry calls f up to attempts times with a linearly increasing delay
// (sleep, 2·sleep, 3·sleep, ...) between attempts, stopping at the first
// success.
func Retry(f func() error, attempts int, sleep time.Duration) error {
	var err error
	for i := 0; ; i++ {
		err = f()
		if err == nil {
			return nil
		}
		if i >= attempts-1 {
			break
		}
		time.Sleep(sleep * time.Duration(i+1))
	}
	return fmt.Errorf("after %d attempts, last error: %w", attempts, err)
}

// Schedule repeatedly calls f every delay until the returned channel
// is closed or sent to.
func Schedule(f func(), delay time.Duration) chan bool {
	stop := make(chan bool)
	go func() {
		for {
			f()
			select {
			case <-time.After(delay):
			case <-stop:
				return
			}
		}
	}()
	return stop
}
