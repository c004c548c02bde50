package utils

import (
	"fmt"
	"math"
)

// CheckMultiplyOverflow checks if multiplying two uint64 values would overflow.
// Returns an error if overflow would occur.
func CheckMultiplyOverflow(a, b uint64) error {
	if a == 0 || b == 0 {
		return nil // No overflow when either is zero.
	}

	if a > math.MaxUint64/b {
		return fmt.Errorf("multiplication overflow: %d * %d exceeds uint64 max", a, b)
	}

	return nil
}

// SafeMultiply multiplies two uint64 values and returns the result if no overflow occurs.
// Returns 0 and an error if overflow would occur.
func SafeMultiply(a, b uint64) (uint64, error) {
	if err := CheckMultiplyOverflow(a, b); err != nil {
		return 0, err
	}
	return a * b, nil
}

// ValidateBufferSize validates that a buffer size is within reasonable limits.
// maxSize allows different limits for different use cases.
func ValidateBufferSize(size, maxSize uint64, description string) error {
	if size > maxSize {
		return fmt.Errorf("%s: size %d exceeds maximum %d", description, size, maxSize)
	}

	return nil
}

// Buffer size limits for the parser's hash-item array and the writer's
// chunk reservations.
const (
	// MaxHashItems bounds how many hash-item records a single parsed
	// hash-table block may claim, guarding against a corrupt bucket
	// count causing an unreasonable allocation.
	MaxHashItems = 64 * 1024 * 1024

	// MaxKeyPoolSize bounds the size of a single chunk that
	// writer.ChunkQueue.Reserve will allocate.
	MaxKeyPoolSize = 256 * 1024 * 1024
)
