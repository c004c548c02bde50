// Package writer provides the chunk-queue allocator the GVDB writer uses
// to lay out a file's body ahead of its header.
//
// The writer never knows the final file size before it finishes walking
// the tree, so every chunk (a hash-table block, a key string, a variant
// payload, a list index array) is queued with its required alignment and
// assigned a sequential offset as it is added. Draining the queue at the
// end produces the contiguous byte buffer that becomes the file body.
package writer

import (
	"fmt"

	"github.com/dconf/gvdb/internal/utils"
)

// Chunk is one queued region of the output file: a payload plus the
// sequential offset it was assigned when added to the queue.
type Chunk struct {
	Offset  uint64
	Payload []byte
}

// ChunkQueue assigns sequential, alignment-padded offsets to chunks as
// they are added and later drains them into one contiguous buffer.
//
// Strategy:
//   - End-of-queue allocation: every chunk lands immediately after the
//     previous one, padded up to its requested alignment.
//   - No reuse: once assigned, a chunk's offset never changes.
//   - Offsets are decided eagerly so a chunk's (start, end) pointer can be
//     recorded into its parent record before the chunk's bytes are known
//     (e.g. a sub-table's pointer is fixed before the sub-table is built).
//
// Not safe for concurrent use; the writer is single-threaded.
type ChunkQueue struct {
	chunks []Chunk
	offset uint64
}

// NewChunkQueue creates a queue whose first chunk will be placed at
// initialOffset — the size of whatever fixed header precedes the body
// (the GVDB file header, for this writer).
func NewChunkQueue(initialOffset uint64) *ChunkQueue {
	return &ChunkQueue{
		chunks: make([]Chunk, 0, 16),
		offset: initialOffset,
	}
}

// Reserve pads the current offset up to alignment, allocates a
// zero-filled buffer of size bytes at the resulting offset, enqueues it,
// and returns both the offset and the buffer for the caller to fill in
// place. alignment must be a power of two; size must be nonzero.
//
// The buffer comes from internal/utils's pooled scratch allocator
// rather than a fresh make(), since a hash-table block (the largest and
// most frequent chunk this writer reserves) is exactly the kind of
// per-record scratch space that pool exists for; Serialize releases
// every chunk's buffer back to the pool once it has been copied into
// the final output.
func (q *ChunkQueue) Reserve(size, alignment uint64) (offset uint64, buf []byte, err error) {
	if size == 0 {
		return 0, nil, fmt.Errorf("writer: cannot reserve a zero-size chunk")
	}
	if alignment == 0 || alignment&(alignment-1) != 0 {
		return 0, nil, fmt.Errorf("writer: alignment %d is not a power of two", alignment)
	}
	if err := utils.ValidateBufferSize(size, utils.MaxKeyPoolSize, "chunk reservation"); err != nil {
		return 0, nil, fmt.Errorf("writer: %w", err)
	}

	q.offset += (-q.offset) & (alignment - 1)
	offset = q.offset
	buf = utils.GetBuffer(int(size))
	clear(buf)

	q.chunks = append(q.chunks, Chunk{Offset: offset, Payload: buf})
	q.offset += size

	return offset, buf, nil
}

// Add pads the current offset up to alignment and enqueues payload
// as-is (the common case — the caller already has the final bytes, as
// with a key string or a normalized variant payload). An empty payload
// is not enqueued: Add returns the current offset without padding it
// and leaves the queue unchanged.
func (q *ChunkQueue) Add(payload []byte, alignment uint64) (offset uint64, err error) {
	if alignment == 0 || alignment&(alignment-1) != 0 {
		return 0, fmt.Errorf("writer: alignment %d is not a power of two", alignment)
	}
	if len(payload) == 0 {
		offset = q.offset
		return offset, nil
	}

	q.offset += (-q.offset) & (alignment - 1)
	offset = q.offset
	q.chunks = append(q.chunks, Chunk{Offset: offset, Payload: payload})
	q.offset += uint64(len(payload))

	return offset, nil
}

// EndOfFile returns the offset the next chunk would be placed at.
func (q *ChunkQueue) EndOfFile() uint64 {
	return q.offset
}

// Serialize drains the queue into one contiguous buffer, prefixed by
// header. Gaps between the end of one chunk and the recorded offset of
// the next are zero-filled; a gap of 8 bytes or more signals a
// bucketing or size-accounting bug in the caller and is reported
// rather than silently padded.
//
// Every queued chunk's payload is released back to the shared buffer
// pool once it has been copied into out, whether or not it originated
// from Reserve's pooled allocation — Serialize is this queue's only
// consumer of Payload, so nothing holds a reference to it afterward.
func (q *ChunkQueue) Serialize(header []byte) ([]byte, error) {
	out := make([]byte, len(header), q.offset)
	copy(out, header)

	for _, c := range q.chunks {
		if uint64(len(out)) > c.Offset {
			return nil, fmt.Errorf("writer: chunk at offset %d overlaps already-written output of length %d", c.Offset, len(out))
		}
		if gap := c.Offset - uint64(len(out)); gap != 0 {
			if gap >= 8 {
				return nil, fmt.Errorf("writer: alignment gap of %d bytes before offset %d exceeds the 8-byte limit", gap, c.Offset)
			}
			out = append(out, make([]byte, gap)...)
		}
		out = append(out, c.Payload...)
	}

	for _, c := range q.chunks {
		utils.ReleaseBuffer(c.Payload)
	}

	return out, nil
}
