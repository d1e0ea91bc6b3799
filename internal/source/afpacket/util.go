package afpacket

import "fmt"

// recomputeSize derives a TPACKET_V3 ring layout from a memory budget.
// The kernel requires frameSize to be a multiple of TPACKET_ALIGNMENT,
// blockSize a multiple of the page size and of frameSize.
func recomputeSize(ringBufferSizeMB, snapLen, pageSize int) (frameSize, blockSize, numBlocks int, err error) {
	const tpacketAlignment = 16
	const tpacketHdrLen = 52 // TPACKET3_HDRLEN, rounded up
	const maxBlockSize = 4 << 20

	if ringBufferSizeMB <= 0 {
		return 0, 0, 0, fmt.Errorf("afpacket: buffer size must be positive, got %d MB", ringBufferSizeMB)
	}
	if snapLen <= 0 {
		return 0, 0, 0, fmt.Errorf("afpacket: snap length must be positive, got %d", snapLen)
	}
	if pageSize <= 0 || pageSize%tpacketAlignment != 0 {
		return 0, 0, 0, fmt.Errorf("afpacket: page size must be a positive multiple of %d, got %d", tpacketAlignment, pageSize)
	}

	frameSize = alignUp(tpacketHdrLen+snapLen, tpacketAlignment)

	blockSize = lcm(pageSize, frameSize)
	if blockSize > maxBlockSize {
		// One frame per block rounded to pages is always legal.
		blockSize = alignUp(frameSize, pageSize)
		if blockSize%frameSize != 0 {
			frameSize = blockSize
		}
	}

	numBlocks = (ringBufferSizeMB << 20) / blockSize
	if numBlocks < 1 {
		numBlocks = 1
	}
	return frameSize, blockSize, numBlocks, nil
}

func alignUp(n, to int) int {
	return (n + to - 1) / to * to
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}
